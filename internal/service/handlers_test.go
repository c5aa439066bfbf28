package service_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"checkinDesk/internal/api/api"
	"checkinDesk/internal/auth"
	"checkinDesk/internal/cache"
	"checkinDesk/internal/importer"
	"checkinDesk/internal/model"
	"checkinDesk/internal/notify"
	"checkinDesk/internal/repo"
	"checkinDesk/internal/service"
)

type harness struct {
	t       *testing.T
	router  http.Handler
	repo    repo.Repository
	tokens  *auth.Tokens
	adminID string
	token   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zerolog.Nop()

	db, err := repo.Open("sqlite", filepath.Join(t.TempDir(), "checkin.sqlite"), &log)
	require.NoError(t, err)
	r, err := repo.NewRepository(db, &log)
	require.NoError(t, err)
	require.NoError(t, r.MigrateUp(context.Background()))

	notifier := notify.New(notify.StoreSink{Store: r}, &log)
	imp := importer.New(r, importer.Config{}, &log, importer.WithNotifier(notifier))
	tokens := auth.NewTokens("test-secret", time.Hour)

	svc := service.NewService(r, imp, tokens, notifier, cache.Noop{}, &log, service.Options{
		ProfileDir: t.TempDir(),
	})
	router := api.NewRouters(&api.Routers{Service: svc, Tokens: tokens})

	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	admin := &model.Admin{Username: "root", Password: hash}
	require.NoError(t, r.CreateAdmin(context.Background(), admin))
	token, err := tokens.Issue(admin.ID, admin.Username)
	require.NoError(t, err)

	return &harness{t: t, router: router, repo: r, tokens: tokens, adminID: admin.ID, token: token}
}

func (h *harness) send(req *http.Request, authed bool) *httptest.ResponseRecorder {
	if authed {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) json(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return h.send(req, authed)
}

func (h *harness) upload(path, filename string, content []byte) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(h.t, err)
		_, err = fw.Write(content)
		require.NoError(h.t, err)
	} else {
		require.NoError(h.t, mw.WriteField("note", "no file"))
	}
	require.NoError(h.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return h.send(req, true)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const attendeesCSV = "Name,Email,Organization\n" +
	"Alice,alice@example.com,ACME\n" +
	"Bob,bob@example.com,ACME\n" +
	"Carol,,Globex\n"

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username and password are required", decode(t, rec)["error"])

	rec = h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "nope"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec)["error"])

	rec = h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "ghost", "password": "secret1"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "secret1"}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	claims, err := h.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, h.adminID, claims.AdminID)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newHarness(t)

	rec := h.json(http.MethodGet, "/api/stats", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No token provided", decode(t, rec)["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = h.send(req, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", decode(t, rec)["error"])

	rec = h.json(http.MethodGet, "/api/stats?token="+h.token, nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.json(http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRejections(t *testing.T) {
	h := newHarness(t)

	rec := h.upload("/api/upload", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])

	rec = h.upload("/api/upload", "empty.csv", []byte("\n\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Excel file is empty", decode(t, rec)["error"])

	rec = h.upload("/api/upload", "headers.csv", []byte("Name,Email\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No data rows found in the Excel file", decode(t, rec)["error"])
}

func TestUploadThenCheckin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec := h.upload("/api/upload", "attendees.csv", []byte(attendeesCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode(t, rec)
	assert.EqualValues(t, 3, summary["uploaded"])
	assert.EqualValues(t, 0, summary["duplicates"])
	assert.Equal(t, "Upload completed. 3 attendees added, 0 duplicates skipped, 0 rows skipped (no data), 0 errors.", summary["message"])

	// Same sheet again: every name is already present.
	rec = h.upload("/api/upload", "attendees.csv", []byte(attendeesCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["duplicates"])

	list, total, err := h.repo.ListAttendees(ctx, repo.AttendeeQuery{Search: "alice"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	qr := list[0].QRData

	rec = h.json(http.MethodPost, "/api/checkin", map[string]string{}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "QR data is required", decode(t, rec)["error"])

	rec = h.json(http.MethodPost, "/api/checkin", map[string]string{"qrData": "unknown"}, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Data is not available for check-in", decode(t, rec)["error"])

	rec = h.json(http.MethodPost, "/api/checkin", map[string]string{"qrData": qr}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Checked in successfully", body["message"])
	first := body["attendee"].(map[string]any)
	assert.Equal(t, true, first["checkedIn"])
	require.NotNil(t, first["checkedInAt"])

	rec = h.json(http.MethodPost, "/api/checkin", map[string]string{"qrData": qr}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "Already checked in", body["message"])
	assert.Equal(t, first["checkedInAt"], body["attendee"].(map[string]any)["checkedInAt"])

	rec = h.json(http.MethodGet, "/api/stats", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.EqualValues(t, 3, stats["total"])
	assert.EqualValues(t, 1, stats["checkedIn"])
	assert.EqualValues(t, 2, stats["pending"])

	rec = h.json(http.MethodGet, "/api/notifications?unread=true", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode(t, rec)
	assert.EqualValues(t, 3, notes["unreadCount"])
	assert.Len(t, notes["notifications"], 3)
}

func TestAttendeeListing(t *testing.T) {
	h := newHarness(t)
	rec := h.upload("/api/upload", "attendees.csv", []byte(attendeesCSV))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.json(http.MethodGet, "/api/attendees?page=1&limit=2", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["pages"])
	assert.Len(t, body["attendees"], 2)
	assert.Equal(t, map[string]any{"name": "Name", "email": "Email", "phone": "Phone"}, body["columns"])

	rec = h.json(http.MethodGet, "/api/attendees?page=9223372036854775807&limit=9223372036854775807", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 1_000_000, body["page"])
	assert.EqualValues(t, 1, body["pages"])
	assert.Empty(t, body["attendees"])

	rec = h.json(http.MethodGet, "/api/attendees?search=GLOBEX", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.EqualValues(t, 1, body["total"])

	rec = h.json(http.MethodGet, "/api/reports/organizations", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, []any{
		map[string]any{"name": "ACME", "count": float64(2)},
		map[string]any{"name": "Globex", "count": float64(1)},
	}, body["data"])

	rec = h.json(http.MethodGet, "/api/reports/regions", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{
		map[string]any{"name": "No Region Specified", "count": float64(3)},
	}, decode(t, rec)["data"])

	rec = h.json(http.MethodGet, "/api/reports/gender", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"data": []any{}, "success": true}, decode(t, rec))
}

func TestAdminManagement(t *testing.T) {
	h := newHarness(t)

	rec := h.json(http.MethodPost, "/api/admins", map[string]string{"username": "ops"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username and password are required", decode(t, rec)["error"])

	rec = h.json(http.MethodPost, "/api/admins", map[string]string{"username": "ops", "password": "secret2"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode(t, rec)
	assert.Equal(t, "Admin created successfully", created["message"])
	opsID := created["admin"].(map[string]any)["id"].(string)
	assert.NotContains(t, created["admin"], "password")

	rec = h.json(http.MethodPost, "/api/admins", map[string]string{"username": "ops", "password": "secret2"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Admin with this username already exists", decode(t, rec)["error"])

	rec = h.json(http.MethodGet, "/api/admins", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["admins"], 2)

	rec = h.json(http.MethodDelete, "/api/admins", nil, true)
	assert.Equal(t, "Admin ID is required", decode(t, rec)["error"])

	rec = h.json(http.MethodDelete, "/api/admins?id="+h.adminID, nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot delete your own admin account", decode(t, rec)["error"])

	rec = h.json(http.MethodDelete, "/api/admins?id=missing", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.json(http.MethodDelete, "/api/admins?id="+opsID, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Admin deleted successfully", decode(t, rec)["message"])
}

func TestProfilePasswordChange(t *testing.T) {
	h := newHarness(t)

	rec := h.json(http.MethodPut, "/api/admin/profile", map[string]string{"newPassword": "secret9"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Current password is required to change password", decode(t, rec)["error"])

	rec = h.json(http.MethodPut, "/api/admin/profile", map[string]string{
		"newPassword": "secret9", "currentPassword": "wrong1",
	}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Current password is incorrect", decode(t, rec)["error"])

	rec = h.json(http.MethodPut, "/api/admin/profile", map[string]string{
		"newPassword": "secret9", "currentPassword": "secret1", "firstName": "Ada",
	}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Profile updated successfully", decode(t, rec)["message"])

	rec = h.json(http.MethodGet, "/api/admin/profile", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decode(t, rec)["admin"].(map[string]any)["firstName"])

	rec = h.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "root", "password": "secret9"}, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfilePicture(t *testing.T) {
	h := newHarness(t)

	rec := h.upload("/api/upload/profile-picture", "notes.txt", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File must be an image", decode(t, rec)["error"])

	rec = h.upload("/api/upload/profile-picture", "me.png", qrPNG(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Contains(t, body["url"], "/uploads/profiles/profile_")
	assert.Contains(t, body["filename"], ".png")
}

func TestProfilePictureExtensionFollowsContent(t *testing.T) {
	h := newHarness(t)

	gifWithMarkup := append([]byte("GIF89a"), []byte("<html><script>alert(1)</script></html>")...)
	rec := h.upload("/api/upload/profile-picture", "x.html", gifWithMarkup)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.True(t, strings.HasSuffix(body["filename"].(string), ".gif"), body["filename"])
	assert.True(t, strings.HasSuffix(body["url"].(string), ".gif"), body["url"])

	rec = h.upload("/api/upload/profile-picture", "me.png", qrPNG(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(decode(t, rec)["filename"].(string), ".png"))

	// bitmaps sniff as image/bmp but are not accepted
	rec = h.upload("/api/upload/profile-picture", "me.bmp", append([]byte("BM"), make([]byte, 64)...))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File must be an image", decode(t, rec)["error"])
}

func qrPNG(t *testing.T) []byte {
	t.Helper()
	url, err := importer.RenderPNG("profile")
	require.NoError(t, err)
	_, encoded, found := strings.Cut(url, ",")
	require.True(t, found)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	return raw
}

func TestSettingsRoundTrip(t *testing.T) {
	h := newHarness(t)

	rec := h.json(http.MethodPut, "/api/settings", map[string]any{"settings": "nope"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid settings data", decode(t, rec)["error"])

	rec = h.json(http.MethodPut, "/api/settings", map[string]any{"settings": map[string]any{
		"checkin.enabled": true,
		"event.capacity":  250,
		"event.name":      "Summit",
		"event.days":      []string{"mon", "tue"},
	}}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Settings updated successfully", decode(t, rec)["message"])

	rec = h.json(http.MethodGet, "/api/settings", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"checkin.enabled": true,
		"event.capacity":  float64(250),
		"event.name":      "Summit",
		"event.days":      []any{"mon", "tue"},
	}, decode(t, rec)["settings"])
}

func TestNotificationsCreateAndRead(t *testing.T) {
	h := newHarness(t)

	rec := h.json(http.MethodPost, "/api/notifications", map[string]string{"title": "only title"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Title and message are required", decode(t, rec)["error"])

	rec = h.json(http.MethodPost, "/api/notifications", map[string]string{"title": "Doors", "message": "Doors open"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	n := decode(t, rec)["notification"].(map[string]any)
	assert.Equal(t, "info", n["type"])

	rec = h.json(http.MethodPatch, "/api/notifications/"+n["id"].(string)+"/read", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.json(http.MethodPatch, "/api/notifications/missing/read", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.json(http.MethodGet, "/api/notifications", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["unreadCount"])
}

func TestExcelExport(t *testing.T) {
	h := newHarness(t)
	rec := h.upload("/api/upload", "attendees.csv", []byte(attendeesCSV))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.json(http.MethodGet, "/api/download/excel?token="+h.token, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendees_with_qr.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Attendees")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, "QR Code", rows[0][16])
	names := make([]string, 0, 3)
	for _, row := range rows[1:] {
		names = append(names, row[0])
		assert.Equal(t, "Pending", row[14])
	}
	assert.ElementsMatch(t, []string{"Alice", "Bob", "Carol"}, names)

	pics, err := f.GetPictures("Attendees", "Q2")
	require.NoError(t, err)
	assert.Len(t, pics, 1)

	rec = h.json(http.MethodGet, "/api/template/csv", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	tpl, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer tpl.Close()
	tplRows, err := tpl.GetRows("Template")
	require.NoError(t, err)
	require.Len(t, tplRows, 2)
	assert.Equal(t, "ID", tplRows[0][0])
	assert.Equal(t, "Seoul", tplRows[1][11])
}
