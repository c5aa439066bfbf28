package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
)

type recordingNotifier struct {
	uploaded, errors, calls int
}

func (r *recordingNotifier) BulkUploadCompleted(_ context.Context, uploaded, errs int) error {
	r.calls++
	r.uploaded, r.errors = uploaded, errs
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }

func fixedClock() time.Time { return time.UnixMilli(1_700_000_000_000) }

func newTestImporter(store AttendeeStore, opts ...Option) *Importer {
	opts = append([]Option{
		WithClock(fixedClock),
		WithRenderer(func(string) (string, error) { return "data:image/png;base64,AA==", nil }),
	}, opts...)
	return New(store, Config{}, nopLogger(), opts...)
}

func xlsxBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestImportCleanSheet(t *testing.T) {
	store := &fakeStore{}
	notifier := &recordingNotifier{}
	stats := &countingInvalidator{}
	imp := newTestImporter(store, WithNotifier(notifier), WithStatsInvalidator(stats))

	content := xlsxBytes(t, [][]any{
		{"Name", "Email"},
		{"Alice", "alice@example.com"},
		{"Bob", "bob@example.com"},
		{"Carol", "carol@example.com"},
	})

	sum, err := imp.Import(context.Background(), Upload{Filename: "people.xlsx", Content: content})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Uploaded)
	assert.Zero(t, sum.Duplicates)
	assert.Zero(t, sum.Skipped)
	assert.Zero(t, sum.Errors)
	assert.Equal(t, 3, sum.TotalProcessed)
	assert.Equal(t, "Upload completed. 3 attendees added, 0 duplicates skipped, 0 rows skipped (no data), 0 errors.", sum.Message)
	assert.Nil(t, sum.ErrorDetails)

	require.NotNil(t, sum.DetectedHeaders.NameColumn)
	assert.Equal(t, Column{Index: 0, Header: "Name"}, *sum.DetectedHeaders.NameColumn)
	require.NotNil(t, sum.DetectedHeaders.EmailColumn)
	assert.Equal(t, 1, sum.DetectedHeaders.EmailColumn.Index)
	assert.False(t, sum.DetectedHeaders.NameFallback)

	require.Len(t, store.saved, 3)
	assert.Equal(t, "Alice", store.saved[0].Name)
	assert.Equal(t, `{"name":"Alice","email":"alice@example.com","timestamp":1700000000000}`, store.saved[0].QRData)
	assert.Equal(t, `{"name":"Carol","email":"carol@example.com","timestamp":1700000000002}`, store.saved[2].QRData)

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, 3, notifier.uploaded)
	assert.Equal(t, 1, stats.calls)
}

func TestImportDegradedHeadersUseFirstColumn(t *testing.T) {
	store := &fakeStore{}
	imp := newTestImporter(store)

	sum, err := imp.Import(context.Background(), Upload{
		Filename: "list.csv",
		Content:  []byte("Zzz,Qqq\nDora,1\nEvan,2\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Uploaded)
	require.NotNil(t, sum.DetectedHeaders.NameColumn)
	assert.Equal(t, 0, sum.DetectedHeaders.NameColumn.Index)
	assert.True(t, sum.DetectedHeaders.NameFallback)
	assert.Nil(t, sum.DetectedHeaders.EmailColumn)
	assert.Equal(t, "Dora", store.saved[0].Name)
	assert.Equal(t, map[string]string{"Qqq": "1"}, map[string]string(store.saved[0].ExtraData))
}

func TestImportHeaderOnly(t *testing.T) {
	imp := newTestImporter(&fakeStore{})

	_, err := imp.Import(context.Background(), Upload{Filename: "a.csv", Content: []byte("Name,Email\n")})
	assert.ErrorIs(t, err, ErrNoDataRows)
}

func TestImportEmptyFile(t *testing.T) {
	imp := newTestImporter(&fakeStore{})

	_, err := imp.Import(context.Background(), Upload{Filename: "a.csv", Content: []byte("\n\n")})
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestImportDuplicatesAgainstStoreAndWithinSheet(t *testing.T) {
	store := &fakeStore{names: []string{"Alice"}}
	imp := newTestImporter(store)

	sum, err := imp.Import(context.Background(), Upload{
		Filename: "dups.csv",
		Content:  []byte("Name,Email\nAlice,a@x.com\nBob,b@x.com\nBob,b2@x.com\n,\n,c@x.com\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Uploaded)
	assert.Equal(t, 2, sum.Duplicates)
	assert.Zero(t, sum.Skipped)
	assert.Equal(t, 4, sum.TotalProcessed)
	assert.Equal(t, "Bob", store.saved[0].Name)
	assert.Equal(t, "c@x.com", store.saved[1].Name)
}

func TestImportDedupIndependentOfOrder(t *testing.T) {
	for _, content := range []string{
		"Name,Email\nZoe,first@x.com\nZoe,second@x.com\n",
		"Name,Email\nZoe,second@x.com\nZoe,first@x.com\n",
	} {
		store := &fakeStore{}
		sum, err := newTestImporter(store).Import(context.Background(), Upload{Filename: "z.csv", Content: []byte(content)})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Uploaded)
		assert.Equal(t, 1, sum.Duplicates)
	}
}

func TestImportRowWithoutIdentityIsSkipped(t *testing.T) {
	store := &fakeStore{}
	sum, err := newTestImporter(store).Import(context.Background(), Upload{
		Filename: "s.csv",
		Content:  []byte("Name,Email,Phone\nAmy,,\n,,010\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Uploaded)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.TotalProcessed)
}

func TestImportRenderFailureSkipsRow(t *testing.T) {
	store := &fakeStore{}
	imp := newTestImporter(store, WithRenderer(func(content string) (string, error) {
		if content == `{"name":"Broken","timestamp":1700000000000}` {
			return "", errors.New("too large")
		}
		return "img", nil
	}))

	sum, err := imp.Import(context.Background(), Upload{Filename: "r.csv", Content: []byte("Name\nBroken\nFine\n")})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Uploaded)
	assert.Equal(t, 1, sum.Skipped)
}

func TestImportBatchFailureCountsErrors(t *testing.T) {
	store := &fakeStore{reject: map[string]bool{"Mallory": true}}
	notifier := &recordingNotifier{}
	imp := newTestImporter(store, WithNotifier(notifier))

	sum, err := imp.Import(context.Background(), Upload{
		Filename: "b.csv",
		Content:  []byte("Name\nAlice\nMallory\nTrent\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Uploaded)
	assert.Equal(t, 1, sum.Errors)
	assert.Equal(t, []string{"Failed to create attendee Mallory: unique constraint failed"}, sum.ErrorDetails)
	assert.Equal(t, 1, notifier.errors)
}

func TestImportLargeSheetAcrossGroups(t *testing.T) {
	store := &fakeStore{}
	content := "Name\n"
	for i := range 60 {
		content += "Person " + string(rune('A'+i%26)) + string(rune('a'+i/26)) + "\n"
	}
	sum, err := newTestImporter(store).Import(context.Background(), Upload{Filename: "big.csv", Content: []byte(content)})
	require.NoError(t, err)

	assert.Equal(t, 60, sum.Uploaded)
	require.Len(t, store.saved, 60)
	assert.Equal(t, "Person Aa", store.saved[0].Name)
	assert.Equal(t, "Person Hc", store.saved[59].Name)
	assert.Equal(t, 3, store.batchCalls)
}

func TestImportStoreFailure(t *testing.T) {
	imp := newTestImporter(&fakeStore{listErr: errors.New("db down")})
	_, err := imp.Import(context.Background(), Upload{Filename: "a.csv", Content: []byte("Name\nA\n")})
	assert.Error(t, err)
}

func TestReadSheetDecodesEUCKR(t *testing.T) {
	raw, err := korean.EUCKR.NewEncoder().Bytes([]byte("이름,이메일\n홍길동,hong@example.kr\n"))
	require.NoError(t, err)

	s, err := ReadSheet("korean.csv", raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"이름", "이메일"}, s.Headers)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, "홍길동", s.Rows[0].Values[0])
}

func TestReadSheetStripsBOMAndPadsRows(t *testing.T) {
	s, err := ReadSheet("bom.csv", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name,Email,Note\nAmy\n")...))
	require.NoError(t, err)
	assert.Equal(t, "Name", s.Headers[0])
	require.Len(t, s.Rows, 1)
	assert.Equal(t, []string{"Amy", "", ""}, s.Rows[0].Values)
	assert.Equal(t, map[string]string{"Name": "Amy"}, s.Rows[0].Keyed)
}

func TestReadSheetKeysForBlankAndRepeatedHeaders(t *testing.T) {
	assert.Equal(t,
		[]string{"__EMPTY", "Name", "__EMPTY_1", "Name_1", "Name_2"},
		headerKeys([]string{"", "Name", " ", "Name", "Name"}),
	)
}
