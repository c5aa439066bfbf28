package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"checkinDesk/internal/dto"
	"checkinDesk/internal/model"
	"checkinDesk/internal/repo"
	"checkinDesk/pkg/validator"
)

const defaultSettingCategory = "general"

func (s *service) ListNotifications(ctx *ginext.Context) {
	rctx := ctx.Request.Context()
	limit := queryInt(ctx, "limit", 20, maxPageSize)
	unreadOnly := ctx.Query("unread") == "true"

	list, err := s.repo.ListNotifications(rctx, limit, unreadOnly)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list notifications")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}
	unread, err := s.repo.CountUnread(rctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count unread notifications")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to fetch notifications")
		return
	}
	if list == nil {
		list = []model.Notification{}
	}

	dto.SuccessResponse(ctx, dto.NotificationsResponse{
		Notifications: list,
		UnreadCount:   unread,
		Success:       true,
	})
}

func (s *service) CreateNotification(ctx *ginext.Context) {
	var req dto.CreateNotificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Title == "" || req.Message == "" {
		dto.BadRequestError(ctx, dto.TitleMessageRequired)
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, verr.Error())
		return
	}

	n := &model.Notification{
		Title:      req.Title,
		Message:    req.Message,
		Type:       req.Type,
		AttendeeID: req.AttendeeID,
		AdminID:    req.AdminID,
	}
	if err := s.repo.CreateNotification(ctx.Request.Context(), n); err != nil {
		s.log.Error().Err(err).Msg("failed to create notification")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to create notification")
		return
	}
	dto.SuccessResponse(ctx, dto.NotificationResponse{Notification: n, Success: true})
}

func (s *service) MarkNotificationRead(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := s.repo.MarkNotificationRead(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotificationNotFound) {
			dto.NotFoundError(ctx, dto.NotificationNotFound)
			return
		}
		s.log.Error().Err(err).Str("notification_id", id).Msg("failed to mark notification read")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NotificationResponse{Message: dto.NotificationRead, Success: true})
}

func (s *service) GetSettings(ctx *ginext.Context) {
	settings, err := s.repo.ListSettings(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list settings")
		dto.InternalServerError(ctx)
		return
	}

	out := make(map[string]any, len(settings))
	for _, st := range settings {
		out[st.Key] = decodeSetting(st)
	}
	dto.SuccessResponse(ctx, dto.SettingsResponse{Settings: out})
}

func (s *service) UpdateSettings(ctx *ginext.Context) {
	var req dto.SettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Settings == nil {
		dto.BadRequestError(ctx, dto.InvalidSettings)
		return
	}

	rows := make([]model.Setting, 0, len(req.Settings))
	for key, value := range req.Settings {
		if err := validator.Var(key, "settingkey"); err != nil {
			dto.BadRequestError(ctx, dto.InvalidSettings)
			return
		}
		raw, kind, err := encodeSetting(value)
		if err != nil {
			dto.BadRequestError(ctx, dto.InvalidSettings)
			return
		}
		rows = append(rows, model.Setting{
			Key:      key,
			Value:    raw,
			Type:     kind,
			Category: defaultSettingCategory,
		})
	}

	if err := s.repo.UpsertSettings(ctx.Request.Context(), rows); err != nil {
		s.log.Error().Err(err).Msg("failed to save settings")
		dto.InternalServerError(ctx)
		return
	}
	s.log.Info().Int("count", len(rows)).Str("by", currentAdmin(ctx)).Msg("settings updated")
	dto.MessageOnly(ctx, dto.SettingsUpdated)
}

// encodeSetting stores a JSON value as text and records which type it
// should be read back as.
func encodeSetting(v any) (string, string, error) {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val), model.SettingTypeBoolean, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), model.SettingTypeNumber, nil
	case string:
		return val, model.SettingTypeString, nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", "", err
		}
		return string(b), model.SettingTypeJSON, nil
	}
}

func decodeSetting(st model.Setting) any {
	switch st.Type {
	case model.SettingTypeBoolean:
		return st.Value == "true"
	case model.SettingTypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(st.Value), 64)
		if err != nil {
			return st.Value
		}
		return f
	case model.SettingTypeJSON:
		var v any
		if err := json.Unmarshal([]byte(st.Value), &v); err != nil {
			return st.Value
		}
		return v
	default:
		return st.Value
	}
}
