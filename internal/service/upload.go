package service

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"checkinDesk/internal/dto"
	"checkinDesk/internal/importer"
	"checkinDesk/internal/repo"
)

func (s *service) Upload(ctx *ginext.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		dto.BadRequestError(ctx, dto.NoFileUploaded)
		return
	}
	if fh.Size > s.opts.MaxUploadBytes {
		dto.BadRequestError(ctx, dto.UploadFailedPrefix+"file is too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to open uploaded file")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, dto.UploadFailedPrefix+err.Error())
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read uploaded file")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, dto.UploadFailedPrefix+err.Error())
		return
	}

	summary, err := s.uploader.Import(ctx.Request.Context(), importer.Upload{
		Filename: fh.Filename,
		Content:  content,
	})
	if err != nil {
		var notFound *importer.ColumnsNotFoundError
		switch {
		case errors.Is(err, importer.ErrEmptyFile):
			dto.BadRequestError(ctx, dto.ExcelFileEmpty)
		case errors.Is(err, importer.ErrNoDataRows):
			dto.BadRequestError(ctx, dto.NoDataRows)
		case errors.As(err, &notFound):
			ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.ColumnsNotFoundResponse{
				Error:           dto.ColumnsNotFound,
				DetectedHeaders: importer.DetectedHeaders{AllHeaders: notFound.Headers},
				Suggestion:      dto.ColumnsSuggestion,
			})
		default:
			s.log.Error().Err(err).Str("file", fh.Filename).Msg("upload failed")
			dto.ErrorWithStatus(ctx, http.StatusInternalServerError, dto.UploadFailedPrefix+err.Error())
		}
		return
	}

	s.log.Info().
		Str("file", fh.Filename).
		Int("uploaded", summary.Uploaded).
		Int("duplicates", summary.Duplicates).
		Int("errors", summary.Errors).
		Msg("upload processed")
	dto.SuccessResponse(ctx, summary)
}

func (s *service) Checkin(ctx *ginext.Context) {
	var req dto.CheckinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.QRData) == "" {
		dto.BadRequestError(ctx, dto.QRDataRequired)
		return
	}

	rctx := ctx.Request.Context()
	attendee, err := s.repo.GetAttendeeByQR(rctx, req.QRData)
	if err != nil {
		if errors.Is(err, repo.ErrAttendeeNotFound) {
			dto.NotFoundError(ctx, dto.CheckinUnavailable)
			return
		}
		s.log.Error().Err(err).Msg("failed to look up attendee by qr data")
		dto.InternalServerError(ctx)
		return
	}

	if attendee.CheckedIn {
		dto.SuccessResponse(ctx, dto.CheckinResponse{Message: dto.AlreadyCheckedIn, Attendee: attendee})
		return
	}

	changed, err := s.repo.MarkCheckedIn(rctx, attendee.ID, s.now().UTC())
	if err != nil {
		s.log.Error().Err(err).Str("attendee_id", attendee.ID).Msg("failed to check in attendee")
		dto.InternalServerError(ctx)
		return
	}

	updated, err := s.repo.GetAttendeeByID(rctx, attendee.ID)
	if err != nil {
		s.log.Error().Err(err).Str("attendee_id", attendee.ID).Msg("failed to reload attendee")
		dto.InternalServerError(ctx)
		return
	}

	// A concurrent scan won the conditional update.
	if !changed {
		dto.SuccessResponse(ctx, dto.CheckinResponse{Message: dto.AlreadyCheckedIn, Attendee: updated})
		return
	}

	s.stats.Invalidate(rctx)
	if s.notifier != nil {
		if err := s.notifier.AttendeeCheckedIn(rctx, updated.Name, updated.ID); err != nil {
			s.log.Warn().Err(err).Str("attendee_id", updated.ID).Msg("check-in notification failed")
		}
	}

	s.log.Info().Str("attendee_id", updated.ID).Msg("attendee checked in")
	dto.SuccessResponse(ctx, dto.CheckinResponse{Message: dto.CheckedIn, Attendee: updated})
}
