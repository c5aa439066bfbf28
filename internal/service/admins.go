package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"

	"checkinDesk/internal/auth"
	"checkinDesk/internal/dto"
	"checkinDesk/internal/model"
	"checkinDesk/internal/repo"
	"checkinDesk/pkg/validator"
)

func (s *service) Login(ctx *ginext.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequestError(ctx, dto.CredentialsRequired)
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, dto.CredentialsRequired)
		return
	}

	admin, err := s.repo.GetAdminByUsername(ctx.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repo.ErrAdminNotFound) {
			dto.UnauthorizedError(ctx, dto.InvalidCredentials)
			return
		}
		s.log.Error().Err(err).Msg("failed to load admin for login")
		dto.InternalServerError(ctx)
		return
	}
	if !auth.CheckPassword(admin.Password, req.Password) {
		s.log.Warn().Str("username", req.Username).Msg("login rejected")
		dto.UnauthorizedError(ctx, dto.InvalidCredentials)
		return
	}

	token, err := s.tokens.Issue(admin.ID, admin.Username)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue token")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.LoginResponse{Token: token})
}

func (s *service) ListAdmins(ctx *ginext.Context) {
	admins, err := s.repo.ListAdmins(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list admins")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to fetch admins")
		return
	}
	if admins == nil {
		admins = []model.Admin{}
	}
	dto.SuccessResponse(ctx, dto.AdminsResponse{Admins: admins})
}

func (s *service) CreateAdmin(ctx *ginext.Context) {
	var req dto.CreateAdminRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		dto.BadRequestError(ctx, dto.CredentialsRequired)
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, verr.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to create admin")
		return
	}

	admin := &model.Admin{
		Username:  req.Username,
		Password:  hash,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := s.repo.CreateAdmin(ctx.Request.Context(), admin); err != nil {
		if errors.Is(err, repo.ErrUsernameTaken) {
			dto.BadRequestError(ctx, dto.AdminExists)
			return
		}
		s.log.Error().Err(err).Msg("failed to create admin")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to create admin")
		return
	}

	s.log.Info().Str("admin_id", admin.ID).Str("username", admin.Username).Msg("admin created")
	dto.SuccessResponse(ctx, dto.AdminResponse{Admin: admin, Message: dto.AdminCreated})
}

func (s *service) DeleteAdmin(ctx *ginext.Context) {
	id := ctx.Query("id")
	if id == "" {
		dto.BadRequestError(ctx, dto.AdminIDRequired)
		return
	}
	if id == currentAdmin(ctx) {
		dto.BadRequestError(ctx, dto.AdminSelfDelete)
		return
	}

	if err := s.repo.DeleteAdmin(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repo.ErrAdminNotFound) {
			dto.NotFoundError(ctx, dto.AdminNotFound)
			return
		}
		s.log.Error().Err(err).Str("admin_id", id).Msg("failed to delete admin")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to delete admin")
		return
	}

	s.log.Info().Str("admin_id", id).Str("by", currentAdmin(ctx)).Msg("admin deleted")
	dto.MessageOnly(ctx, dto.AdminDeleted)
}

func (s *service) GetProfile(ctx *ginext.Context) {
	admin, err := s.repo.GetAdminByID(ctx.Request.Context(), currentAdmin(ctx))
	if err != nil {
		if errors.Is(err, repo.ErrAdminNotFound) {
			dto.NotFoundError(ctx, dto.AdminNotFound)
			return
		}
		s.log.Error().Err(err).Msg("failed to load profile")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.AdminResponse{Admin: admin})
}

func (s *service) UpdateProfile(ctx *ginext.Context) {
	var req dto.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequestError(ctx, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, verr.Error())
		return
	}

	rctx := ctx.Request.Context()
	id := currentAdmin(ctx)
	admin, err := s.repo.GetAdminByID(rctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrAdminNotFound) {
			dto.NotFoundError(ctx, dto.AdminNotFound)
			return
		}
		s.log.Error().Err(err).Msg("failed to load profile")
		dto.InternalServerError(ctx)
		return
	}

	fields := map[string]any{}
	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			dto.BadRequestError(ctx, dto.PasswordRequired)
			return
		}
		if !auth.CheckPassword(admin.Password, req.CurrentPassword) {
			dto.BadRequestError(ctx, dto.PasswordIncorrect)
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to hash password")
			dto.InternalServerError(ctx)
			return
		}
		fields["password"] = hash
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.FirstName != nil {
		fields["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = *req.LastName
	}
	if req.ProfilePicture != nil {
		fields["profile_picture"] = *req.ProfilePicture
	}

	updated, err := s.repo.UpdateAdmin(rctx, id, fields)
	if err != nil {
		if errors.Is(err, repo.ErrAdminNotFound) {
			dto.NotFoundError(ctx, dto.AdminNotFound)
			return
		}
		s.log.Error().Err(err).Msg("failed to update profile")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.AdminResponse{Admin: updated, Message: dto.ProfileUpdated})
}

// UploadProfilePicture stores an image under the profile directory and
// returns the public URL it is served from.
// pictureExts maps sniffed image types to the extension the file is stored
// under. The client filename never picks the extension.
var pictureExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *service) UploadProfilePicture(ctx *ginext.Context) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		dto.BadRequestError(ctx, dto.NoFileUploaded)
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to open profile picture")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Upload failed")
		return
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	f.Close()

	ext, ok := pictureExts[http.DetectContentType(head[:n])]
	if !ok {
		dto.BadRequestError(ctx, dto.FileMustBeImage)
		return
	}
	if fh.Size > maxPictureBytes {
		dto.BadRequestError(ctx, dto.FileTooLarge)
		return
	}

	filename := fmt.Sprintf("profile_%d_%s%s", s.now().UnixMilli(), uuid.NewString()[:8], ext)

	if err := os.MkdirAll(s.opts.ProfileDir, 0o755); err != nil {
		s.log.Error().Err(err).Str("dir", s.opts.ProfileDir).Msg("failed to prepare profile directory")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Upload failed")
		return
	}
	if err := ctx.SaveUploadedFile(fh, filepath.Join(s.opts.ProfileDir, filename)); err != nil {
		s.log.Error().Err(err).Msg("failed to save profile picture")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Upload failed")
		return
	}

	dto.SuccessResponse(ctx, dto.PictureResponse{
		URL:      path.Join(s.opts.ProfileURL, filename),
		Filename: filename,
	})
}
