package validator

import (
	"context"
	"errors"
	"regexp"

	"github.com/go-playground/validator"
)

var (
	global        *validator.Validate
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.\-]{3,32}$`)
	settingRegex  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.\-]{0,63}$`)
)

const (
	ErrInvalidFormat      = "Invalid format"
	ErrFieldRequired      = "Field is required"
	ErrFieldExceedsMaxLen = "Field exceeds maximum length"
	ErrFieldBelowMinLen   = "Field is below minimum length"
	ErrInvalidEmail       = "Invalid email address"
	ErrInvalidUsername    = "Username must be 3-32 letters, digits, dots, dashes or underscores"
	ErrInvalidSettingKey  = "Invalid setting key"
	ErrInvalidNotifType   = "Type must be one of info, success, warning, error"
	ErrUnknownValidation  = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("settingkey", validateSettingKey)
	_ = v.RegisterValidation("notiftype", validateNotificationType)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernameRegex.MatchString(fl.Field().String())
}

func validateSettingKey(fl validator.FieldLevel) bool {
	return settingRegex.MatchString(fl.Field().String())
}

func validateNotificationType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "info", "success", "warning", "error":
		return true
	}
	return false
}

// Validate checks structure and reports only its first violation.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

// Var checks a single value against tag.
func Var(value any, tag string) error {
	return parseValidationErrors(Validator().Var(value, tag))
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return err
	}
	ve := vErrors[0]
	var msg string
	switch ve.Tag() {
	case "required":
		msg = ErrFieldRequired
	case "max":
		msg = ErrFieldExceedsMaxLen
	case "min":
		msg = ErrFieldBelowMinLen
	case "email":
		msg = ErrInvalidEmail
	case "username":
		msg = ErrInvalidUsername
	case "settingkey":
		msg = ErrInvalidSettingKey
	case "notiftype":
		msg = ErrInvalidNotifType
	default:
		msg = ErrUnknownValidation
	}
	if ve.Namespace() == "" {
		return errors.New(msg)
	}
	return errors.New(msg + ": " + ve.Namespace())
}
