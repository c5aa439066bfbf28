package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"checkinDesk/internal/importer"
	"checkinDesk/internal/model"
)

const (
	InternalError = "Internal server error"

	NoFileUploaded     = "No file uploaded"
	ExcelFileEmpty     = "Excel file is empty"
	NoDataRows         = "No data rows found in the Excel file"
	ColumnsNotFound    = "Required columns not found. Please ensure your Excel file has at least a Name or Email column."
	ColumnsSuggestion  = "Try adding a header row with a column named Name, Full Name or Email."
	UploadFailedPrefix = "Upload failed: "

	QRDataRequired     = "QR data is required"
	CheckinUnavailable = "Data is not available for check-in"
	AlreadyCheckedIn   = "Already checked in"
	CheckedIn          = "Checked in successfully"

	CredentialsRequired = "Username and password are required"
	InvalidCredentials  = "Invalid credentials"
	NoTokenProvided     = "No token provided"
	InvalidToken        = "Invalid token"

	AdminExists       = "Admin with this username already exists"
	AdminCreated      = "Admin created successfully"
	AdminIDRequired   = "Admin ID is required"
	AdminSelfDelete   = "Cannot delete your own admin account"
	AdminNotFound     = "Admin not found"
	AdminDeleted      = "Admin deleted successfully"
	PasswordRequired  = "Current password is required to change password"
	PasswordIncorrect = "Current password is incorrect"
	ProfileUpdated    = "Profile updated successfully"

	FileMustBeImage = "File must be an image"
	FileTooLarge    = "File size must be less than 2MB"

	TitleMessageRequired = "Title and message are required"
	NotificationNotFound = "Notification not found"
	NotificationRead     = "Notification marked as read"

	InvalidSettings = "Invalid settings data"
	SettingsUpdated = "Settings updated successfully"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type CheckinRequest struct {
	QRData string `json:"qrData"`
}

type CheckinResponse struct {
	Message  string          `json:"message"`
	Attendee *model.Attendee `json:"attendee"`
}

type ColumnNames struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type AttendeesResponse struct {
	Attendees []model.Attendee `json:"attendees"`
	Columns   ColumnNames      `json:"columns"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	Pages     int              `json:"pages"`
}

type ColumnsNotFoundResponse struct {
	Error           string                   `json:"error"`
	DetectedHeaders importer.DetectedHeaders `json:"detectedHeaders"`
	Suggestion      string                   `json:"suggestion"`
}

type GroupItem struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type ReportResponse struct {
	Data    []GroupItem `json:"data"`
	Success bool        `json:"success"`
}

type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type TrendResponse struct {
	Data          []TrendPoint `json:"data"`
	Success       bool         `json:"success"`
	TotalCheckins int          `json:"totalCheckins"`
	DateRange     DateRange    `json:"dateRange"`
}

type CreateAdminRequest struct {
	Username  string  `json:"username" validate:"required,username"`
	Password  string  `json:"password" validate:"required,min=6"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

type AdminsResponse struct {
	Admins []model.Admin `json:"admins"`
}

type AdminResponse struct {
	Admin   *model.Admin `json:"admin"`
	Message string       `json:"message,omitempty"`
}

type UpdateProfileRequest struct {
	Email           *string `json:"email" validate:"omitempty,email"`
	FirstName       *string `json:"firstName" validate:"omitempty,max=100"`
	LastName        *string `json:"lastName" validate:"omitempty,max=100"`
	ProfilePicture  *string `json:"profilePicture"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" validate:"omitempty,min=6"`
}

type PictureResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type CreateNotificationRequest struct {
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Type       string  `json:"type" validate:"notiftype"`
	AttendeeID *string `json:"attendeeId"`
	AdminID    *string `json:"adminId"`
}

type NotificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int64                `json:"unreadCount"`
	Success       bool                 `json:"success"`
}

type NotificationResponse struct {
	Notification *model.Notification `json:"notification,omitempty"`
	Message      string              `json:"message,omitempty"`
	Success      bool                `json:"success"`
}

type SettingsRequest struct {
	Settings map[string]any `json:"settings"`
}

type SettingsResponse struct {
	Settings map[string]any `json:"settings"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func ErrorWithStatus(c *ginext.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func BadRequestError(c *ginext.Context, msg string) {
	ErrorWithStatus(c, http.StatusBadRequest, msg)
}

func UnauthorizedError(c *ginext.Context, msg string) {
	ErrorWithStatus(c, http.StatusUnauthorized, msg)
}

func NotFoundError(c *ginext.Context, msg string) {
	ErrorWithStatus(c, http.StatusNotFound, msg)
}

func InternalServerError(c *ginext.Context) {
	ErrorWithStatus(c, http.StatusInternalServerError, InternalError)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func MessageOnly(c *ginext.Context, msg string) {
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}
