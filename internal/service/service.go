package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"checkinDesk/internal/auth"
	"checkinDesk/internal/cache"
	"checkinDesk/internal/importer"
	"checkinDesk/internal/notify"
	"checkinDesk/internal/repo"
)

type Service interface {
	Upload(ctx *ginext.Context)
	Checkin(ctx *ginext.Context)

	Attendees(ctx *ginext.Context)
	Stats(ctx *ginext.Context)
	OrganizationsReport(ctx *ginext.Context)
	RegionsReport(ctx *ginext.Context)
	PositionsReport(ctx *ginext.Context)
	CheckinTrend(ctx *ginext.Context)
	GenderReport(ctx *ginext.Context)
	DownloadExcel(ctx *ginext.Context)
	DownloadTemplate(ctx *ginext.Context)

	Login(ctx *ginext.Context)
	ListAdmins(ctx *ginext.Context)
	CreateAdmin(ctx *ginext.Context)
	DeleteAdmin(ctx *ginext.Context)
	GetProfile(ctx *ginext.Context)
	UpdateProfile(ctx *ginext.Context)
	UploadProfilePicture(ctx *ginext.Context)

	ListNotifications(ctx *ginext.Context)
	CreateNotification(ctx *ginext.Context)
	MarkNotificationRead(ctx *ginext.Context)
	GetSettings(ctx *ginext.Context)
	UpdateSettings(ctx *ginext.Context)
}

// Uploader turns an uploaded spreadsheet into attendees.
type Uploader interface {
	Import(ctx context.Context, up importer.Upload) (*importer.Summary, error)
}

type Notifier interface {
	AttendeeCheckedIn(ctx context.Context, name, attendeeID string) error
}

type Options struct {
	// EventStart and EventEnd bound the check-in trend report.
	EventStart time.Time
	EventEnd   time.Time

	ProfileDir     string
	ProfileURL     string
	MaxUploadBytes int64
}

const (
	defaultMaxUpload  = 20 << 20
	maxPictureBytes   = 2 << 20
	defaultProfileDir = "uploads/profiles"
	defaultProfileURL = "/uploads/profiles"
)

var (
	DefaultEventStart = time.Date(2025, time.October, 27, 0, 0, 0, 0, time.UTC)
	DefaultEventEnd   = time.Date(2025, time.October, 31, 23, 59, 59, 999_000_000, time.UTC)
)

type service struct {
	repo     repo.Repository
	uploader Uploader
	tokens   *auth.Tokens
	notifier Notifier
	stats    cache.StatsCache
	opts     Options
	log      *zerolog.Logger
	now      func() time.Time
}

func NewService(
	repo repo.Repository,
	uploader Uploader,
	tokens *auth.Tokens,
	notifier Notifier,
	stats cache.StatsCache,
	logger *zerolog.Logger,
	opts Options,
) Service {
	if stats == nil {
		stats = cache.Noop{}
	}
	if opts.EventStart.IsZero() {
		opts.EventStart = DefaultEventStart
	}
	if opts.EventEnd.IsZero() {
		opts.EventEnd = DefaultEventEnd
	}
	if opts.ProfileDir == "" {
		opts.ProfileDir = defaultProfileDir
	}
	if opts.ProfileURL == "" {
		opts.ProfileURL = defaultProfileURL
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	return &service{
		repo:     repo,
		uploader: uploader,
		tokens:   tokens,
		notifier: notifier,
		stats:    stats,
		opts:     opts,
		log:      logger,
		now:      time.Now,
	}
}

const (
	maxPage     = 1_000_000
	maxPageSize = 500
)

// queryInt reads a positive integer query parameter, falling back to def
// and clamping to upper.
func queryInt(ctx *ginext.Context, key string, def, upper int) int {
	v, err := strconv.Atoi(ctx.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return min(v, upper)
}

func currentAdmin(ctx *ginext.Context) string {
	return ctx.GetString(auth.AdminIDKey)
}

var _ Notifier = (*notify.Notifier)(nil)
