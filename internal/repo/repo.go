package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"checkinDesk/internal/model"
)

var (
	ErrAttendeeNotFound     = errors.New("attendee not found")
	ErrAdminNotFound        = errors.New("admin not found")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnknownColumn        = errors.New("unknown report column")
)

type AttendeeQuery struct {
	Search string
	Page   int
	Limit  int
}

type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type Repository interface {
	ListNames(ctx context.Context) ([]string, error)
	CreateBatch(ctx context.Context, attendees []model.Attendee) error
	Create(ctx context.Context, attendee *model.Attendee) error
	GetAttendeeByQR(ctx context.Context, qrData string) (*model.Attendee, error)
	GetAttendeeByID(ctx context.Context, id string) (*model.Attendee, error)
	MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error)
	ListAttendees(ctx context.Context, q AttendeeQuery) ([]model.Attendee, int64, error)
	AllAttendees(ctx context.Context) ([]model.Attendee, error)
	CountAttendees(ctx context.Context) (total, checkedIn int64, err error)

	GroupCounts(ctx context.Context, column string) ([]GroupCount, int64, error)
	CheckinTimes(ctx context.Context) ([]time.Time, error)

	ListAdmins(ctx context.Context) ([]model.Admin, error)
	GetAdminByID(ctx context.Context, id string) (*model.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	UpdateAdmin(ctx context.Context, id string, fields map[string]any) (*model.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, limit int, unreadOnly bool) ([]model.Notification, error)
	CountUnread(ctx context.Context) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error

	ListSettings(ctx context.Context) ([]model.Setting, error)
	UpsertSettings(ctx context.Context, settings []model.Setting) error

	MigrateUp(ctx context.Context) error
	MigrateDown(ctx context.Context) error
}

type repository struct {
	db  *gorm.DB
	log *zerolog.Logger
}

// Open connects gorm to postgres or sqlite and routes its logs through log.
func Open(driver, dsn string, log *zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	gormLog := logger.New(log, logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return db, nil
}

func NewRepository(db *gorm.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	r.log.Info().Msg("Schema migrated")
	return nil
}

func (r *repository) MigrateDown(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Migrator().DropTable(model.All()...); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	r.log.Info().Msg("Schema dropped")
	return nil
}
