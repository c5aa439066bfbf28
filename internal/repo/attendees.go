package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"checkinDesk/internal/model"
)

// searchColumns are matched case-insensitively by the attendee list search.
var searchColumns = []string{
	"name", "email", "phone", "attendee_id", "full_name", "organization",
	"preferred_title", "position_in_organization", "region_of_work",
	"phone_korean", "korean_text", "position_korean", "english_text",
	"position_english", "extra_data",
}

// reportColumns are the attendee columns that may be grouped for reports.
var reportColumns = map[string]bool{
	"organization":             true,
	"region_of_work":           true,
	"position_in_organization": true,
	"position_korean":          true,
	"position_english":         true,
}

func (r *repository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&model.Attendee{}).Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list attendee names: %w", err)
	}
	return names, nil
}

func (r *repository) CreateBatch(ctx context.Context, attendees []model.Attendee) error {
	if len(attendees) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&attendees).Error; err != nil {
			return fmt.Errorf("failed to insert %d attendees: %w", len(attendees), err)
		}
		return nil
	})
}

func (r *repository) Create(ctx context.Context, attendee *model.Attendee) error {
	if err := r.db.WithContext(ctx).Create(attendee).Error; err != nil {
		return fmt.Errorf("failed to insert attendee: %w", err)
	}
	return nil
}

func (r *repository) GetAttendeeByQR(ctx context.Context, qrData string) (*model.Attendee, error) {
	var a model.Attendee
	err := r.db.WithContext(ctx).Where("qr_data = ?", qrData).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttendeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attendee by qr: %w", err)
	}
	return &a, nil
}

func (r *repository) GetAttendeeByID(ctx context.Context, id string) (*model.Attendee, error) {
	var a model.Attendee
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttendeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attendee: %w", err)
	}
	return &a, nil
}

// MarkCheckedIn flips the check-in flag only if it is still unset and
// reports whether this call made the change.
func (r *repository) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Attendee{}).
		Where("id = ? AND checked_in = ?", id, false).
		Updates(map[string]any{
			"checked_in":    true,
			"checked_in_at": at,
			"updated_at":    at,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to check in attendee: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListAttendees(ctx context.Context, q AttendeeQuery) ([]model.Attendee, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	query := r.db.WithContext(ctx).Model(&model.Attendee{})
	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		conds := make([]string, len(searchColumns))
		args := make([]any, len(searchColumns))
		for i, col := range searchColumns {
			conds[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = pattern
		}
		query = query.Where(strings.Join(conds, " OR "), args...)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attendees: %w", err)
	}

	var attendees []model.Attendee
	err := query.
		Order("created_at ASC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&attendees).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendees: %w", err)
	}
	return attendees, total, nil
}

func (r *repository) AllAttendees(ctx context.Context) ([]model.Attendee, error) {
	var attendees []model.Attendee
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&attendees).Error; err != nil {
		return nil, fmt.Errorf("failed to load attendees: %w", err)
	}
	return attendees, nil
}

func (r *repository) CountAttendees(ctx context.Context) (int64, int64, error) {
	var total, checkedIn int64
	db := r.db.WithContext(ctx).Model(&model.Attendee{})
	if err := db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count attendees: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("checked_in = ?", true).Count(&checkedIn).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count checked-in attendees: %w", err)
	}
	return total, checkedIn, nil
}

// GroupCounts groups attendees by a text column. Values are trimmed before
// grouping; rows with no value are returned as the blank count.
func (r *repository) GroupCounts(ctx context.Context, column string) ([]GroupCount, int64, error) {
	if !reportColumns[column] {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}

	var rows []GroupCount
	err := r.db.WithContext(ctx).
		Model(&model.Attendee{}).
		Select("COALESCE(" + column + ", '') AS name, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to group attendees by %s: %w", column, err)
	}

	var blank int64
	merged := make(map[string]int64, len(rows))
	order := make([]string, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			blank += row.Count
			continue
		}
		if _, ok := merged[name]; !ok {
			order = append(order, name)
		}
		merged[name] += row.Count
	}

	out := make([]GroupCount, 0, len(order))
	for _, name := range order {
		out = append(out, GroupCount{Name: name, Count: merged[name]})
	}
	return out, blank, nil
}

func (r *repository) CheckinTimes(ctx context.Context) ([]time.Time, error) {
	var attendees []model.Attendee
	err := r.db.WithContext(ctx).
		Select("checked_in_at").
		Where("checked_in = ? AND checked_in_at IS NOT NULL", true).
		Order("checked_in_at ASC").
		Find(&attendees).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load check-in times: %w", err)
	}
	times := make([]time.Time, 0, len(attendees))
	for _, a := range attendees {
		if a.CheckedInAt != nil {
			times = append(times, *a.CheckedInAt)
		}
	}
	return times, nil
}
