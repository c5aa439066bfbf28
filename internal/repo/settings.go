package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"checkinDesk/internal/model"
)

func (r *repository) ListSettings(ctx context.Context) ([]model.Setting, error) {
	var out []model.Setting
	if err := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return out, nil
}

// UpsertSettings inserts or overwrites settings by key in one statement.
func (r *repository) UpsertSettings(ctx context.Context, settings []model.Setting) error {
	if len(settings) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "category", "updated_at"}),
	}).Create(&settings).Error
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}
