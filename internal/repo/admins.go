package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"checkinDesk/internal/model"
)

func (r *repository) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	err := r.db.WithContext(ctx).
		Select("id", "username", "created_at").
		Order("created_at DESC").
		Find(&admins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

func (r *repository) GetAdminByID(ctx context.Context, id string) (*model.Admin, error) {
	return r.findAdmin(ctx, "id = ?", id)
}

func (r *repository) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	return r.findAdmin(ctx, "username = ?", username)
}

func (r *repository) findAdmin(ctx context.Context, cond string, arg any) (*model.Admin, error) {
	var a model.Admin
	err := r.db.WithContext(ctx).Where(cond, arg).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return &a, nil
}

func (r *repository) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Admin{}).Where("username = ?", admin.Username).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if n > 0 {
			return ErrUsernameTaken
		}
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}
		return nil
	})
}

func (r *repository) UpdateAdmin(ctx context.Context, id string, fields map[string]any) (*model.Admin, error) {
	if len(fields) > 0 {
		res := r.db.WithContext(ctx).Model(&model.Admin{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update admin: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrAdminNotFound
		}
	}
	return r.GetAdminByID(ctx, id)
}

func (r *repository) DeleteAdmin(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Admin{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAdminNotFound
	}
	return nil
}
