// Package rewards manages the level reward catalog and one-time claims.
// A claim is recorded on the user row itself, so "already claimed" is a
// property of the account, not a join table.
package rewards

import (
	"context"

	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
)

// Repository defines persistence operations for the reward catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reward *models.Reward) (*models.Reward, error)
	FindByID(ctx context.Context, id int64) (*models.Reward, error)
	FindByRequiredLevel(ctx context.Context, level int) (*models.Reward, error)
	ListActive(ctx context.Context) ([]models.Reward, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a rewards repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reward *models.Reward) (*models.Reward, error) {
	if err := r.db.WithContext(ctx).Create(reward).Error; err != nil {
		return nil, err
	}
	return reward, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Reward, error) {
	var reward models.Reward
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&reward).Error
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

// FindByRequiredLevel resolves the reward gated on the exact level
// threshold. Claims are keyed by level, not by catalog row id.
func (r *repository) FindByRequiredLevel(ctx context.Context, level int) (*models.Reward, error) {
	var reward models.Reward
	err := r.db.WithContext(ctx).
		Where("required_level = ?", level).
		Order("id ASC").
		First(&reward).Error
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("required_level ASC, id ASC").
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Reward{}).Error
}
