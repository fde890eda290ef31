// Package wheel implements the prize wheel: a weighted random draw over
// staff-configured prizes, paid for with spins earned by leveling up.
package wheel

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
)

// Repository defines persistence operations for wheel prizes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, prize *models.WheelPrize) (*models.WheelPrize, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.WheelPrize, error)
	ListActive(ctx context.Context) ([]models.WheelPrize, error)
	ListAll(ctx context.Context) ([]models.WheelPrize, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wheel repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, prize *models.WheelPrize) (*models.WheelPrize, error) {
	if err := r.db.WithContext(ctx).Create(prize).Error; err != nil {
		return nil, err
	}
	return prize, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.WheelPrize, error) {
	var prize models.WheelPrize
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&prize).Error
	if err != nil {
		return nil, err
	}
	return &prize, nil
}

// ListActive returns active prizes in wheel order. The draw walks this
// slice, so the ordering is part of the randomizer's contract.
func (r *repository) ListActive(ctx context.Context) ([]models.WheelPrize, error) {
	var prizes []models.WheelPrize
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("position ASC").
		Find(&prizes).Error
	if err != nil {
		return nil, err
	}
	return prizes, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.WheelPrize, error) {
	var prizes []models.WheelPrize
	err := r.db.WithContext(ctx).
		Order("position ASC").
		Find(&prizes).Error
	if err != nil {
		return nil, err
	}
	return prizes, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.WheelPrize{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.WheelPrize{}).Error
}
