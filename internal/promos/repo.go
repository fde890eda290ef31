// Package promos stores redeemable checkout discount codes. Codes are
// canonicalized to uppercase on write and lookup.
package promos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

// Repository defines persistence operations for promo codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error)
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	List(ctx context.Context) ([]models.PromoCode, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementUsage(ctx context.Context, code string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promo repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Canonical returns the stored form of a promo code.
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *repository) Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	promo.Code = Canonical(promo.Code)
	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("code = ?", Canonical(code)).
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) List(ctx context.Context) ([]models.PromoCode, error) {
	var promoList []models.PromoCode
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&promoList).Error
	if err != nil {
		return nil, err
	}
	return promoList, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PromoCode{}).Error
}

// IncrementUsage bumps used_count while the cap still allows it. The guard
// lives in the WHERE clause so concurrent redemptions never under-count.
func (r *repository) IncrementUsage(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).
		Model(&models.PromoCode{}).
		Where("code = ? AND is_active = ? AND (max_uses = 0 OR used_count < max_uses)", Canonical(code), true).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment promo usage")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "promo code no longer redeemable")
	}
	return nil
}
