// Package reviews stores product ratings, one per buyer per product.
package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
)

// Aggregate is the recomputed rating summary for a product.
type Aggregate struct {
	Avg   float64
	Count int
}

// Repository defines persistence operations for reviews.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AggregateForProduct(ctx context.Context, productID uuid.UUID) (*Aggregate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reviews repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (r *repository) FindByProductAndUser(ctx context.Context, productID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	var reviewList []models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviewList).Error
	if err != nil {
		return nil, err
	}
	return reviewList, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Review{}).Error
}

func (r *repository) AggregateForProduct(ctx context.Context, productID uuid.UUID) (*Aggregate, error) {
	var row struct {
		Avg   *float64
		Count int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("AVG(rating) AS avg, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	agg := &Aggregate{Count: row.Count}
	if row.Avg != nil {
		agg.Avg = *row.Avg
	}
	return agg, nil
}
