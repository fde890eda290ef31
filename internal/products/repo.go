// Package products manages the catalog listings orders are priced from.
package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/pagination"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

// Filters narrows catalog listings.
type Filters struct {
	Category   string
	Tag        string
	OnlyActive bool
}

// List is one page of products plus the cursor for the next page.
type List struct {
	Products   []models.Product
	NextCursor string
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	ApplyRating(ctx context.Context, id uuid.UUID, avg float64, count int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Product{}, nil
	}
	var productList []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&productList).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(productList))
	for _, product := range productList {
		byID[product.ID] = product
	}
	return byID, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.Tag != "" {
		query = query.Where("? = ANY(tags)", filters.Tag)
	}
	if filters.OnlyActive {
		query = query.Where("is_active = ?", true)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var productList []models.Product
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&productList).Error
	if err != nil {
		return nil, err
	}

	result := &List{Products: productList}
	if len(productList) > limit {
		result.Products = productList[:limit]
		last := result.Products[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Product{}).Error
}

// DecrementStock reduces stock only while enough remains.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}
	return nil
}

func (r *repository) ApplyRating(ctx context.Context, id uuid.UUID, avg float64, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{"rating_avg": avg, "rating_count": count}).Error
}
