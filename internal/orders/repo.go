package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		return query.Where("user_id = ?", userID)
	})
}

// ListClaimable returns orders a delivery worker may take: confirmed or
// processing with no assigned claimer.
func (r *repository) ListClaimable(ctx context.Context, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		return query.Where(
			"delivery_user_id IS NULL AND status IN ?",
			[]enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusProcessing},
		)
	})
}

func (r *repository) ListByDeliveryUser(ctx context.Context, deliveryUserID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		return query.Where("delivery_user_id = ?", deliveryUserID)
	})
}

func (r *repository) ListAll(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*OrderList, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		if status != nil {
			query = query.Where("status = ?", *status)
		}
		return query
	})
}

func (r *repository) list(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) (*OrderList, error) {
	query := scope(r.db.WithContext(ctx).Model(&models.Order{}).Preload("Items"))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var orderList []models.Order
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&orderList).Error
	if err != nil {
		return nil, err
	}

	result := &OrderList{Orders: orderList}
	if len(orderList) > limit {
		result.Orders = orderList[:limit]
		last := result.Orders[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (r *repository) AppendStatusEntry(ctx context.Context, entry *models.OrderStatusEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateStatusWhere applies updates only while the order is still in one of
// the expected statuses. Returns false when the guard did not match.
func (r *repository) UpdateStatusWhere(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimDelivery assigns the order to a delivery worker and forces status to
// processing, but only while no claimer is recorded. First writer wins.
func (r *repository) ClaimDelivery(ctx context.Context, orderID, deliveryUserID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where(
			"id = ? AND delivery_user_id IS NULL AND status IN ?",
			orderID,
			[]enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusProcessing},
		).
		Updates(map[string]any{
			"delivery_user_id": deliveryUserID,
			"status":           enums.OrderStatusProcessing,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderStatusEntry{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Order{}).Error
	})
}
