package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	"github.com/denvolkov/playcart-backend/pkg/pagination"
)

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// Repository defines persistence operations for orders and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListClaimable(ctx context.Context, params pagination.Params) (*OrderList, error)
	ListByDeliveryUser(ctx context.Context, deliveryUserID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*OrderList, error)
	AppendStatusEntry(ctx context.Context, entry *models.OrderStatusEntry) error
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateStatusWhere(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, updates map[string]any) (bool, error)
	ClaimDelivery(ctx context.Context, orderID, deliveryUserID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
