package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/internal/pricing"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
)

// CreateOrderInput carries a checkout request into settlement.
type CreateOrderInput struct {
	UserID          uuid.UUID
	Items           []pricing.ItemRequest
	DeliveryAddress string
	PhoneNumber     string
	PromoCode       *string
	Comment         *string
}

// CreateOrderResult is returned to the buyer after settlement.
type CreateOrderResult struct {
	Order           *models.Order
	XPGained        int
	NewLevel        int
	LevelUp         bool
	DiscountApplied decimal.Decimal
}

// StatusUpdateInput captures a staff-driven lifecycle transition.
type StatusUpdateInput struct {
	OrderID        uuid.UUID
	Status         enums.OrderStatus
	Note           *string
	TrackingNumber *string
	ActorID        uuid.UUID
}
