package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denvolkov/playcart-backend/pkg/enums"
)

// Order represents a settled customer purchase.
type Order struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	Status           enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal         decimal.Decimal    `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount         decimal.Decimal    `gorm:"column:discount;type:numeric(12,2);not null;default:0"`
	Total            decimal.Decimal    `gorm:"column:total;type:numeric(12,2);not null"`
	TotalXP          int                `gorm:"column:total_xp;not null;default:0"`
	PromoCode        *string            `gorm:"column:promo_code"`
	ShippingAddress  string             `gorm:"column:shipping_address;not null"`
	PhoneNumber      string             `gorm:"column:phone_number;not null"`
	Comment          *string            `gorm:"column:comment"`
	DeliveryUserID   *uuid.UUID         `gorm:"column:delivery_user_id;type:uuid;index"`
	TrackingNumber   *string            `gorm:"column:tracking_number"`
	RefundedAmount   *decimal.Decimal   `gorm:"column:refunded_amount;type:numeric(12,2)"`
	ReturnReason     *string            `gorm:"column:return_reason"`
	ReturnRequested  *time.Time         `gorm:"column:return_requested_at"`
	DeliveredAt      *time.Time         `gorm:"column:delivered_at"`
	Items            []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory    []OrderStatusEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one priced line inside an order.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Size        *string         `gorm:"column:size"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	XPReward    int             `gorm:"column:xp_reward;not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// OrderStatusEntry is an append-only record of a lifecycle transition.
type OrderStatusEntry struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	ActorID   *uuid.UUID        `gorm:"column:actor_id;type:uuid"`
	Note      *string           `gorm:"column:note"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}
