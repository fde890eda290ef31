package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/levels"
	"github.com/denvolkov/playcart-backend/internal/pricing"
	"github.com/denvolkov/playcart-backend/internal/products"
	"github.com/denvolkov/playcart-backend/internal/promos"
	"github.com/denvolkov/playcart-backend/internal/users"
	"github.com/denvolkov/playcart-backend/internal/wallet"
	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
	"github.com/denvolkov/playcart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// missionRecorder accumulates user activity after settlement commits.
type missionRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, missionType enums.MissionType, amount decimal.Decimal) error
}

// Service governs order settlement and the order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	Track(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	RequestReturn(ctx context.Context, orderID, userID uuid.UUID, reason *string) error
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.Order, error)
	ApproveReturn(ctx context.Context, orderID, adminID uuid.UUID) (*models.Order, error)
	ClaimDelivery(ctx context.Context, orderID, courierID uuid.UUID) (*models.Order, error)
	ListClaimable(ctx context.Context, params pagination.Params) (*OrderList, error)
	ListAssigned(ctx context.Context, courierID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListAll(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*OrderList, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo      Repository
	users     users.Repository
	products  products.Repository
	promos    promos.Repository
	wallet    wallet.Ledger
	tx        txRunner
	missions  missionRecorder
	logg      *logger.Logger
	ordersCfg config.OrdersConfig
	levelsCfg config.LevelsConfig
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(
	repo Repository,
	usersRepo users.Repository,
	productsRepo products.Repository,
	promosRepo promos.Repository,
	ledger wallet.Ledger,
	tx txRunner,
	missions missionRecorder,
	logg *logger.Logger,
	ordersCfg config.OrdersConfig,
	levelsCfg config.LevelsConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if promosRepo == nil {
		return nil, fmt.Errorf("promos repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if missions == nil {
		return nil, fmt.Errorf("mission recorder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		users:     usersRepo,
		products:  productsRepo,
		promos:    promosRepo,
		wallet:    ledger,
		tx:        tx,
		missions:  missions,
		logg:      logg,
		ordersCfg: ordersCfg,
		levelsCfg: levelsCfg,
		now:       time.Now,
	}, nil
}

// Create settles a checkout in one transaction: re-price the cart, debit
// the wallet, persist the order, credit XP and level-up spins, and burn
// promo usage. Mission progress is recorded after commit.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	var result *CreateOrderResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		usersRepo := s.users.WithTx(tx)
		productsRepo := s.products.WithTx(tx)
		promosRepo := s.promos.WithTx(tx)
		ordersRepo := s.repo.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		user, err := usersRepo.FindByID(ctx, input.UserID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		var promo *models.PromoCode
		if input.PromoCode != nil && *input.PromoCode != "" {
			promo, err = promosRepo.FindByCode(ctx, *input.PromoCode)
			if err != nil && err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
			}
		}

		productIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		catalog, err := productsRepo.FindByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		quote, err := pricing.PriceCart(pricing.Input{
			Items:              input.Items,
			Products:           catalog,
			UserLevel:          user.Level,
			MaxDiscountPercent: s.levelsCfg.MaxDiscountPercent,
			Promo:              promo,
			Now:                s.now(),
		})
		if err != nil {
			return err
		}

		for _, line := range quote.Lines {
			if err := productsRepo.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if err := ledger.Debit(ctx, user.ID, quote.Total); err != nil {
			return err
		}

		order := buildOrder(input, quote, s.now())
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}

		newLevel := levels.LevelForXP(user.XP + quote.TotalXP)
		spinsGained := newLevel - user.Level
		if err := usersRepo.ApplyXP(ctx, user.ID, quote.TotalXP, newLevel, spinsGained); err != nil {
			return err
		}

		if quote.PromoApplied {
			if err := promosRepo.IncrementUsage(ctx, promo.Code); err != nil {
				return err
			}
		}

		result = &CreateOrderResult{
			Order:           order,
			XPGained:        quote.TotalXP,
			NewLevel:        newLevel,
			LevelUp:         newLevel > user.Level,
			DiscountApplied: quote.DiscountApplied,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordPurchaseMissions(ctx, input.UserID, result.Order.Total)
	return result, nil
}

// Mission progress is best-effort: a failure is logged, never fatal to a
// committed order.
func (s *service) recordPurchaseMissions(ctx context.Context, userID uuid.UUID, total decimal.Decimal) {
	one := decimal.NewFromInt(1)
	updates := []struct {
		missionType enums.MissionType
		amount      decimal.Decimal
	}{
		{enums.MissionTypeOrdersCount, one},
		{enums.MissionTypeSpendAmount, total},
		{enums.MissionTypePurchase, one},
	}
	for _, update := range updates {
		if err := s.missions.Record(ctx, userID, update.missionType, update.amount); err != nil {
			s.logg.Error(ctx, "mission progress update failed", err)
		}
	}
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) Track(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

// RequestReturn opens the return path. The 24-hour window and the status
// guard are both enforced; the status flip is conditional so a racing
// second request cannot double-apply.
func (s *service) RequestReturn(ctx context.Context, orderID, userID uuid.UUID, reason *string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}

		switch order.Status {
		case enums.OrderStatusReturned, enums.OrderStatusReturnPending:
			return pkgerrors.New(pkgerrors.CodeConflict, "return already requested")
		case enums.OrderStatusCancelled:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled orders cannot be returned")
		}

		now := s.now()
		if now.Sub(order.CreatedAt) > s.ordersCfg.ReturnWindow {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return window has expired")
		}

		eligible := []enums.OrderStatus{
			enums.OrderStatusPending,
			enums.OrderStatusConfirmed,
			enums.OrderStatusProcessing,
			enums.OrderStatusShipped,
			enums.OrderStatusDelivered,
		}
		updated, err := repo.UpdateStatusWhere(ctx, orderID, eligible, map[string]any{
			"status":              enums.OrderStatusReturnPending,
			"return_reason":       reason,
			"return_requested_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request return")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed, return not possible")
		}

		return s.appendHistory(ctx, repo, orderID, enums.OrderStatusReturnPending, &userID, reason)
	})
}

// UpdateStatus is the staff transition: target must be a core lifecycle
// status and reachable from the current one per the transition table.
func (s *service) UpdateStatus(ctx context.Context, input StatusUpdateInput) (*models.Order, error) {
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", input.Status))
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := validateTransition(order.Status, input.Status); err != nil {
			return err
		}

		updates := map[string]any{"status": input.Status}
		if input.TrackingNumber != nil && *input.TrackingNumber != "" {
			updates["tracking_number"] = input.TrackingNumber
		}
		if input.Status == enums.OrderStatusDelivered {
			updates["delivered_at"] = s.now()
		}

		ok, err := repo.UpdateStatusWhere(ctx, input.OrderID, []enums.OrderStatus{order.Status}, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		if err := s.appendHistory(ctx, repo, input.OrderID, input.Status, &input.ActorID, input.Note); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, input.OrderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApproveReturn flips return_pending to returned and credits 90% of the
// order total back to the buyer. The status guard makes double approval an
// error rather than a double refund.
func (s *service) ApproveReturn(ctx context.Context, orderID, adminID uuid.UUID) (*models.Order, error) {
	var approved *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusReturnPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting return approval")
		}

		rate := decimal.NewFromInt(int64(s.ordersCfg.RefundRatePercent)).Div(decimal.NewFromInt(100))
		refund := order.Total.Mul(rate).Round(2)

		ok, err := repo.UpdateStatusWhere(ctx, orderID,
			[]enums.OrderStatus{enums.OrderStatusReturnPending},
			map[string]any{
				"status":          enums.OrderStatusReturned,
				"refunded_amount": refund,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve return")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return already processed")
		}

		if err := ledger.Credit(ctx, order.UserID, refund); err != nil {
			return err
		}

		note := fmt.Sprintf("Refunded %s", refund.StringFixed(2))
		if err := s.appendHistory(ctx, repo, orderID, enums.OrderStatusReturned, &adminID, &note); err != nil {
			return err
		}

		approved, err = repo.FindByID(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// ClaimDelivery is first-writer-wins on delivery_user_id. A repeat claim by
// the recorded claimer is an idempotent no-op; a claim by anyone else
// conflicts.
func (s *service) ClaimDelivery(ctx context.Context, orderID, courierID uuid.UUID) (*models.Order, error) {
	var claimed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.ClaimDelivery(ctx, orderID, courierID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim delivery")
		}

		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}

		if !ok {
			if order.DeliveryUserID != nil && *order.DeliveryUserID == courierID {
				claimed = order
				return nil
			}
			if order.DeliveryUserID != nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already taken")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not claimable")
		}

		note := "Taken for delivery"
		if err := s.appendHistory(ctx, repo, orderID, enums.OrderStatusProcessing, &courierID, &note); err != nil {
			return err
		}
		claimed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *service) ListClaimable(ctx context.Context, params pagination.Params) (*OrderList, error) {
	return s.repo.ListClaimable(ctx, params)
}

func (s *service) ListAssigned(ctx context.Context, courierID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return s.repo.ListByDeliveryUser(ctx, courierID, params)
}

func (s *service) ListAll(ctx context.Context, params pagination.Params, status *enums.OrderStatus) (*OrderList, error) {
	return s.repo.ListAll(ctx, params, status)
}

// Delete is an operational override, not a lifecycle step: it removes the
// order from any state.
func (s *service) Delete(ctx context.Context, orderID uuid.UUID) error {
	if _, err := s.loadOrder(ctx, s.repo, orderID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, orderID uuid.UUID, status enums.OrderStatus, actorID *uuid.UUID, note *string) error {
	resolved := statusNote(status, note)
	entry := &models.OrderStatusEntry{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  status,
		ActorID: actorID,
		Note:    &resolved,
	}
	if err := repo.AppendStatusEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if len(strings.TrimSpace(input.DeliveryAddress)) < 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery address is too short")
	}
	if len(strings.TrimSpace(input.PhoneNumber)) < 7 {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone number is too short")
	}
	return nil
}

func buildOrder(input CreateOrderInput, quote *pricing.Quote, now time.Time) *models.Order {
	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Size:        line.Size,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			XPReward:    line.XPReward,
			LineTotal:   line.LineTotal.Round(2),
		})
	}

	var promoCode *string
	if quote.PromoApplied && input.PromoCode != nil {
		canonical := promos.Canonical(*input.PromoCode)
		promoCode = &canonical
	}

	createdNote := statusNote(enums.OrderStatusPending, nil)
	return &models.Order{
		ID:              orderID,
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		Subtotal:        quote.Subtotal,
		Discount:        quote.DiscountApplied,
		Total:           quote.Total,
		TotalXP:         quote.TotalXP,
		PromoCode:       promoCode,
		ShippingAddress: strings.TrimSpace(input.DeliveryAddress),
		PhoneNumber:     strings.TrimSpace(input.PhoneNumber),
		Comment:         input.Comment,
		Items:           items,
		StatusHistory: []models.OrderStatusEntry{{
			ID:        uuid.New(),
			OrderID:   orderID,
			Status:    enums.OrderStatusPending,
			ActorID:   &input.UserID,
			Note:      &createdNote,
			CreatedAt: now,
		}},
	}
}
