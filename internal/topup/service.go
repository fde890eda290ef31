package topup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/wallet"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service funds wallets via vouchers and reviewed requests.
type Service interface {
	CreateCode(ctx context.Context, code string, amount decimal.Decimal) (*models.TopUpCode, error)
	ListCodes(ctx context.Context) ([]models.TopUpCode, error)
	Redeem(ctx context.Context, userID uuid.UUID, code string) (*models.TopUpCode, error)

	Request(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, note *string) (*models.TopUpRequest, error)
	ListMyRequests(ctx context.Context, userID uuid.UUID) ([]models.TopUpRequest, error)
	ListRequests(ctx context.Context, status *enums.TopUpStatus) ([]models.TopUpRequest, error)
	Review(ctx context.Context, reviewerID, requestID uuid.UUID, approve bool) (*models.TopUpRequest, error)
}

type service struct {
	repo   Repository
	wallet wallet.Ledger
	tx     txRunner
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the topup service with the required dependencies.
func NewService(repo Repository, ledger wallet.Ledger, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("topup repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("wallet ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		wallet: ledger,
		tx:     tx,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// canonicalCode normalizes voucher codes the same way lookups do, so
// redemption is case-insensitive.
func canonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) CreateCode(ctx context.Context, code string, amount decimal.Decimal) (*models.TopUpCode, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	canonical := canonicalCode(code)
	if canonical == "" {
		canonical = strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	}

	voucher, err := s.repo.CreateCode(ctx, &models.TopUpCode{
		ID:     uuid.New(),
		Code:   canonical,
		Amount: amount,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create voucher")
	}
	return voucher, nil
}

func (s *service) ListCodes(ctx context.Context) ([]models.TopUpCode, error) {
	codes, err := s.repo.ListCodes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vouchers")
	}
	return codes, nil
}

// Redeem credits a voucher to the caller. The claim and the credit commit
// together; a voucher pays out exactly once.
func (s *service) Redeem(ctx context.Context, userID uuid.UUID, code string) (*models.TopUpCode, error) {
	var redeemed *models.TopUpCode
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		voucher, err := repo.FindCode(ctx, canonicalCode(code))
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load voucher")
		}
		if voucher.RedeemedBy != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "code already redeemed")
		}

		ok, err := repo.ClaimCode(ctx, voucher.ID, userID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "code already redeemed")
		}

		if err := ledger.Credit(ctx, userID, voucher.Amount); err != nil {
			return err
		}

		redeemed, err = repo.FindCode(ctx, voucher.Code)
		return err
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, userID.String())
	s.logg.Info(ctx, "voucher redeemed")
	return redeemed, nil
}

func (s *service) Request(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, note *string) (*models.TopUpRequest, error) {
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	request, err := s.repo.CreateRequest(ctx, &models.TopUpRequest{
		ID:     uuid.New(),
		UserID: userID,
		Amount: amount,
		Status: enums.TopUpStatusPending,
		Note:   note,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create top-up request")
	}
	return request, nil
}

func (s *service) ListMyRequests(ctx context.Context, userID uuid.UUID) ([]models.TopUpRequest, error) {
	requests, err := s.repo.ListRequestsByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top-up requests")
	}
	return requests, nil
}

func (s *service) ListRequests(ctx context.Context, status *enums.TopUpStatus) ([]models.TopUpRequest, error) {
	requests, err := s.repo.ListRequests(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top-up requests")
	}
	return requests, nil
}

// Review settles a pending request. Approval credits the wallet in the
// same transaction that flips the status.
func (s *service) Review(ctx context.Context, reviewerID, requestID uuid.UUID, approve bool) (*models.TopUpRequest, error) {
	var reviewed *models.TopUpRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		request, err := repo.FindRequest(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "top-up request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top-up request")
		}
		if request.Status != enums.TopUpStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "top-up request already reviewed")
		}

		status := enums.TopUpStatusRejected
		if approve {
			status = enums.TopUpStatusApproved
		}
		ok, err := repo.ResolveRequest(ctx, requestID, status, reviewerID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "top-up request already reviewed")
		}

		if approve {
			if err := ledger.Credit(ctx, request.UserID, request.Amount); err != nil {
				return err
			}
		}

		reviewed, err = repo.FindRequest(ctx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}
