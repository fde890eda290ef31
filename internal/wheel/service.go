package wheel

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/levels"
	"github.com/denvolkov/playcart-backend/internal/users"
	"github.com/denvolkov/playcart-backend/internal/wallet"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SpinResult reports the prize that landed and the spins left afterwards.
type SpinResult struct {
	Prize          models.WheelPrize
	SpinsRemaining int
}

// Service runs the prize wheel.
type Service interface {
	Spin(ctx context.Context, userID uuid.UUID) (*SpinResult, error)
	ListPrizes(ctx context.Context) ([]models.WheelPrize, error)
}

type service struct {
	repo   Repository
	users  users.Repository
	wallet wallet.Ledger
	tx     txRunner
	logg   *logger.Logger
	roll   func() float64
}

// NewService builds the wheel service with the required dependencies.
func NewService(repo Repository, usersRepo users.Repository, ledger wallet.Ledger, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wheel repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
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
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &service{
		repo:   repo,
		users:  usersRepo,
		wallet: ledger,
		tx:     tx,
		logg:   logg,
		roll:   rng.Float64,
	}, nil
}

func (s *service) ListPrizes(ctx context.Context) ([]models.WheelPrize, error) {
	prizes, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prizes")
	}
	return prizes, nil
}

// Spin consumes one spin and applies a weighted random prize. The spin
// decrement and the payout commit together, so a failed payout refunds
// the spin.
func (s *service) Spin(ctx context.Context, userID uuid.UUID) (*SpinResult, error) {
	var result SpinResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		usersRepo := s.users.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		if err := usersRepo.ConsumeSpin(ctx, userID); err != nil {
			return err
		}

		prizes, err := repo.ListActive(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prizes")
		}
		prize, err := draw(prizes, s.roll)
		if err != nil {
			return err
		}

		if err := s.applyPrize(ctx, usersRepo, ledger, userID, prize); err != nil {
			return err
		}

		user, err := usersRepo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		result = SpinResult{Prize: *prize, SpinsRemaining: user.WheelSpinsAvailable}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"prize":   result.Prize.Label,
	})
	s.logg.Info(ctx, "wheel spin settled")
	return &result, nil
}

// draw picks a prize by walking the wheel in stored order and accumulating
// probability mass. Weights are relative and need not sum to one.
func draw(prizes []models.WheelPrize, roll func() float64) (*models.WheelPrize, error) {
	total := 0.0
	for _, prize := range prizes {
		total += prize.Probability
	}
	if len(prizes) == 0 || total <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no prizes configured")
	}

	target := roll() * total
	acc := 0.0
	for i := range prizes {
		acc += prizes[i].Probability
		// A slot wins once the walk reaches or exceeds the target.
		if target <= acc {
			return &prizes[i], nil
		}
	}
	// Float accumulation can leave the target a hair past the last slot.
	return &prizes[len(prizes)-1], nil
}

func (s *service) applyPrize(ctx context.Context, usersRepo users.Repository, ledger wallet.Ledger, userID uuid.UUID, prize *models.WheelPrize) error {
	switch prize.Type {
	case enums.RewardTypeCoins:
		return ledger.Credit(ctx, userID, prize.Amount)
	case enums.RewardTypeXP:
		user, err := usersRepo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		xp := int(prize.Amount.IntPart())
		newLevel := levels.LevelForXP(user.XP + xp)
		// Level-up spins are granted only at order settlement.
		return usersRepo.ApplyXP(ctx, userID, xp, newLevel, 0)
	case enums.RewardTypeSpin:
		return usersRepo.AddSpins(ctx, userID, int(prize.Amount.IntPart()))
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown prize type %q", prize.Type))
	}
}
