package rewards

import (
	"context"
	"fmt"

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

// View pairs a catalog entry with the caller's claim state.
type View struct {
	Reward   models.Reward
	Unlocked bool
	Claimed  bool
}

// Service exposes the level reward catalog and claims. Claims are keyed
// by level threshold, matching the claimed set on the user row.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]View, error)
	Claim(ctx context.Context, userID uuid.UUID, level int) (*models.Reward, error)
}

type service struct {
	repo   Repository
	users  users.Repository
	wallet wallet.Ledger
	tx     txRunner
	logg   *logger.Logger
}

// NewService builds the rewards service with the required dependencies.
func NewService(repo Repository, usersRepo users.Repository, ledger wallet.Ledger, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
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
	return &service{
		repo:   repo,
		users:  usersRepo,
		wallet: ledger,
		tx:     tx,
		logg:   logg,
	}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]View, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	catalog, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rewards")
	}

	views := make([]View, 0, len(catalog))
	for _, reward := range catalog {
		views = append(views, View{
			Reward:   reward,
			Unlocked: user.Level >= reward.RequiredLevel,
			Claimed:  user.HasClaimedReward(int64(reward.RequiredLevel)),
		})
	}
	return views, nil
}

// Claim hands out the reward gated on the given level once. The claimed
// set records the level threshold; the marker is a conditional append so
// concurrent claims of the same level cannot both pay out.
func (s *service) Claim(ctx context.Context, userID uuid.UUID, level int) (*models.Reward, error) {
	var claimed *models.Reward
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		usersRepo := s.users.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		reward, err := repo.FindByRequiredLevel(ctx, level)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no reward configured for this level")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reward")
		}
		if !reward.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no reward configured for this level")
		}

		user, err := usersRepo.FindByID(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		if user.Level < reward.RequiredLevel {
			return pkgerrors.New(pkgerrors.CodeConflict, "level too low for this reward")
		}
		if user.HasClaimedReward(int64(level)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "reward already claimed")
		}

		ok, err := usersRepo.AppendClaimedReward(ctx, userID, user.ClaimedRewards, int64(level))
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "reward already claimed")
		}

		switch reward.Type {
		case enums.RewardTypeCoins:
			if err := ledger.Credit(ctx, userID, reward.Amount); err != nil {
				return err
			}
		case enums.RewardTypeXP:
			xp := int(reward.Amount.IntPart())
			newLevel := levels.LevelForXP(user.XP + xp)
			if err := usersRepo.ApplyXP(ctx, userID, xp, newLevel, 0); err != nil {
				return err
			}
		case enums.RewardTypeSpin:
			if err := usersRepo.AddSpins(ctx, userID, int(reward.Amount.IntPart())); err != nil {
				return err
			}
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown reward type %q", reward.Type))
		}

		claimed = reward
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}
