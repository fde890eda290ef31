package missions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

// UserMissionView pairs a mission definition with the caller's progress.
type UserMissionView struct {
	Mission  models.Mission
	Progress *models.UserMission
}

// Service accumulates mission progress and hands out rewards.
type Service interface {
	Record(ctx context.Context, userID uuid.UUID, missionType enums.MissionType, amount decimal.Decimal) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]UserMissionView, error)
	Claim(ctx context.Context, userID, missionID uuid.UUID) (*models.UserMission, error)
}

type service struct {
	repo   Repository
	users  users.Repository
	wallet wallet.Ledger
	tx     txRunner
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the mission service with the required dependencies.
func NewService(repo Repository, usersRepo users.Repository, ledger wallet.Ledger, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("missions repository required")
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
		now:    time.Now,
	}, nil
}

// Record advances every active mission of the matching type the user
// qualifies for. Completed missions are skipped; completion flips the
// instant progress reaches the target.
func (s *service) Record(ctx context.Context, userID uuid.UUID, missionType enums.MissionType, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "progress amount cannot be negative")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	missionList, err := s.repo.ListActiveByType(ctx, missionType)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list missions")
	}

	for _, mission := range missionList {
		if user.Level < mission.MinLevel {
			continue
		}
		if err := s.advance(ctx, userID, mission, amount); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) advance(ctx context.Context, userID uuid.UUID, mission models.Mission, amount decimal.Decimal) error {
	record, err := s.repo.FindOrCreateUserMission(ctx, userID, mission.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mission progress")
	}
	if record.Completed {
		return nil
	}

	advanced, err := s.repo.AddProgress(ctx, record.ID, amount)
	if err != nil {
		return err
	}
	if !advanced {
		// Completed concurrently; nothing more to add.
		return nil
	}

	if _, err := s.repo.MarkCompleted(ctx, record.ID, mission.Target, s.now()); err != nil {
		return err
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserMissionView, error) {
	missionList, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list missions")
	}
	records, err := s.repo.ListUserMissions(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list mission progress")
	}

	byMission := make(map[uuid.UUID]*models.UserMission, len(records))
	for i := range records {
		byMission[records[i].MissionID] = &records[i]
	}

	views := make([]UserMissionView, 0, len(missionList))
	for _, mission := range missionList {
		views = append(views, UserMissionView{
			Mission:  mission,
			Progress: byMission[mission.ID],
		})
	}
	return views, nil
}

// Claim grants the configured reward once per completed mission.
func (s *service) Claim(ctx context.Context, userID, missionID uuid.UUID) (*models.UserMission, error) {
	var claimed *models.UserMission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		usersRepo := s.users.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		mission, err := repo.FindByID(ctx, missionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "mission not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mission")
		}

		record, err := repo.FindUserMission(ctx, userID, missionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeConflict, "mission not completed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load mission progress")
		}
		if !record.Completed {
			return pkgerrors.New(pkgerrors.CodeConflict, "mission not completed")
		}
		if record.Claimed {
			return pkgerrors.New(pkgerrors.CodeConflict, "mission reward already claimed")
		}

		ok, err := repo.MarkClaimed(ctx, record.ID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "mission reward already claimed")
		}

		if err := grantReward(ctx, usersRepo, ledger, userID, mission.RewardType, mission.RewardAmount); err != nil {
			return err
		}

		claimed, err = repo.FindUserMission(ctx, userID, missionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// grantReward applies a coins, xp, or spin payout. XP grants recompute the
// level but never award spins; level-up spins are an order settlement
// grant only.
func grantReward(ctx context.Context, usersRepo users.Repository, ledger wallet.Ledger, userID uuid.UUID, rewardType enums.RewardType, amount decimal.Decimal) error {
	switch rewardType {
	case enums.RewardTypeCoins:
		return ledger.Credit(ctx, userID, amount)
	case enums.RewardTypeXP:
		user, err := usersRepo.FindByID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}
		xp := int(amount.IntPart())
		newLevel := levels.LevelForXP(user.XP + xp)
		return usersRepo.ApplyXP(ctx, userID, xp, newLevel, 0)
	case enums.RewardTypeSpin:
		return usersRepo.AddSpins(ctx, userID, int(amount.IntPart()))
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown reward type %q", rewardType))
	}
}
