package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/levels"
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

// Profile is the account view returned to the owner: the row plus the
// derived level progress numbers.
type Profile struct {
	User            models.User
	XPToNextLevel   int
	NextLevelAt     int
	DiscountPercent int
}

// Service exposes account reads and the staff-side account edits.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*Profile, error)
	List(ctx context.Context, params pagination.Params) (*List, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.User, error)
	GrantXP(ctx context.Context, id uuid.UUID, xpDelta int) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	wallet    wallet.Ledger
	tx        txRunner
	logg      *logger.Logger
	levelsCfg config.LevelsConfig
}

// NewService builds the users service with the required dependencies.
func NewService(repo Repository, ledger wallet.Ledger, tx txRunner, logg *logger.Logger, levelsCfg config.LevelsConfig) (Service, error) {
	if repo == nil {
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
		repo:      repo,
		wallet:    ledger,
		tx:        tx,
		logg:      logg,
		levelsCfg: levelsCfg,
	}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.loadUser(ctx, s.repo, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:            *user,
		XPToNextLevel:   levels.XPToNextLevel(user.XP),
		NextLevelAt:     levels.TotalXPForLevel(user.Level + 1),
		DiscountPercent: levels.DiscountPercent(user.Level, s.levelsCfg.MaxDiscountPercent),
	}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*List, error) {
	list, err := s.repo.List(ctx, params)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.loadUser(ctx, s.repo, id)
}

func (s *service) UpdateRole(ctx context.Context, id uuid.UUID, role enums.Role) (*models.User, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}
	if err := s.repo.Update(ctx, id, map[string]any{"role": role}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	return s.loadUser(ctx, s.repo, id)
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	if err := s.repo.Update(ctx, id, map[string]any{"is_active": active}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user")
	}
	return s.loadUser(ctx, s.repo, id)
}

// AdjustBalance applies a signed staff correction through the ledger, so
// a negative delta cannot push the balance below zero.
func (s *service) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.User, error) {
	if delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}

	var user *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledger := s.wallet.WithTx(tx)

		var err error
		if delta.IsPositive() {
			err = ledger.Credit(ctx, id, delta)
		} else {
			err = ledger.Debit(ctx, id, delta.Neg())
		}
		if err != nil {
			return err
		}

		user, err = s.loadUser(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GrantXP adds XP and restamps the level, awarding level-up spins the
// same way checkout does.
func (s *service) GrantXP(ctx context.Context, id uuid.UUID, xpDelta int) (*models.User, error) {
	if xpDelta <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "xp delta must be positive")
	}

	var user *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := s.loadUser(ctx, repo, id)
		if err != nil {
			return err
		}

		newLevel := levels.LevelForXP(current.XP + xpDelta)
		if err := repo.ApplyXP(ctx, id, xpDelta, newLevel, newLevel-current.Level); err != nil {
			return err
		}

		user, err = s.loadUser(ctx, repo, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadUser(ctx, s.repo, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	return nil
}

func (s *service) loadUser(ctx context.Context, repo Repository, id uuid.UUID) (*models.User, error) {
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
