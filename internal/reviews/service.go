package reviews

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/products"
	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type missionRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, missionType enums.MissionType, amount decimal.Decimal) error
}

// Service accepts ratings and keeps product aggregates in sync.
type Service interface {
	Create(ctx context.Context, userID, productID uuid.UUID, rating int, text *string) (*models.Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error)
	Delete(ctx context.Context, id, productID uuid.UUID) error
}

type service struct {
	repo     Repository
	products products.Repository
	missions missionRecorder
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds the reviews service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, missions missionRecorder, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if missions == nil {
		return nil, fmt.Errorf("mission recorder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		products: productsRepo,
		missions: missions,
		tx:       tx,
		logg:     logg,
	}, nil
}

// Create stores the rating and recomputes the product aggregate in one
// transaction. Mission progress is recorded after commit.
func (s *service) Create(ctx context.Context, userID, productID uuid.UUID, rating int, text *string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	var created *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		if _, err := productsRepo.FindByID(ctx, productID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		if _, err := repo.FindByProductAndUser(ctx, productID, userID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load review")
		}

		review, err := repo.Create(ctx, &models.Review{
			ID:        uuid.New(),
			ProductID: productID,
			UserID:    userID,
			Rating:    rating,
			Text:      text,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		if err := s.refreshAggregate(ctx, repo, productsRepo, productID); err != nil {
			return err
		}

		created = review
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.missions.Record(ctx, userID, enums.MissionTypeReview, decimal.NewFromInt(1)); err != nil {
		s.logg.Error(ctx, "record review mission progress", err)
	}
	return created, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	reviewList, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	return reviewList, nil
}

func (s *service) Delete(ctx context.Context, id, productID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete review")
		}
		return s.refreshAggregate(ctx, repo, productsRepo, productID)
	})
}

func (s *service) refreshAggregate(ctx context.Context, repo Repository, productsRepo products.Repository, productID uuid.UUID) error {
	agg, err := repo.AggregateForProduct(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
	}
	if err := productsRepo.ApplyRating(ctx, productID, agg.Avg, agg.Count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply rating")
	}
	return nil
}
