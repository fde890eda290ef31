// Package topup funds wallets through single-use voucher codes and
// staff-reviewed manual requests.
package topup

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

// Repository defines persistence operations for voucher codes and
// top-up requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCode(ctx context.Context, code *models.TopUpCode) (*models.TopUpCode, error)
	FindCode(ctx context.Context, code string) (*models.TopUpCode, error)
	ListCodes(ctx context.Context) ([]models.TopUpCode, error)
	ClaimCode(ctx context.Context, codeID, userID uuid.UUID, at time.Time) (bool, error)

	CreateRequest(ctx context.Context, request *models.TopUpRequest) (*models.TopUpRequest, error)
	FindRequest(ctx context.Context, id uuid.UUID) (*models.TopUpRequest, error)
	ListRequests(ctx context.Context, status *enums.TopUpStatus) ([]models.TopUpRequest, error)
	ListRequestsByUser(ctx context.Context, userID uuid.UUID) ([]models.TopUpRequest, error)
	ResolveRequest(ctx context.Context, id uuid.UUID, status enums.TopUpStatus, reviewerID uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a topup repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCode(ctx context.Context, code *models.TopUpCode) (*models.TopUpCode, error) {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return nil, err
	}
	return code, nil
}

func (r *repository) FindCode(ctx context.Context, code string) (*models.TopUpCode, error) {
	var voucher models.TopUpCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&voucher).Error
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func (r *repository) ListCodes(ctx context.Context) ([]models.TopUpCode, error) {
	var codes []models.TopUpCode
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// ClaimCode stamps the redeemer guarded on the voucher being unredeemed,
// so exactly one caller wins.
func (r *repository) ClaimCode(ctx context.Context, codeID, userID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TopUpCode{}).
		Where("id = ? AND redeemed_by IS NULL", codeID).
		Updates(map[string]any{"redeemed_by": userID, "redeemed_at": at})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "claim voucher")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateRequest(ctx context.Context, request *models.TopUpRequest) (*models.TopUpRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.TopUpRequest, error) {
	var request models.TopUpRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListRequests(ctx context.Context, status *enums.TopUpStatus) ([]models.TopUpRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.TopUpRequest{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var requests []models.TopUpRequest
	err := query.
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) ListRequestsByUser(ctx context.Context, userID uuid.UUID) ([]models.TopUpRequest, error) {
	var requests []models.TopUpRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// ResolveRequest moves a pending request to its final status. The guard
// makes review a one-shot decision.
func (r *repository) ResolveRequest(ctx context.Context, id uuid.UUID, status enums.TopUpStatus, reviewerID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.TopUpRequest{}).
		Where("id = ? AND status = ?", id, enums.TopUpStatusPending).
		Updates(map[string]any{"status": status, "reviewed_by": reviewerID, "reviewed_at": at})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "resolve top-up request")
	}
	return res.RowsAffected > 0, nil
}
