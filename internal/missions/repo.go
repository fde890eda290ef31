// Package missions tracks user activity against staff-defined goals.
// Progress is monotonic: it only grows, and a completed mission ignores
// further updates.
package missions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

// Repository defines persistence operations for missions and per-user progress.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, mission *models.Mission) (*models.Mission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Mission, error)
	ListActive(ctx context.Context) ([]models.Mission, error)
	ListActiveByType(ctx context.Context, missionType enums.MissionType) ([]models.Mission, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error

	FindOrCreateUserMission(ctx context.Context, userID, missionID uuid.UUID) (*models.UserMission, error)
	FindUserMission(ctx context.Context, userID, missionID uuid.UUID) (*models.UserMission, error)
	ListUserMissions(ctx context.Context, userID uuid.UUID) ([]models.UserMission, error)
	AddProgress(ctx context.Context, userMissionID uuid.UUID, amount decimal.Decimal) (bool, error)
	MarkCompleted(ctx context.Context, userMissionID uuid.UUID, target decimal.Decimal, at time.Time) (bool, error)
	MarkClaimed(ctx context.Context, userMissionID uuid.UUID, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a missions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, mission *models.Mission) (*models.Mission, error) {
	if err := r.db.WithContext(ctx).Create(mission).Error; err != nil {
		return nil, err
	}
	return mission, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Mission, error) {
	var mission models.Mission
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&mission).Error
	if err != nil {
		return nil, err
	}
	return &mission, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Mission, error) {
	var missionList []models.Mission
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&missionList).Error
	if err != nil {
		return nil, err
	}
	return missionList, nil
}

func (r *repository) ListActiveByType(ctx context.Context, missionType enums.MissionType) ([]models.Mission, error) {
	var missionList []models.Mission
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND type = ?", true, missionType).
		Order("created_at ASC").
		Find(&missionList).Error
	if err != nil {
		return nil, err
	}
	return missionList, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Mission{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mission_id = ?", id).Delete(&models.UserMission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Mission{}).Error
	})
}

func (r *repository) FindOrCreateUserMission(ctx context.Context, userID, missionID uuid.UUID) (*models.UserMission, error) {
	existing, err := r.FindUserMission(ctx, userID, missionID)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	record := &models.UserMission{
		ID:        uuid.New(),
		UserID:    userID,
		MissionID: missionID,
		Progress:  decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) FindUserMission(ctx context.Context, userID, missionID uuid.UUID) (*models.UserMission, error) {
	var record models.UserMission
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND mission_id = ?", userID, missionID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListUserMissions(ctx context.Context, userID uuid.UUID) ([]models.UserMission, error) {
	var records []models.UserMission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// AddProgress increments progress unless the mission is already completed.
// Returns false when the record was completed and nothing changed.
func (r *repository) AddProgress(ctx context.Context, userMissionID uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserMission{}).
		Where("id = ? AND completed = ?", userMissionID, false).
		Update("progress", gorm.Expr("progress + ?", amount))
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "add mission progress")
	}
	return res.RowsAffected > 0, nil
}

// MarkCompleted flips the sticky completed flag once progress has reached
// the target.
func (r *repository) MarkCompleted(ctx context.Context, userMissionID uuid.UUID, target decimal.Decimal, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserMission{}).
		Where("id = ? AND completed = ? AND progress >= ?", userMissionID, false, target).
		Updates(map[string]any{"completed": true, "completed_at": at})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark mission completed")
	}
	return res.RowsAffected > 0, nil
}

// MarkClaimed flips the sticky claimed flag; the guard makes a double
// claim lose the race.
func (r *repository) MarkClaimed(ctx context.Context, userMissionID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.UserMission{}).
		Where("id = ? AND completed = ? AND claimed = ?", userMissionID, true, false).
		Updates(map[string]any{"claimed": true, "claimed_at": at})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark mission claimed")
	}
	return res.RowsAffected > 0, nil
}
