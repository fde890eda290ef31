// Package users persists accounts and the XP/level/spin counters the
// gamification layer mutates.
package users

import (
	"context"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/pagination"
)

// List is one page of users plus the cursor for the next page.
type List struct {
	Users      []models.User
	NextCursor string
}

// Repository defines persistence operations for user accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, params pagination.Params) (*List, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ApplyXP(ctx context.Context, id uuid.UUID, xpDelta, newLevel, spinsDelta int) error
	AddSpins(ctx context.Context, id uuid.UUID, delta int) error
	ConsumeSpin(ctx context.Context, id uuid.UUID) error
	AppendClaimedReward(ctx context.Context, id uuid.UUID, seen []int64, level int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) (*List, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	limit := pagination.NormalizeLimit(params.Limit)
	var userList []models.User
	err = query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&userList).Error
	if err != nil {
		return nil, err
	}

	result := &List{Users: userList}
	if len(userList) > limit {
		result.Users = userList[:limit]
		last := result.Users[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.User{}).Error
}

// ApplyXP advances the XP counter, stamps the recomputed level, and grants
// level-up spins in a single UPDATE.
func (r *repository) ApplyXP(ctx context.Context, id uuid.UUID, xpDelta, newLevel, spinsDelta int) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"xp":                    gorm.Expr("xp + ?", xpDelta),
			"level":                 newLevel,
			"wheel_spins_available": gorm.Expr("wheel_spins_available + ?", spinsDelta),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply xp")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (r *repository) AddSpins(ctx context.Context, id uuid.UUID, delta int) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("wheel_spins_available", gorm.Expr("wheel_spins_available + ?", delta))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "add spins")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

// ConsumeSpin decrements the spin counter guarded by a positive balance so
// it can never go negative under concurrent spins.
func (r *repository) ConsumeSpin(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND wheel_spins_available > 0", id).
		Update("wheel_spins_available", gorm.Expr("wheel_spins_available - 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "consume spin")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "no spins available")
	}
	return nil
}

// AppendClaimedReward adds a level threshold to the claimed set only while
// the set still matches the snapshot the caller read. Zero rows means a
// concurrent claim got there first.
func (r *repository) AppendClaimedReward(ctx context.Context, id uuid.UUID, seen []int64, level int64) (bool, error) {
	next := append(append(pq.Int64Array{}, seen...), level)

	query := r.db.WithContext(ctx).Model(&models.User{})
	if len(seen) == 0 {
		query = query.Where("id = ? AND (claimed_rewards IS NULL OR claimed_rewards = ?)", id, pq.Int64Array{})
	} else {
		query = query.Where("id = ? AND claimed_rewards = ?", id, pq.Int64Array(seen))
	}

	res := query.Update("claimed_rewards", next)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "record claim")
	}
	return res.RowsAffected > 0, nil
}
