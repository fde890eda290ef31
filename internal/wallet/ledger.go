// Package wallet holds the user balance ledger. Debits are conditional
// single-row updates so two concurrent checkouts cannot both pass a stale
// balance check.
package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/pkg/db/models"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

// Ledger defines balance mutations. Debit fails on insufficient funds;
// Credit only fails when the user row is missing.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type ledger struct {
	db *gorm.DB
}

// NewLedger builds a wallet ledger bound to the provided DB.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{db: tx}
}

// Debit subtracts amount guarded by the current balance in a single
// conditional UPDATE. Zero rows affected means the balance check failed.
func (l *ledger) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount cannot be negative")
	}
	res := l.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "debit balance")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient balance")
	}
	return nil
}

func (l *ledger) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount cannot be negative")
	}
	res := l.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "credit balance")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return nil
}

func (l *ledger) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var user models.User
	err := l.db.WithContext(ctx).
		Select("balance").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
	}
	return user.Balance, nil
}
