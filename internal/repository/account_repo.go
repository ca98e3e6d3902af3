package repository

import (
	"context"
	"errors"

	"campuswallet/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrConcurrentUpdate = errors.New("account was modified concurrently, retry")
)

// AccountRepository is the only component that writes the balance column.
// Callers must hold the account's exclusive lock around every
// read-check-write sequence; the version guard on UpdateBalance is a second
// line of defense against lost updates, not a substitute for the lock.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// GetOrCreate makes onboarding idempotent: a second create for the same
// account id returns the existing row untouched.
func (r *AccountRepository) GetOrCreate(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := r.GetByAccountID(ctx, nil, accountID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	newAccount := &model.Account{
		AccountID: accountID,
		Balance:   decimal.Zero,
		IsActive:  true,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error
	if err != nil {
		return nil, err
	}

	return r.GetByAccountID(ctx, nil, accountID)
}

func (r *AccountRepository) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID string) (*model.Account, error) {
	if tx == nil {
		tx = r.db
	}
	var account model.Account
	err := tx.WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateBalance writes the new balance computed by the caller. The write is
// guarded by the version read under the account lock; zero rows affected
// means another writer got in between, which only happens if the locking
// contract was violated (or a lock expired mid-operation).
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *gorm.DB, accountID string, newBalance decimal.Decimal, version int) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_id = ? AND version = ?", accountID, version).
		Updates(map[string]interface{}{
			"balance": newBalance,
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// SetActive soft-deactivates or reactivates an account. Accounts are never
// deleted.
func (r *AccountRepository) SetActive(ctx context.Context, accountID string, active bool) error {
	if _, err := r.GetByAccountID(ctx, nil, accountID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_id = ?", accountID).
		Update("is_active", active).Error
}

// List pages through all accounts, oldest first. Used by the reconcile job.
func (r *AccountRepository) List(ctx context.Context, offset, limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}
