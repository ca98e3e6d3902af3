package service

import (
	"context"

	"campuswallet/internal/model"
	"campuswallet/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountService handles the account lifecycle: created once at onboarding
// with a zero balance, soft-deactivated instead of deleted.
type AccountService struct {
	accountRepo *repository.AccountRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		accountRepo: repository.NewAccountRepository(db),
	}
}

// Create onboards an account. Calling it again for the same id returns the
// existing account unchanged.
func (s *AccountService) Create(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accountRepo.GetOrCreate(ctx, accountID)
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accountRepo.GetByAccountID(ctx, nil, accountID)
}

// GetBalance is a non-locking read for display purposes; it does not
// participate in any mutation sequence.
func (s *AccountService) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByAccountID(ctx, nil, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// SetActive soft-deactivates or reactivates an account. A deactivated
// account keeps its balance and history; it just rejects new operations.
func (s *AccountService) SetActive(ctx context.Context, accountID string, active bool) error {
	return s.accountRepo.SetActive(ctx, accountID, active)
}
