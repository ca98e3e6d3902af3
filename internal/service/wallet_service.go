package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"campuswallet/internal/config"
	"campuswallet/internal/infrastructure/lock"
	"campuswallet/internal/model"
	"campuswallet/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService coordinates single-account balance changes. Every credit or
// debit runs the same protocol: validate the amount, take the account's
// exclusive lock, then inside one scoped transaction load the account,
// check preconditions, write the balance and append the ledger entry plus
// the outbox event. A failure at any step after the lock rolls everything
// back; no partial state is ever visible.
type WalletService struct {
	db          *gorm.DB
	locks       lock.Manager
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	entryRepo   *repository.EntryRepository
	outboxRepo  *repository.OutboxRepository
}

func NewWalletService(db *gorm.DB, locks lock.Manager, cfg *config.Config) *WalletService {
	return &WalletService{
		db:          db,
		locks:       locks,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		entryRepo:   repository.NewEntryRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type CreditRequest struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
	OperatorRef string // staff member who initiated the top-up, if any
}

type DebitRequest struct {
	AccountID   string
	Amount      decimal.Decimal
	Description string
	Reference   string // e.g. canteen order reference
}

// validateAmount enforces the precision contract: strictly positive, at
// most two decimal places.
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// Credit adds amount to the account and records a TOP_UP entry.
func (s *WalletService) Credit(ctx context.Context, req *CreditRequest) (*model.LedgerEntry, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *model.LedgerEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByAccountID(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return ErrAccountInactive
		}

		newBalance := account.Balance.Add(req.Amount)
		if err := s.accountRepo.UpdateBalance(ctx, tx, req.AccountID, newBalance, account.Version); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry = &model.LedgerEntry{
			EntryID:         uuid.NewString(),
			AccountID:       req.AccountID,
			Kind:            model.KindTopUp,
			Amount:          req.Amount,
			BalanceBefore:   account.Balance,
			BalanceAfter:    newBalance,
			Description:     req.Description,
			CounterpartyRef: req.OperatorRef,
			Status:          model.EntryStatusCompleted,
		}
		if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		return s.appendEntryEvent(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Wallet] credit committed: account=%s amount=%s entry=%s",
		req.AccountID, req.Amount.StringFixed(2), entry.EntryID)
	return entry, nil
}

// Debit subtracts amount from the account and records a PURCHASE entry.
// The balance check runs after the lock is acquired; checking earlier would
// let two concurrent debits both pass on a stale read and overdraw.
func (s *WalletService) Debit(ctx context.Context, req *DebitRequest) (*model.LedgerEntry, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *model.LedgerEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByAccountID(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return ErrAccountInactive
		}
		if account.Balance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}

		newBalance := account.Balance.Sub(req.Amount)
		if err := s.accountRepo.UpdateBalance(ctx, tx, req.AccountID, newBalance, account.Version); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		entry = &model.LedgerEntry{
			EntryID:         uuid.NewString(),
			AccountID:       req.AccountID,
			Kind:            model.KindPurchase,
			Amount:          req.Amount,
			BalanceBefore:   account.Balance,
			BalanceAfter:    newBalance,
			Description:     req.Description,
			CounterpartyRef: req.Reference,
			Status:          model.EntryStatusCompleted,
		}
		if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		return s.appendEntryEvent(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Wallet] debit committed: account=%s amount=%s entry=%s",
		req.AccountID, req.Amount.StringFixed(2), entry.EntryID)
	return entry, nil
}

// History lists the account's ledger entries newest first.
func (s *WalletService) History(ctx context.Context, accountID string, filter repository.HistoryFilter, page, pageSize int) ([]*model.LedgerEntry, int64, error) {
	if _, err := s.accountRepo.GetByAccountID(ctx, nil, accountID); err != nil {
		return nil, 0, err
	}
	return s.entryRepo.ListByAccount(ctx, accountID, filter, page, pageSize)
}

func (s *WalletService) GetEntry(ctx context.Context, entryID string) (*model.LedgerEntry, error) {
	return s.entryRepo.GetByEntryID(ctx, entryID)
}

// CancelEntry is the administrative audit override: it marks a completed
// entry CANCELLED without re-applying any balance change.
func (s *WalletService) CancelEntry(ctx context.Context, entryID string) error {
	return s.entryRepo.UpdateStatus(ctx, entryID, model.EntryStatusCompleted, model.EntryStatusCancelled)
}

// appendEntryEvent writes the outbox row for a committed entry in the same
// transaction, so the event exists iff the balance change does.
func (s *WalletService) appendEntryEvent(ctx context.Context, tx *gorm.DB, entry *model.LedgerEntry) error {
	payload := map[string]interface{}{
		"entry_id":      entry.EntryID,
		"account_id":    entry.AccountID,
		"kind":          entry.Kind,
		"amount":        entry.Amount.StringFixed(2),
		"balance_after": entry.BalanceAfter.StringFixed(2),
		"occurred_at":   time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	msg := &model.OutboxMessage{
		MessageKey: entry.AccountID,
		Topic:      s.cfg.Kafka.Topic.EntryCompleted,
		EventType:  model.EventEntryCompleted,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}
