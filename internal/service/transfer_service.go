package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"campuswallet/internal/config"
	"campuswallet/internal/infrastructure/lock"
	"campuswallet/internal/model"
	"campuswallet/internal/repository"
	"campuswallet/pkg/idgen"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransferService atomically moves funds between two accounts. Both locks
// are always taken in ascending account id order, never in sender-first
// order, so opposite-direction transfers cannot deadlock. Both balance
// writes and both ledger entries commit in one scoped transaction; a
// failure anywhere rolls the whole move back.
type TransferService struct {
	db          *gorm.DB
	locks       lock.Manager
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	entryRepo   *repository.EntryRepository
	outboxRepo  *repository.OutboxRepository
}

func NewTransferService(db *gorm.DB, locks lock.Manager, cfg *config.Config) *TransferService {
	return &TransferService{
		db:          db,
		locks:       locks,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		entryRepo:   repository.NewEntryRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type TransferRequest struct {
	SenderID    string
	RecipientID string
	Amount      decimal.Decimal
	Description string
}

type TransferResult struct {
	TransferNo     string
	SenderEntry    *model.LedgerEntry
	RecipientEntry *model.LedgerEntry
}

func (s *TransferService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.SenderID == req.RecipientID {
		return nil, ErrSelfTransfer
	}

	release, err := lock.AcquireOrdered(ctx, s.locks, req.SenderID, req.RecipientID)
	if err != nil {
		return nil, err
	}
	defer release()

	transferNo := idgen.GenerateTransferNo()
	result := &TransferResult{TransferNo: transferNo}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		sender, err := s.accountRepo.GetByAccountID(ctx, tx, req.SenderID)
		if err != nil {
			return err
		}
		if !sender.IsActive {
			return ErrAccountInactive
		}

		recipient, err := s.accountRepo.GetByAccountID(ctx, tx, req.RecipientID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrRecipientNotFound
			}
			return err
		}
		if !recipient.IsActive {
			return ErrRecipientInactive
		}

		if sender.Balance.LessThan(req.Amount) {
			return ErrInsufficientBalance
		}

		senderBalance := sender.Balance.Sub(req.Amount)
		recipientBalance := recipient.Balance.Add(req.Amount)

		if err := s.accountRepo.UpdateBalance(ctx, tx, req.SenderID, senderBalance, sender.Version); err != nil {
			return fmt.Errorf("update sender balance: %w", err)
		}
		if err := s.accountRepo.UpdateBalance(ctx, tx, req.RecipientID, recipientBalance, recipient.Version); err != nil {
			return fmt.Errorf("update recipient balance: %w", err)
		}

		result.SenderEntry = &model.LedgerEntry{
			EntryID:         uuid.NewString(),
			AccountID:       req.SenderID,
			Kind:            model.KindTransferOut,
			Amount:          req.Amount,
			BalanceBefore:   sender.Balance,
			BalanceAfter:    senderBalance,
			Description:     req.Description,
			CounterpartyRef: req.RecipientID,
			TransferNo:      transferNo,
			Status:          model.EntryStatusCompleted,
		}
		result.RecipientEntry = &model.LedgerEntry{
			EntryID:         uuid.NewString(),
			AccountID:       req.RecipientID,
			Kind:            model.KindTransferIn,
			Amount:          req.Amount,
			BalanceBefore:   recipient.Balance,
			BalanceAfter:    recipientBalance,
			Description:     req.Description,
			CounterpartyRef: req.SenderID,
			TransferNo:      transferNo,
			Status:          model.EntryStatusCompleted,
		}

		if err := s.entryRepo.Create(ctx, tx, result.SenderEntry); err != nil {
			return fmt.Errorf("append sender entry: %w", err)
		}
		if err := s.entryRepo.Create(ctx, tx, result.RecipientEntry); err != nil {
			return fmt.Errorf("append recipient entry: %w", err)
		}

		return s.appendTransferEvent(ctx, tx, result, req.Amount)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Transfer] committed: no=%s from=%s to=%s amount=%s",
		transferNo, req.SenderID, req.RecipientID, req.Amount.StringFixed(2))
	return result, nil
}

// GetByTransferNo reconstructs the entry pair of a past transfer.
func (s *TransferService) GetByTransferNo(ctx context.Context, transferNo string) ([]*model.LedgerEntry, error) {
	return s.entryRepo.GetByTransferNo(ctx, transferNo)
}

func (s *TransferService) appendTransferEvent(ctx context.Context, tx *gorm.DB, result *TransferResult, amount decimal.Decimal) error {
	payload := map[string]interface{}{
		"transfer_no":        result.TransferNo,
		"sender_account":     result.SenderEntry.AccountID,
		"recipient_account":  result.RecipientEntry.AccountID,
		"sender_entry_id":    result.SenderEntry.EntryID,
		"recipient_entry_id": result.RecipientEntry.EntryID,
		"amount":             amount.StringFixed(2),
		"occurred_at":        time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	msg := &model.OutboxMessage{
		MessageKey: result.TransferNo,
		Topic:      s.cfg.Kafka.Topic.TransferCompleted,
		EventType:  model.EventTransferCompleted,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}
