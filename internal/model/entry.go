package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry kinds. Amount is always stored positive; the kind implies the sign.
const (
	KindTopUp       = "TOP_UP"       // staff-initiated credit
	KindPurchase    = "PURCHASE"     // canteen payment debit
	KindTransferOut = "TRANSFER_OUT" // sender side of a peer transfer
	KindTransferIn  = "TRANSFER_IN"  // recipient side of a peer transfer
)

// IsCredit reports whether kind increases the balance.
func IsCredit(kind string) bool {
	return kind == KindTopUp || kind == KindTransferIn
}

// Entry statuses. Entries are written COMPLETED at commit time; the other
// statuses exist for administrative audit overrides and a status change
// never re-applies a balance change.
const (
	EntryStatusPending   = "PENDING"
	EntryStatusCompleted = "COMPLETED"
	EntryStatusFailed    = "FAILED"
	EntryStatusCancelled = "CANCELLED"
)

var validEntryStatusTransitions = map[string][]string{
	EntryStatusPending:   {EntryStatusCompleted, EntryStatusFailed, EntryStatusCancelled},
	EntryStatusCompleted: {EntryStatusCancelled},
}

// CanTransitionEntryStatus reports whether an administrative status change
// from currentStatus to targetStatus is allowed.
func CanTransitionEntryStatus(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := validEntryStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// LedgerEntry records one completed balance change.
//
// Ledger design principles:
// 1. Append only: entries are never updated or deleted, except the narrow
//    administrative status override above.
// 2. Every entry snapshots the balance before and after, so any account's
//    balance can be re-derived and audited from its entries alone.
// 3. A transfer writes exactly two entries sharing one transfer_no.
type LedgerEntry struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryID         string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"entry_id"` // random uuid
	AccountID       string          `gorm:"type:varchar(64);index;not null" json:"account_id"`
	Kind            string          `gorm:"type:varchar(20);index;not null" json:"kind"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"` // positive, sign implied by kind
	BalanceBefore   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_before"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	Description     string          `gorm:"type:varchar(256)" json:"description"`
	CounterpartyRef string          `gorm:"type:varchar(64)" json:"counterparty_ref"` // other account for transfers, operator for staff ops
	TransferNo      string          `gorm:"type:varchar(64);index" json:"transfer_no"` // shared by both entries of one transfer
	Status          string          `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entry"
}
