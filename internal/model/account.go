package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a wallet's current balance.
// The balance column is the only mutable shared state in the system: it is
// written exclusively by the wallet/transfer services, inside a scoped
// transaction, while the account's exclusive lock is held.
type Account struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"account_id"` // opaque id assigned at onboarding, immutable
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`    // never negative
	IsActive  bool            `gorm:"not null;default:true" json:"is_active"`                  // accounts are soft-deactivated, never deleted
	Version   int             `gorm:"not null;default:0" json:"version"`                       // bumped on every balance write
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
