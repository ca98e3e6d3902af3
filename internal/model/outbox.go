package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// Wallet event types carried in outbox payloads.
const (
	EventEntryCompleted    = "wallet.entry.completed"
	EventTransferCompleted = "wallet.transfer.completed"
)

// OutboxMessage is written in the same transaction as the ledger entry it
// describes, then delivered to Kafka by the outbox sender job. This keeps
// event publishing atomic with the balance change without holding the
// account lock across a network call.
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	EventType  string    `gorm:"type:varchar(64);not null" json:"event_type"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
