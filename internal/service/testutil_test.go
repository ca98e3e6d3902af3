package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"campuswallet/internal/config"
	"campuswallet/internal/infrastructure/database"
	"campuswallet/internal/infrastructure/lock"
	"campuswallet/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db       *gorm.DB
	locks    lock.Manager
	cfg      *config.Config
	accounts *AccountService
	wallet   *WalletService
	transfer *TransferService
	stats    *StatsService
	entries  *repository.EntryRepository
	outbox   *repository.OutboxRepository
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	locks := lock.NewLocalManager(5 * time.Second)
	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				EntryCompleted:    "wallet-entry-completed",
				TransferCompleted: "wallet-transfer-completed",
			},
		},
		Business: config.BusinessConfig{
			MaxRetryCount:   3,
			DefaultPageSize: 20,
		},
	}

	return &testEnv{
		db:       db,
		locks:    locks,
		cfg:      cfg,
		accounts: NewAccountService(db),
		wallet:   NewWalletService(db, locks, cfg),
		transfer: NewTransferService(db, locks, cfg),
		stats:    NewStatsService(db),
		entries:  repository.NewEntryRepository(db),
		outbox:   repository.NewOutboxRepository(db),
	}
}

// seedAccount onboards an account and optionally funds it with one top-up.
func (env *testEnv) seedAccount(t *testing.T, accountID, balance string) {
	t.Helper()
	ctx := context.Background()

	_, err := env.accounts.Create(ctx, accountID)
	require.NoError(t, err)

	amount := decimal.RequireFromString(balance)
	if amount.IsPositive() {
		_, err = env.wallet.Credit(ctx, &CreditRequest{
			AccountID:   accountID,
			Amount:      amount,
			Description: "initial load",
		})
		require.NoError(t, err)
	}
}

func (env *testEnv) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	balance, err := env.accounts.GetBalance(context.Background(), accountID)
	require.NoError(t, err)
	return balance
}

func (env *testEnv) entryCount(t *testing.T, accountID string) int64 {
	t.Helper()
	_, total, err := env.entries.ListByAccount(context.Background(), accountID, repository.HistoryFilter{}, 1, 1)
	require.NoError(t, err)
	return total
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
