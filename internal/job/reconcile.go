package job

import (
	"context"
	"log"
	"time"

	"campuswallet/internal/config"
	"campuswallet/internal/repository"

	"gorm.io/gorm"
)

// ReconcileJob periodically re-derives every account's balance from its
// ledger entries and compares it with the stored balance. The two must
// always agree; a mismatch means a corrupted ledger and is logged loudly
// for operators. The job never repairs balances on its own. Each run also
// reports outbox events that exhausted their delivery retries, so stuck
// events surface in the same operational log as drifted balances.
type ReconcileJob struct {
	accountRepo *repository.AccountRepository
	entryRepo   *repository.EntryRepository
	outboxRepo  *repository.OutboxRepository
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
}

func NewReconcileJob(db *gorm.DB, cfg *config.Config) *ReconcileJob {
	interval := time.Duration(cfg.Business.ReconcileInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ReconcileJob{
		accountRepo: repository.NewAccountRepository(db),
		entryRepo:   repository.NewEntryRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		stopCh:      make(chan struct{}),
		interval:    interval,
		batchSize:   200,
	}
}

func (j *ReconcileJob) Start(ctx context.Context) {
	log.Println("[Reconcile] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Reconcile] context cancelled, exiting")
			return
		case <-j.stopCh:
			log.Println("[Reconcile] stopped")
			return
		case <-ticker.C:
			j.checkAllAccounts(ctx)
			j.reportStuckEvents(ctx)
		}
	}
}

func (j *ReconcileJob) Stop() {
	close(j.stopCh)
}

func (j *ReconcileJob) checkAllAccounts(ctx context.Context) {
	checked := 0
	drifted := 0

	for offset := 0; ; offset += j.batchSize {
		accounts, err := j.accountRepo.List(ctx, offset, j.batchSize)
		if err != nil {
			log.Printf("[Reconcile] failed to list accounts: %v", err)
			return
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			derived, err := j.entryRepo.SumByAccount(ctx, account.AccountID)
			if err != nil {
				log.Printf("[Reconcile] failed to sum entries: account=%s, err=%v", account.AccountID, err)
				continue
			}
			checked++

			// An account can legitimately be mid-operation between the two
			// reads; a drift report only matters if it persists across runs.
			if !derived.Equal(account.Balance) {
				drifted++
				log.Printf("[Reconcile] BALANCE DRIFT: account=%s stored=%s derived=%s",
					account.AccountID, account.Balance.StringFixed(2), derived.StringFixed(2))
			}
		}
	}

	if drifted > 0 {
		log.Printf("[Reconcile] run complete: checked=%d drifted=%d", checked, drifted)
	}
}

// reportStuckEvents logs outbox messages the sender gave up on. They stay
// FAILED until an operator requeues or discards them.
func (j *ReconcileJob) reportStuckEvents(ctx context.Context) {
	messages, err := j.outboxRepo.GetFailedMessages(ctx, j.batchSize)
	if err != nil {
		log.Printf("[Reconcile] failed to list stuck outbox events: %v", err)
		return
	}

	for _, msg := range messages {
		log.Printf("[Reconcile] STUCK OUTBOX EVENT: id=%d type=%s key=%s retries=%d",
			msg.ID, msg.EventType, msg.MessageKey, msg.RetryCount)
	}
}
