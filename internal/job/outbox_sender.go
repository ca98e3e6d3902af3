package job

import (
	"context"
	"log"
	"time"

	"campuswallet/internal/config"
	"campuswallet/internal/infrastructure/mq"
	"campuswallet/internal/model"
	"campuswallet/internal/repository"

	"gorm.io/gorm"
)

// OutboxSender delivers committed wallet events to Kafka. Events are
// written to the outbox table in the same transaction as their ledger
// entry, so at-least-once delivery follows from polling PENDING rows.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	producer   *mq.Producer
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, producer *mq.Producer, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		producer:   producer,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   100 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] context cancelled, exiting")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] failed to fetch pending messages: %v", err)
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.producer.Send(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			log.Printf("[OutboxSender] failed to mark message sent: id=%d, err=%v", msg.ID, updateErr)
		}
		return
	}

	log.Printf("[OutboxSender] delivery failed: id=%d, type=%s, err=%v", msg.ID, msg.EventType, err)

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.Printf("[OutboxSender] failed to mark message failed: id=%d, err=%v", msg.ID, err)
		} else {
			log.Printf("[OutboxSender] message exceeded max retries, marked failed: id=%d", msg.ID)
		}
		return
	}

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.Printf("[OutboxSender] failed to bump retry count: id=%d, err=%v", msg.ID, err)
	}
}
