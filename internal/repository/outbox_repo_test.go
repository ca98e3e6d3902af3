package repository

import (
	"context"
	"testing"

	"campuswallet/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOutboxMessage(key string) *model.OutboxMessage {
	return &model.OutboxMessage{
		MessageKey: key,
		Topic:      "wallet-entry-completed",
		EventType:  model.EventEntryCompleted,
		Payload:    `{"account_id":"` + key + `"}`,
		Status:     model.OutboxStatusPending,
	}
}

func TestOutboxDeliveryLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	first := newOutboxMessage("STU-1")
	second := newOutboxMessage("STU-2")
	require.NoError(t, repo.Create(ctx, nil, first))
	require.NoError(t, repo.Create(ctx, nil, second))

	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	// a sent message leaves the pending queue
	require.NoError(t, repo.MarkAsSent(ctx, first.ID))
	pending, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	// delivery failures bump the retry count but keep the message pending
	require.NoError(t, repo.IncrementRetryCount(ctx, second.ID))
	pending, err = repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
}

func TestOutboxFailedMessagesAreReportable(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	stuck := newOutboxMessage("STU-1")
	healthy := newOutboxMessage("STU-2")
	require.NoError(t, repo.Create(ctx, nil, stuck))
	require.NoError(t, repo.Create(ctx, nil, healthy))

	require.NoError(t, repo.MarkAsFailed(ctx, stuck.ID))

	// failed messages leave the delivery queue but stay visible for the
	// operational report
	pending, err := repo.GetPendingMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, healthy.ID, pending[0].ID)

	failed, err := repo.GetFailedMessages(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, stuck.ID, failed[0].ID)
	assert.Equal(t, model.OutboxStatusFailed, failed[0].Status)
	assert.Equal(t, 1, failed[0].RetryCount)
}
