package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"campuswallet/internal/model"
	"campuswallet/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferMovesFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "STU-A", "100.00")
	env.seedAccount(t, "STU-B", "20.00")

	result, err := env.transfer.Transfer(ctx, &TransferRequest{
		SenderID:    "STU-A",
		RecipientID: "STU-B",
		Amount:      amt("50.00"),
		Description: "split dinner",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.TransferNo, "TRF"))
	assert.Equal(t, "50.00", env.balance(t, "STU-A").StringFixed(2))
	assert.Equal(t, "70.00", env.balance(t, "STU-B").StringFixed(2))

	out := result.SenderEntry
	in := result.RecipientEntry
	assert.Equal(t, model.KindTransferOut, out.Kind)
	assert.Equal(t, model.KindTransferIn, in.Kind)
	assert.Equal(t, result.TransferNo, out.TransferNo)
	assert.Equal(t, result.TransferNo, in.TransferNo)
	assert.Equal(t, "STU-B", out.CounterpartyRef)
	assert.Equal(t, "STU-A", in.CounterpartyRef)
	assert.Equal(t, "100.00", out.BalanceBefore.StringFixed(2))
	assert.Equal(t, "50.00", out.BalanceAfter.StringFixed(2))
	assert.Equal(t, "20.00", in.BalanceBefore.StringFixed(2))
	assert.Equal(t, "70.00", in.BalanceAfter.StringFixed(2))

	// the pair is reconstructable by its transfer number, debit side first
	pair, err := env.transfer.GetByTransferNo(ctx, result.TransferNo)
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.Equal(t, model.KindTransferOut, pair[0].Kind)
	assert.Equal(t, model.KindTransferIn, pair[1].Kind)
}

func TestTransferWritesOutboxEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "STU-A", "100.00")
	env.seedAccount(t, "STU-B", "0")

	result, err := env.transfer.Transfer(ctx, &TransferRequest{
		SenderID:    "STU-A",
		RecipientID: "STU-B",
		Amount:      amt("25.00"),
	})
	require.NoError(t, err)

	messages, err := env.outbox.GetPendingMessages(ctx, 10)
	require.NoError(t, err)

	var found bool
	for _, msg := range messages {
		if msg.EventType == model.EventTransferCompleted {
			found = true
			assert.Equal(t, "wallet-transfer-completed", msg.Topic)
			assert.Equal(t, result.TransferNo, msg.MessageKey)
			assert.Contains(t, msg.Payload, `"amount":"25.00"`)
			assert.Contains(t, msg.Payload, `"sender_account":"STU-A"`)
		}
	}
	assert.True(t, found, "transfer event missing from outbox")
}

func TestTransferInsufficientBalanceWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "STU-A", "10.00")
	env.seedAccount(t, "STU-B", "0")

	countA := env.entryCount(t, "STU-A")
	countB := env.entryCount(t, "STU-B")

	_, err := env.transfer.Transfer(ctx, &TransferRequest{
		SenderID:    "STU-A",
		RecipientID: "STU-B",
		Amount:      amt("10.01"),
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	assert.Equal(t, "10.00", env.balance(t, "STU-A").StringFixed(2))
	assert.Equal(t, "0.00", env.balance(t, "STU-B").StringFixed(2))
	assert.Equal(t, countA, env.entryCount(t, "STU-A"))
	assert.Equal(t, countB, env.entryCount(t, "STU-B"))
}

func TestTransferRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "STU-A", "100.00")
	env.seedAccount(t, "STU-B", "0")
	env.seedAccount(t, "STU-FROZEN", "0")
	require.NoError(t, env.accounts.SetActive(ctx, "STU-FROZEN", false))

	_, err := env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-A", RecipientID: "STU-A", Amount: amt("10.00"),
	})
	assert.ErrorIs(t, err, ErrSelfTransfer)

	_, err = env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-A", RecipientID: "STU-B", Amount: amt("-1.00"),
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-A", RecipientID: "STU-MISSING", Amount: amt("10.00"),
	})
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	_, err = env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-A", RecipientID: "STU-FROZEN", Amount: amt("10.00"),
	})
	assert.ErrorIs(t, err, ErrRecipientInactive)

	_, err = env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-FROZEN", RecipientID: "STU-A", Amount: amt("10.00"),
	})
	assert.ErrorIs(t, err, ErrAccountInactive)

	_, err = env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-MISSING", RecipientID: "STU-A", Amount: amt("10.00"),
	})
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	assert.Equal(t, "100.00", env.balance(t, "STU-A").StringFixed(2))
}

// Opposite-direction transfers between the same pair must neither deadlock
// nor lose money: lock acquisition is ordered by account id, so A->B and
// B->A cannot wait on each other forever.
func TestOppositeDirectionTransfersConserveTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "STU-A", "500.00")
	env.seedAccount(t, "STU-B", "500.00")

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := env.transfer.Transfer(ctx, &TransferRequest{
				SenderID: "STU-A", RecipientID: "STU-B", Amount: amt("1.00"),
			})
			if !assert.NoError(t, err) {
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := env.transfer.Transfer(ctx, &TransferRequest{
				SenderID: "STU-B", RecipientID: "STU-A", Amount: amt("1.00"),
			})
			if !assert.NoError(t, err) {
				return
			}
		}
	}()
	wg.Wait()

	balanceA := env.balance(t, "STU-A")
	balanceB := env.balance(t, "STU-B")
	assert.Equal(t, "1000.00", balanceA.Add(balanceB).StringFixed(2))
}

// The ledger stays replayable across transfers: per-account entry sums match
// stored balances on both sides.
func TestTransferLedgerReplay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "STU-A", "100.00")
	env.seedAccount(t, "STU-B", "20.00")

	_, err := env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-A", RecipientID: "STU-B", Amount: amt("33.33"),
	})
	require.NoError(t, err)
	_, err = env.transfer.Transfer(ctx, &TransferRequest{
		SenderID: "STU-B", RecipientID: "STU-A", Amount: amt("3.33"),
	})
	require.NoError(t, err)

	for _, accountID := range []string{"STU-A", "STU-B"} {
		derived, err := env.entries.SumByAccount(ctx, accountID)
		require.NoError(t, err)
		stored := env.balance(t, accountID)
		assert.True(t, stored.Equal(derived), "%s: stored=%s derived=%s", accountID, stored, derived)
	}
}

func TestTransferNumbersAreDistinct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAccount(t, "STU-A", "100.00")
	env.seedAccount(t, "STU-B", "0")

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		result, err := env.transfer.Transfer(ctx, &TransferRequest{
			SenderID: "STU-A", RecipientID: "STU-B", Amount: amt("1.00"),
		})
		require.NoError(t, err)
		assert.False(t, seen[result.TransferNo], "duplicate transfer number %s", result.TransferNo)
		seen[result.TransferNo] = true
	}
}
