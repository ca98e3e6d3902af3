package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalManagerMutualExclusion(t *testing.T) {
	m := NewLocalManager(2 * time.Second)
	ctx := context.Background()

	// Many goroutines bump a counter under the same account lock. Without
	// mutual exclusion the unsynchronized counter would lose increments.
	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(ctx, "ACC-1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestLocalManagerIndependentAccounts(t *testing.T) {
	m := NewLocalManager(50 * time.Millisecond)
	ctx := context.Background()

	release1, err := m.Acquire(ctx, "ACC-1")
	require.NoError(t, err)
	defer release1()

	// a different account must not be blocked
	release2, err := m.Acquire(ctx, "ACC-2")
	require.NoError(t, err)
	release2()
}

func TestLocalManagerTimeout(t *testing.T) {
	m := NewLocalManager(50 * time.Millisecond)
	ctx := context.Background()

	release, err := m.Acquire(ctx, "ACC-1")
	require.NoError(t, err)

	_, err = m.Acquire(ctx, "ACC-1")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// after release the lock is available again
	release()
	release2, err := m.Acquire(ctx, "ACC-1")
	require.NoError(t, err)
	release2()
}

func TestLocalManagerContextCancelled(t *testing.T) {
	m := NewLocalManager(5 * time.Second)

	release, err := m.Acquire(context.Background(), "ACC-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = m.Acquire(ctx, "ACC-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalManagerReleaseIdempotent(t *testing.T) {
	m := NewLocalManager(time.Second)
	ctx := context.Background()

	release, err := m.Acquire(ctx, "ACC-1")
	require.NoError(t, err)
	release()
	release() // second call must not double-free the token

	release2, err := m.Acquire(ctx, "ACC-1")
	require.NoError(t, err)
	release2()
}

func TestAcquireOrderedReleasesOnFailure(t *testing.T) {
	m := NewLocalManager(50 * time.Millisecond)
	ctx := context.Background()

	blockB, err := m.Acquire(ctx, "ACC-B")
	require.NoError(t, err)
	defer blockB()

	_, err = AcquireOrdered(ctx, m, "ACC-A", "ACC-B")
	require.ErrorIs(t, err, ErrLockTimeout)

	// ACC-A was taken first (ascending order) and must have been released
	releaseA, err := m.Acquire(ctx, "ACC-A")
	require.NoError(t, err)
	releaseA()
}

func TestAcquireOrderedOppositeDirectionsTerminate(t *testing.T) {
	m := NewLocalManager(5 * time.Second)
	ctx := context.Background()

	// Interleave A->B and B->A acquisitions. With caller-supplied ordering
	// this pattern deadlocks; with the fixed ascending order it must always
	// finish.
	const rounds = 200

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			release, err := AcquireOrdered(ctx, m, "ACC-A", "ACC-B")
			if !assert.NoError(t, err) {
				return
			}
			release()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			release, err := AcquireOrdered(ctx, m, "ACC-B", "ACC-A")
			if !assert.NoError(t, err) {
				return
			}
			release()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposite-direction lock loop did not terminate")
	}
}
