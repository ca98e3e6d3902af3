package lock

import (
	"context"
	"errors"
	"sort"
)

var ErrLockTimeout = errors.New("timed out acquiring account lock")

// Manager hands out exclusive per-account locks. At most one in-flight
// wallet operation may hold a given account's lock; the lock is the single
// serialization point for the read-check-write sequence on a balance.
type Manager interface {
	// Acquire blocks until the account's lock is held or the wait budget is
	// exhausted, in which case it returns ErrLockTimeout with nothing held.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, accountID string) (release func(), err error)
}

// AcquireOrdered takes the locks for all accountIDs in ascending id order,
// regardless of the order the caller passed them in. The fixed global order
// is what makes opposite-direction transfers (A->B and B->A) deadlock-free.
// On any failure every lock already held is released and nothing is leaked.
func AcquireOrdered(ctx context.Context, m Manager, accountIDs ...string) (func(), error) {
	sorted := append([]string(nil), accountIDs...)
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, id := range sorted {
		release, err := m.Acquire(ctx, id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
