package clientcache

import (
	"context"
	"errors"
	"fmt"

	"sladash-backend/internal/invalidation"

	"go.uber.org/zap"
)

// ErrMutationRejected wraps remote-call failures, timeouts included. The
// caller always sees it; an unreported failed write would leave the UI
// showing an optimistic value that is no longer true.
var ErrMutationRejected = errors.New("mutation rejected")

// LocalUpdater produces the optimistic value from the current cached one.
type LocalUpdater func(current interface{}, found bool) interface{}

// RemoteCall performs the network mutation. Pass a deadline context;
// timeouts count as failures for rollback purposes.
type RemoteCall func(ctx context.Context) error

// Mutation describes one optimistic write.
type Mutation struct {
	QueryKey     string
	LocalUpdater LocalUpdater
	RemoteCall   RemoteCall
	Scenario     invalidation.Scenario
	Params       invalidation.Params

	// RollbackKeys lists every key restored on failure. Defaults to
	// [QueryKey].
	RollbackKeys []string
}

type rollbackSnapshot struct {
	key    string
	value  interface{}
	exists bool
}

// Runner executes the optimistic mutation protocol against a Store and the
// invalidation catalog.
type Runner struct {
	store   *Store
	catalog *invalidation.Catalog
	logger  *zap.Logger
}

func NewRunner(store *Store, catalog *invalidation.Catalog, logger *zap.Logger) *Runner {
	return &Runner{store: store, catalog: catalog, logger: logger}
}

// Run applies the mutation optimistically, performs the remote call and
// reconciles.
//
// Rollback snapshots are taken at call time, after any earlier mutation's
// local update has been applied. Snapshots therefore form a last-known-good
// chain: a failed mutation rolls back only its own change, never an earlier
// in-flight mutation's still-valid one.
func (r *Runner) Run(ctx context.Context, m Mutation) error {
	rollbackKeys := m.RollbackKeys
	if len(rollbackKeys) == 0 {
		rollbackKeys = []string{m.QueryKey}
	}

	// Step 1: snapshot current values under every rollback key.
	snapshots := make([]rollbackSnapshot, 0, len(rollbackKeys))
	for _, key := range rollbackKeys {
		value, exists := r.store.Peek(key)
		snapshots = append(snapshots, rollbackSnapshot{key: key, value: value, exists: exists})
	}

	// Step 2: apply the local update synchronously. The UI observes the
	// change before any network round-trip.
	current, found := r.store.Peek(m.QueryKey)
	r.store.Set(m.QueryKey, m.LocalUpdater(current, found))

	// Step 3: the remote call.
	if err := m.RemoteCall(ctx); err != nil {
		// Step 5: restore every rollback key to its step-1 snapshot and
		// surface the error. The catalog stays untouched: nothing committed,
		// nothing is stale.
		for _, snap := range snapshots {
			r.store.Restore(snap.key, snap.value, snap.exists)
		}
		return fmt.Errorf("%w: %v", ErrMutationRejected, err)
	}

	// Step 4: resolve the blast radius and refetch. The optimistic value is
	// superseded by the refetch result, not assumed correct; the server may
	// have normalized the write differently.
	keys, err := r.catalog.Resolve(m.Scenario, m.Params)
	if err != nil {
		// Committed write with an unregistered scenario. Correctness over
		// precision: invalidate everything.
		r.logger.Error("scenario resolution failed after committed write",
			zap.String("scenario", string(m.Scenario)), zap.Error(err))
		r.store.InvalidateAll()
		return err
	}
	r.store.Invalidate(keys...)
	return nil
}
