// Package holder implements the shared snapshot holder (component F):
// lock-free reads, a mutex serializing writers, and the cross-core
// mutate_on_all_shards coordination primitive.
package holder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/devrev/pairdb/ringmeta/internal/sched"
	"github.com/devrev/pairdb/ringmeta/internal/snapshot"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MutatorFunc is a user-supplied closure that mutates a cloned
// snapshot in place. Returning an error aborts publication: the clone
// is discarded and the holder's currently published snapshot is left
// unchanged.
type MutatorFunc func(ctx context.Context, clone *snapshot.Snapshot) error

// Holder is one core's instance of the shared snapshot holder. Each
// core in a shard-per-core deployment owns its own Holder; instances
// are linked only through MutateOnAllShards.
type Holder struct {
	current atomic.Pointer[snapshot.Snapshot]
	mu      sync.Mutex
	yielder sched.Yielder
	logger  *zap.Logger
}

// New constructs a Holder seeded with initial (must not be nil).
func New(initial *snapshot.Snapshot, yielder sched.Yielder, logger *zap.Logger) *Holder {
	if yielder == nil {
		yielder = sched.Default
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Holder{yielder: yielder, logger: logger}
	h.current.Store(initial)
	return h
}

// Get returns the currently published snapshot. Non-blocking, O(1),
// safe for concurrent readers; it never mutates state.
func (h *Holder) Get() *snapshot.Snapshot {
	return h.current.Load()
}

// Set publishes next unconditionally, except that a version
// regression is a fatal contract violation: publishing a snapshot
// whose ring version is not strictly greater than the currently
// published one indicates a programming bug, not a recoverable error,
// so it terminates the process via logger.Fatal (spec §7).
func (h *Holder) Set(next *snapshot.Snapshot) {
	cur := h.current.Load()
	if cur != nil && next.RingVersion() <= cur.RingVersion() {
		h.logger.Fatal("ring version regression on publish",
			zap.Uint64("current_version", cur.RingVersion()),
			zap.Uint64("next_version", next.RingVersion()))
		return
	}
	h.current.Store(next)
}

// Mutate acquires the holder's mutex (serializing writers; readers are
// unaffected), clones the current snapshot, bumps its version, runs fn
// against the clone, and publishes it. If fn returns an error the clone
// is discarded via ClearGently and the currently published snapshot is
// left untouched.
func (h *Holder) Mutate(ctx context.Context, fn MutatorFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur := h.current.Load()
	clone, err := cur.CloneAsync(ctx, h.yielder)
	if err != nil {
		return err
	}
	clone.InvalidateCachedRings()

	if err := fn(ctx, clone); err != nil {
		if clearErr := clone.ClearGently(ctx, h.yielder); clearErr != nil {
			h.logger.Debug("clear of discarded mutation clone was itself canceled", zap.Error(clearErr))
		}
		return err
	}

	h.Set(clone)
	return nil
}

// MutateOnAllShards is the coordinator-side primitive: acquire this
// (the designated "shard 0") holder's mutex, clone and mutate as in
// Mutate, then clone the mutated result onto every other shard and
// publish everywhere. The replace is all-or-nothing: if cloning or
// publishing fails on any shard, no shard is updated.
func (h *Holder) MutateOnAllShards(ctx context.Context, others []*Holder, fn MutatorFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur := h.current.Load()
	clone, err := cur.CloneAsync(ctx, h.yielder)
	if err != nil {
		return err
	}
	clone.InvalidateCachedRings()

	if err := fn(ctx, clone); err != nil {
		if clearErr := clone.ClearGently(ctx, h.yielder); clearErr != nil {
			h.logger.Debug("clear of discarded mutation clone was itself canceled", zap.Error(clearErr))
		}
		return err
	}

	perShard := make([]*snapshot.Snapshot, len(others))
	group, gctx := errgroup.WithContext(ctx)
	for i, shard := range others {
		i, shard := i, shard
		group.Go(func() error {
			shardClone, err := clone.CloneAsync(gctx, h.yielder)
			if err != nil {
				return err
			}
			perShard[i] = shardClone
			_ = shard // shard identity is only needed for the publish pass below
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("MutateOnAllShards: per-shard clone failed, no shard published: %w", err)
	}

	h.Set(clone)
	for i, shard := range others {
		shard.Set(perShard[i])
	}
	return nil
}
