// Package snapshot implements the immutable, clonable aggregate of
// topology + ring + pending-range state that the shared snapshot
// holder publishes (component E).
package snapshot

import (
	"context"

	"github.com/devrev/pairdb/ringmeta/internal/pending"
	"github.com/devrev/pairdb/ringmeta/internal/ring"
	"github.com/devrev/pairdb/ringmeta/internal/ringver"
	"github.com/devrev/pairdb/ringmeta/internal/sched"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"go.uber.org/zap"
)

// Snapshot bundles the topology registry, ring state, and pending-range
// engine behind a single ring-version counter. Once published by a
// Holder it must be treated as immutable; mutators always work against
// a clone.
type Snapshot struct {
	Registry *topology.Registry
	Ring     *ring.State
	Pending  *pending.Engine
	Version  *ringver.Counter

	logger *zap.Logger
}

// New builds an empty Snapshot at ring version 0.
func New(logger *zap.Logger) *Snapshot {
	if logger == nil {
		logger = zap.NewNop()
	}
	version := &ringver.Counter{}
	return &Snapshot{
		Registry: topology.New(logger),
		Ring:     ring.New(version, logger),
		Pending:  pending.New(logger),
		Version:  version,
		logger:   logger,
	}
}

// RingVersion returns the snapshot's current ring-version value.
func (s *Snapshot) RingVersion() uint64 {
	return s.Version.Load()
}

// InvalidateCachedRings bumps both this snapshot's version counter and
// the process-wide one, for callers (e.g. after a pending-range
// recompute that doesn't itself go through a ring.State mutation) that
// need external caches keyed on ring version to invalidate.
func (s *Snapshot) InvalidateCachedRings() {
	s.Version.Bump()
	ringver.Process.Bump()
}

// CloneOnlyTokenMap returns the cheaper clone shape carrying topology
// and the normal map (optionally including SortedTokens), omitting
// bootstrap tokens, the leaving set, the replacing map, and pending
// ranges. The clone's ring state gets its own version counter seeded
// from this snapshot's current value (see Clone's doc comment on
// internal/ring.State) — it must never alias s.Version, or bumping the
// clone would retroactively change the version of an already-published
// snapshot.
func (s *Snapshot) CloneOnlyTokenMap(includeSortedTokens bool) *Snapshot {
	reg, _ := s.Registry.CloneGently(context.Background(), sched.Noop{})
	ring := s.Ring.CloneNormalOnly(includeSortedTokens)
	return &Snapshot{
		Registry: reg,
		Ring:     ring,
		Pending:  pending.New(s.logger),
		Version:  ring.Version,
		logger:   s.logger,
	}
}

// CloneAfterAllLeft builds the what-if snapshot the pending-range
// engine uses internally: CloneOnlyTokenMap(false) with every leaving
// endpoint removed and tokens re-sorted.
func (s *Snapshot) CloneAfterAllLeft() *Snapshot {
	ring := s.Ring.CloneAfterAllLeft()
	reg, _ := s.Registry.CloneGently(context.Background(), sched.Noop{})
	for ep := range ring.Leaving {
		reg.Remove(ep)
	}
	ring.ClearTransitionSets()
	return &Snapshot{
		Registry: reg,
		Ring:     ring,
		Pending:  pending.New(s.logger),
		Version:  ring.Version,
		logger:   s.logger,
	}
}

// CloneAsync is the full deep clone used by Holder.Mutate, yielding
// cooperatively across the registry, ring, and pending containers.
func (s *Snapshot) CloneAsync(ctx context.Context, yielder sched.Yielder) (*Snapshot, error) {
	if yielder == nil {
		yielder = sched.Default
	}
	reg, err := s.Registry.CloneGently(ctx, yielder)
	if err != nil {
		return nil, err
	}
	ring := s.Ring.Clone()
	return &Snapshot{
		Registry: reg,
		Ring:     ring,
		Pending:  s.Pending.Clone(),
		Version:  ring.Version,
		logger:   s.logger,
	}, nil
}

// TransitionSummary combines the ring's mid-transition endpoints with
// the pending engine's per-keyspace range counts.
type TransitionSummary struct {
	Bootstrapping      []topology.Endpoint
	Leaving            []topology.Endpoint
	Replacing          map[topology.Endpoint]topology.Endpoint
	PendingRangeCounts map[string]int
}

// TransitionSummary builds the read-only diagnostic view cmd/ringctl
// prints for an operator inspecting the currently published snapshot.
func (s *Snapshot) TransitionSummary() TransitionSummary {
	rts := s.Ring.TransitionSummary()
	return TransitionSummary{
		Bootstrapping:      rts.Bootstrapping,
		Leaving:            rts.Leaving,
		Replacing:          rts.Replacing,
		PendingRangeCounts: s.Pending.PendingRangeCounts(),
	}
}

// ClearGently drops the ring state's containers in yield-bounded
// batches (see ring.State.ClearGently), the destructor-equivalent step
// the shared holder runs on a snapshot that has been superseded and is
// no longer reachable from any reader. The topology registry and the
// pending-range engine are not cleared by it.
func (s *Snapshot) ClearGently(ctx context.Context, yielder sched.Yielder) error {
	if yielder == nil {
		yielder = sched.Default
	}
	return s.Ring.ClearGently(ctx, yielder)
}
