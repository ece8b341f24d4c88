// Package pending implements the pending-range engine (component D):
// given the ring's bootstrap/leaving/replacing transitions plus a
// replication strategy, it computes per-keyspace pending replica
// ranges.
package pending

import (
	"context"

	"github.com/devrev/pairdb/ringmeta/internal/ring"
	"github.com/devrev/pairdb/ringmeta/internal/ringerr"
	"github.com/devrev/pairdb/ringmeta/internal/sched"
	"github.com/devrev/pairdb/ringmeta/internal/strategy"
	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"go.uber.org/zap"
)

// Engine holds, per keyspace, the interval map of pending replica
// ranges computed by the most recent UpdatePendingRanges call.
type Engine struct {
	keyspaces map[string]*IntervalMap
	logger    *zap.Logger
}

// New builds an empty pending-range Engine.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{keyspaces: make(map[string]*IntervalMap), logger: logger}
}

// PendingEndpointsFor is an interval-map point lookup (a binary-search-
// bounded scan, see IntervalMap.PointLookup); it returns an empty slice
// if keyspace is absent or the point lies in no interval.
func (e *Engine) PendingEndpointsFor(tok token.Token, keyspace string) []topology.Endpoint {
	im, ok := e.keyspaces[keyspace]
	if !ok {
		return nil
	}
	set := im.PointLookup(tok)
	out := make([]topology.Endpoint, 0, len(set))
	for ep := range set {
		out = append(out, ep)
	}
	return out
}

// HasPendingRanges reports whether any interval for keyspace lists ep
// as a replica.
func (e *Engine) HasPendingRanges(keyspace string, ep topology.Endpoint) bool {
	im, ok := e.keyspaces[keyspace]
	if !ok {
		return false
	}
	return im.HasEndpoint(ep)
}

// PendingRangeCounts returns, per keyspace, the number of pending
// replica ranges currently tracked.
func (e *Engine) PendingRangeCounts() map[string]int {
	out := make(map[string]int, len(e.keyspaces))
	for ks, im := range e.keyspaces {
		out[ks] = im.Len()
	}
	return out
}

// Clone returns an independent copy of e (the interval maps themselves
// are treated as immutable once published, so only the top-level
// keyspace map needs copying).
func (e *Engine) Clone() *Engine {
	clone := New(e.logger)
	for ks, im := range e.keyspaces {
		clone.keyspaces[ks] = im
	}
	return clone
}

type multimap map[token.Range]map[topology.Endpoint]struct{}

func (m multimap) add(r token.Range, ep topology.Endpoint) {
	set, ok := m[r]
	if !ok {
		set = make(map[topology.Endpoint]struct{})
		m[r] = set
	}
	set[ep] = struct{}{}
}

// UpdatePendingRanges recomputes the pending-range interval map for
// keyspace, implementing the three-contribution algorithm of spec §4.D:
// replace, leave, and bootstrap. current is mutated only through
// temporary clones built internally (all_left); the caller's ring and
// topology are read-only inputs here.
func (e *Engine) UpdatePendingRanges(
	ctx context.Context,
	keyspace string,
	current *ring.State,
	reg *topology.Registry,
	strat strategy.Strategy,
	yielder sched.Yielder,
) error {
	if yielder == nil {
		yielder = sched.Default
	}

	if len(current.BootstrapTokens) == 0 && len(current.Leaving) == 0 && len(current.Replacing) == 0 {
		delete(e.keyspaces, keyspace)
		e.logger.Debug("pending ranges short-circuited: no in-flight transitions",
			zap.String("keyspace", keyspace))
		return nil
	}

	mm := make(multimap)
	currentView := strategy.View{Ring: current, Registry: reg}

	if err := e.contributeReplace(ctx, mm, current, currentView, strat, yielder); err != nil {
		return err
	}

	allLeft := current.CloneAfterAllLeft()
	allLeftReg, err := reg.CloneGently(ctx, yielder)
	if err != nil {
		return err
	}
	for ep := range allLeft.Leaving {
		allLeftReg.Remove(ep)
	}

	if err := e.contributeLeave(ctx, mm, current, currentView, allLeft, allLeftReg, strat, yielder); err != nil {
		return err
	}

	if err := e.contributeBootstrap(ctx, mm, current, allLeft, allLeftReg, strat, yielder); err != nil {
		return err
	}

	im := NewIntervalMap(mm)
	if im.Empty() {
		delete(e.keyspaces, keyspace)
	} else {
		e.keyspaces[keyspace] = im
	}
	e.logger.Debug("pending ranges recomputed",
		zap.String("keyspace", keyspace),
		zap.Int("interval_count", len(mm)))
	return nil
}

// contributeReplace: every range owned by existing under the current
// snapshot contributes (range, replacing).
func (e *Engine) contributeReplace(
	ctx context.Context,
	mm multimap,
	current *ring.State,
	currentView strategy.View,
	strat strategy.Strategy,
	yielder sched.Yielder,
) error {
	i := 0
	for existing, replacing := range current.Replacing {
		ranges, err := strat.RangesOwned(ctx, existing, currentView)
		if err != nil {
			return ringerr.Wrap("contributeReplace", ringerr.StrategyFailure, err)
		}
		for _, r := range ranges {
			mm.add(r, replacing)
		}
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// contributeLeave: for every range affected by a leaving endpoint,
// endpoints present in all_left's natural replicas but not current's
// become pending holders of that range.
func (e *Engine) contributeLeave(
	ctx context.Context,
	mm multimap,
	current *ring.State,
	currentView strategy.View,
	allLeft *ring.State,
	allLeftReg *topology.Registry,
	strat strategy.Strategy,
	yielder sched.Yielder,
) error {
	var affected []token.Range
	i := 0
	for ep := range current.Leaving {
		ranges, err := strat.RangesOwned(ctx, ep, currentView)
		if err != nil {
			return ringerr.Wrap("contributeLeave", ringerr.StrategyFailure, err)
		}
		affected = append(affected, ranges...)
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}

	allLeftView := strategy.View{Ring: allLeft, Registry: allLeftReg}
	i = 0
	for _, r := range affected {
		probe := r.End
		curEps, err := strat.NaturalEndpoints(ctx, probe, currentView)
		if err != nil {
			return ringerr.Wrap("contributeLeave", ringerr.StrategyFailure, err)
		}
		leftEps, err := strat.NaturalEndpoints(ctx, probe, allLeftView)
		if err != nil {
			return ringerr.Wrap("contributeLeave", ringerr.StrategyFailure, err)
		}
		for ep := range leftEps {
			if _, stillThere := curEps[ep]; !stillThere {
				mm.add(r, ep)
			}
		}
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// contributeBootstrap: groups bootstrap tokens by endpoint and, in
// deterministic order, temporarily installs each bootstrapping endpoint
// into all_left to compute the ranges it would own, then uninstalls it
// before the next iteration.
func (e *Engine) contributeBootstrap(
	ctx context.Context,
	mm multimap,
	current *ring.State,
	allLeft *ring.State,
	allLeftReg *topology.Registry,
	strat strategy.Strategy,
	yielder sched.Yielder,
) error {
	eps, grouped := current.BootstrapTokensByEndpoint()

	i := 0
	for _, ep := range eps {
		tokens := grouped[ep]

		joining := topology.StateJoining
		dcRack := topology.DcRack{}
		if existing := allLeftReg.FindByEndpoint(ep); existing != nil {
			dcRack = existing.DcRack
		}
		allLeftReg.UpdateDcRackState(ep, dcRack, &joining)

		allLeft.InstallJoining(tokens, ep)

		ranges, err := strat.RangesOwned(ctx, ep, strategy.View{Ring: allLeft, Registry: allLeftReg})
		if err != nil {
			return ringerr.Wrap("contributeBootstrap", ringerr.StrategyFailure, err)
		}
		for _, r := range ranges {
			mm.add(r, ep)
		}

		allLeft.UninstallJoining(ep)
		allLeftReg.Remove(ep)

		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}
	return nil
}
