// Package ring implements the normal/bootstrap token maps, the leaving
// set, and the replacing map, with the mutation and query operations
// of spec §4.C (component C).
package ring

import (
	"context"
	"sort"

	"github.com/devrev/pairdb/ringmeta/internal/ringerr"
	"github.com/devrev/pairdb/ringmeta/internal/ringver"
	"github.com/devrev/pairdb/ringmeta/internal/sched"
	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"go.uber.org/zap"
)

// State is the ring's normal/bootstrap token maps plus the leaving set
// and replacing map, with the sorted-token vector kept in sync.
type State struct {
	NormalTokens    map[token.Token]topology.Endpoint
	NormalOwners    map[topology.Endpoint]struct{}
	BootstrapTokens map[token.Token]topology.Endpoint
	Leaving         map[topology.Endpoint]struct{}
	Replacing       map[topology.Endpoint]topology.Endpoint // existing -> replacing
	SortedTokens    []token.Token

	Version *ringver.Counter
	logger  *zap.Logger
}

// New builds an empty ring State. version is the per-snapshot ring
// version counter this state's mutations bump; logger defaults to a
// no-op logger when nil.
func New(version *ringver.Counter, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == nil {
		version = &ringver.Counter{}
	}
	return &State{
		NormalTokens:    make(map[token.Token]topology.Endpoint),
		NormalOwners:    make(map[topology.Endpoint]struct{}),
		BootstrapTokens: make(map[token.Token]topology.Endpoint),
		Leaving:         make(map[topology.Endpoint]struct{}),
		Replacing:       make(map[topology.Endpoint]topology.Endpoint),
		Version:         version,
		logger:          logger,
	}
}

func (s *State) bumpVersion() {
	s.Version.Bump()
	ringver.Process.Bump()
}

func (s *State) recomputeNormalOwners() {
	owners := make(map[topology.Endpoint]struct{}, len(s.NormalOwners))
	for _, ep := range s.NormalTokens {
		owners[ep] = struct{}{}
	}
	s.NormalOwners = owners
}

func (s *State) resortTokens() {
	tokens := make([]token.Token, 0, len(s.NormalTokens))
	for t := range s.NormalTokens {
		tokens = append(tokens, t)
	}
	token.Sort(tokens)
	s.SortedTokens = tokens
}

// UpdateNormalTokens implements the two-phase update_normal_tokens
// operation of spec §4.C. tokens is mutated in place during phase 1:
// any token in tokens already owned by ep is removed from the set
// before phase 2 runs, so only genuinely new keys trigger a re-sort —
// this quirk is preserved deliberately (spec §9 open question).
func (s *State) UpdateNormalTokens(ctx context.Context, tokens map[token.Token]struct{}, ep topology.Endpoint, reg *topology.Registry, yielder sched.Yielder) error {
	if reg.FindByEndpoint(ep) == nil {
		return ringerr.New("UpdateNormalTokens", ringerr.UnknownEndpoint)
	}
	if yielder == nil {
		yielder = sched.Default
	}

	// Phase 1: drop ep's stale normal tokens, marking the ones still
	// wanted as "already present" by removing them from the input set.
	i := 0
	for tok, owner := range s.NormalTokens {
		if owner == ep {
			if _, stillWanted := tokens[tok]; stillWanted {
				delete(tokens, tok)
			} else {
				delete(s.NormalTokens, tok)
			}
		}
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}

	// Phase 2: drop ep from bootstrap_tokens and leaving, bump version,
	// then insert the remaining (genuinely new) input tokens.
	i = 0
	for tok, owner := range s.BootstrapTokens {
		if owner == ep {
			delete(s.BootstrapTokens, tok)
		}
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}
	delete(s.Leaving, ep)
	s.bumpVersion()

	anyNewKey := false
	for tok := range tokens {
		prevOwner, existed := s.NormalTokens[tok]
		if !existed {
			anyNewKey = true
		} else if prevOwner != ep {
			s.logger.Debug("ownership change",
				zap.String("token", tok.String()),
				zap.String("from", prevOwner.String()),
				zap.String("to", ep.String()))
		}
		s.NormalTokens[tok] = ep
	}

	if anyNewKey {
		s.resortTokens()
	}
	s.recomputeNormalOwners()
	return nil
}

// AddBootstrapTokens validates that no token in tokens is owned by a
// different endpoint in either the bootstrap set or the normal ring,
// then replaces ep's prior bootstrap tokens with tokens.
func (s *State) AddBootstrapTokens(tokens map[token.Token]struct{}, ep topology.Endpoint) error {
	for tok := range tokens {
		if owner, ok := s.BootstrapTokens[tok]; ok && owner != ep {
			return ringerr.New("AddBootstrapTokens", ringerr.TokenCollision)
		}
		if owner, ok := s.NormalTokens[tok]; ok && owner != ep {
			return ringerr.New("AddBootstrapTokens", ringerr.TokenCollision)
		}
	}

	for tok, owner := range s.BootstrapTokens {
		if owner == ep {
			delete(s.BootstrapTokens, tok)
		}
	}
	for tok := range tokens {
		s.BootstrapTokens[tok] = ep
	}
	return nil
}

// RemoveBootstrapTokens erases each token in tokens. An empty input is
// a no-op that logs a warning (spec §4.C / §9 asymmetry note).
func (s *State) RemoveBootstrapTokens(tokens map[token.Token]struct{}) {
	if len(tokens) == 0 {
		s.logger.Warn("RemoveBootstrapTokens called with empty input")
		return
	}
	for tok := range tokens {
		delete(s.BootstrapTokens, tok)
	}
}

// AddLeavingEndpoint adds ep to the leaving set.
func (s *State) AddLeavingEndpoint(ep topology.Endpoint) {
	s.Leaving[ep] = struct{}{}
}

// DelLeavingEndpoint removes ep from the leaving set.
func (s *State) DelLeavingEndpoint(ep topology.Endpoint) {
	delete(s.Leaving, ep)
}

// AddReplacingEndpoint records that replacing will take over existing's
// tokens.
func (s *State) AddReplacingEndpoint(existing, replacing topology.Endpoint) {
	s.Replacing[existing] = replacing
	s.logger.Info("replacing endpoint added",
		zap.String("existing", existing.String()),
		zap.String("replacing", replacing.String()))
}

// DelReplacingEndpoint removes the replacement entry for existing.
func (s *State) DelReplacingEndpoint(existing topology.Endpoint) {
	replacing, ok := s.Replacing[existing]
	if !ok {
		return
	}
	delete(s.Replacing, existing)
	s.logger.Info("replacing endpoint removed",
		zap.String("existing", existing.String()),
		zap.String("replacing", replacing.String()))
}

// RemoveEndpoint removes ep from the bootstrap set, the normal ring,
// normal owners, the topology registry, the leaving set, and as a key
// in the replacing map, then bumps the ring version. It does not
// re-sort SortedTokens itself; RemoveEndpointAndResort does.
func (s *State) RemoveEndpoint(ep topology.Endpoint, reg *topology.Registry) {
	for tok, owner := range s.BootstrapTokens {
		if owner == ep {
			delete(s.BootstrapTokens, tok)
		}
	}
	for tok, owner := range s.NormalTokens {
		if owner == ep {
			delete(s.NormalTokens, tok)
		}
	}
	delete(s.NormalOwners, ep)
	reg.Remove(ep)
	delete(s.Leaving, ep)
	delete(s.Replacing, ep)
	s.bumpVersion()
}

// RemoveEndpointAndResort is the public wrapper for RemoveEndpoint that
// additionally re-sorts SortedTokens, per spec §4.C.
func (s *State) RemoveEndpointAndResort(ep topology.Endpoint, reg *topology.Registry) {
	s.RemoveEndpoint(ep, reg)
	s.resortTokens()
}

// GetEndpoint returns the owner of tok in the normal ring, if any.
func (s *State) GetEndpoint(tok token.Token) (topology.Endpoint, bool) {
	ep, ok := s.NormalTokens[tok]
	return ep, ok
}

// GetTokens returns the sorted list of normal tokens owned by ep.
func (s *State) GetTokens(ep topology.Endpoint) []token.Token {
	var out []token.Token
	for tok, owner := range s.NormalTokens {
		if owner == ep {
			out = append(out, tok)
		}
	}
	token.Sort(out)
	return out
}

// IsNormalTokenOwner reports whether ep owns at least one normal token.
func (s *State) IsNormalTokenOwner(ep topology.Endpoint) bool {
	_, ok := s.NormalOwners[ep]
	return ok
}

// IsLeaving reports whether ep is in the leaving set.
func (s *State) IsLeaving(ep topology.Endpoint) bool {
	_, ok := s.Leaving[ep]
	return ok
}

// IsBeingReplaced reports whether ep is a key in the replacing map.
func (s *State) IsBeingReplaced(ep topology.Endpoint) bool {
	_, ok := s.Replacing[ep]
	return ok
}

// IsAnyNodeBeingReplaced reports whether the replacing map is non-empty.
func (s *State) IsAnyNodeBeingReplaced() bool {
	return len(s.Replacing) > 0
}

// CountNormalTokenOwners returns the number of distinct endpoints
// owning at least one normal token.
func (s *State) CountNormalTokenOwners() int {
	return len(s.NormalOwners)
}

// GetAllEndpoints returns every endpoint officially part of the ring,
// i.e. owning at least one normal token. It excludes endpoints that are
// still joining (bootstrap tokens only, not yet promoted to normal).
func (s *State) GetAllEndpoints() []topology.Endpoint {
	out := make([]topology.Endpoint, 0, len(s.NormalOwners))
	for ep := range s.NormalOwners {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// EndpointToTokenMapForReading returns a stable copy of the normal
// token map grouped by owning endpoint, each endpoint's tokens sorted
// ascending.
func (s *State) EndpointToTokenMapForReading() map[topology.Endpoint][]token.Token {
	out := make(map[topology.Endpoint][]token.Token, len(s.NormalOwners))
	for tok, ep := range s.NormalTokens {
		out[ep] = append(out[ep], tok)
	}
	for ep, toks := range out {
		token.Sort(toks)
		out[ep] = toks
	}
	return out
}

// NormalAndBootstrappingTokenToEndpointMap returns a stable copy of the
// normal token map with the bootstrap token map layered in; a token
// already present in the normal map keeps its normal owner, matching
// the insert-does-not-overwrite semantics a plain map merge would have.
func (s *State) NormalAndBootstrappingTokenToEndpointMap() map[token.Token]topology.Endpoint {
	out := make(map[token.Token]topology.Endpoint, len(s.NormalTokens)+len(s.BootstrapTokens))
	for tok, ep := range s.NormalTokens {
		out[tok] = ep
	}
	for tok, ep := range s.BootstrapTokens {
		if _, exists := out[tok]; !exists {
			out[tok] = ep
		}
	}
	return out
}

// GetPrimaryRangesFor computes, for each right endpoint in tokens, the
// wrapping range (predecessor(right), right], then unwraps it across
// the minimum sentinel into at most two non-wrapping sub-ranges.
func (s *State) GetPrimaryRangesFor(tokens []token.Token) ([]token.Range, error) {
	var out []token.Range
	for _, right := range tokens {
		left, err := token.Predecessor(s.SortedTokens, right)
		if err != nil {
			return nil, err
		}
		wrapping := token.NewRange(left, right)
		out = append(out, token.UnwrapAtMinimum(wrapping)...)
	}
	return out, nil
}

// Clone returns a deep, independent copy of s sharing no mutable
// state with the original. The clone gets its own Version counter
// instance (callers that need a shared counter should reassign it).
func (s *State) Clone() *State {
	clone := &State{
		NormalTokens:    make(map[token.Token]topology.Endpoint, len(s.NormalTokens)),
		NormalOwners:    make(map[topology.Endpoint]struct{}, len(s.NormalOwners)),
		BootstrapTokens: make(map[token.Token]topology.Endpoint, len(s.BootstrapTokens)),
		Leaving:         make(map[topology.Endpoint]struct{}, len(s.Leaving)),
		Replacing:       make(map[topology.Endpoint]topology.Endpoint, len(s.Replacing)),
		SortedTokens:    append([]token.Token(nil), s.SortedTokens...),
		Version:         ringver.NewSeeded(s.Version.Load()),
		logger:          s.logger,
	}
	for k, v := range s.NormalTokens {
		clone.NormalTokens[k] = v
	}
	for k := range s.NormalOwners {
		clone.NormalOwners[k] = struct{}{}
	}
	for k, v := range s.BootstrapTokens {
		clone.BootstrapTokens[k] = v
	}
	for k := range s.Leaving {
		clone.Leaving[k] = struct{}{}
	}
	for k, v := range s.Replacing {
		clone.Replacing[k] = v
	}
	return clone
}

// CloneNormalOnly returns the cheaper clone shape: just the normal
// token map and its derived owner set (optionally SortedTokens),
// leaving bootstrap tokens, the leaving set, and the replacing map
// empty. Used by snapshot.CloneOnlyTokenMap.
func (s *State) CloneNormalOnly(includeSortedTokens bool) *State {
	clone := New(ringver.NewSeeded(s.Version.Load()), s.logger)
	for k, v := range s.NormalTokens {
		clone.NormalTokens[k] = v
	}
	for k := range s.NormalOwners {
		clone.NormalOwners[k] = struct{}{}
	}
	if includeSortedTokens {
		clone.SortedTokens = s.SortedTokensCopy()
	}
	return clone
}

// CloneAfterAllLeft returns a clone of the normal token map with every
// leaving endpoint removed and SortedTokens recomputed; bootstrap
// tokens and the replacing map are carried over unchanged (callers that
// want the cheaper "token map only" shape should use CloneNormalOnly).
func (s *State) CloneAfterAllLeft() *State {
	clone := s.Clone()
	for tok, owner := range clone.NormalTokens {
		if _, leaving := clone.Leaving[owner]; leaving {
			delete(clone.NormalTokens, tok)
		}
	}
	clone.recomputeNormalOwners()
	clone.resortTokens()
	return clone
}

// InstallJoining installs ep as a joining endpoint owning tokens: it
// mirrors UpdateNormalTokens but is used internally by the pending
// range bootstrap pass against an "all_left" what-if state, where
// tokens are already known not to collide.
func (s *State) InstallJoining(tokens []token.Token, ep topology.Endpoint) {
	for _, tok := range tokens {
		s.NormalTokens[tok] = ep
	}
	s.recomputeNormalOwners()
	s.resortTokens()
}

// UninstallJoining is the inverse of InstallJoining, used to remove a
// bootstrapping endpoint from the what-if state before the next
// iteration of the bootstrap pass.
func (s *State) UninstallJoining(ep topology.Endpoint) {
	for tok, owner := range s.NormalTokens {
		if owner == ep {
			delete(s.NormalTokens, tok)
		}
	}
	delete(s.NormalOwners, ep)
	s.resortTokens()
}

// ClearTransitionSets empties the bootstrap, leaving, and replacing
// containers, used by snapshot.CloneAfterAllLeft to enforce the
// clone_only_token_map shape (normal map only) after having consulted
// the leaving set to decide which endpoints to strip.
func (s *State) ClearTransitionSets() {
	s.BootstrapTokens = make(map[token.Token]topology.Endpoint)
	s.Leaving = make(map[topology.Endpoint]struct{})
	s.Replacing = make(map[topology.Endpoint]topology.Endpoint)
}

// ClearGently drops the normal and bootstrap token maps in
// yield-bounded batches, then releases the remaining containers. It is
// the destructor-equivalent step run on a superseded snapshot's ring
// state once no reader can still observe it.
func (s *State) ClearGently(ctx context.Context, yielder sched.Yielder) error {
	if yielder == nil {
		yielder = sched.Default
	}
	i := 0
	for tok := range s.NormalTokens {
		delete(s.NormalTokens, tok)
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}
	i = 0
	for tok := range s.BootstrapTokens {
		delete(s.BootstrapTokens, tok)
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return err
		}
	}
	s.SortedTokens = nil
	s.NormalOwners = nil
	s.Leaving = nil
	s.Replacing = nil
	return nil
}

// SortedTokensCopy returns an independent copy of SortedTokens.
func (s *State) SortedTokensCopy() []token.Token {
	out := make([]token.Token, len(s.SortedTokens))
	copy(out, s.SortedTokens)
	return out
}

// BootstrapTokensByEndpoint groups BootstrapTokens by owning endpoint,
// each endpoint's tokens sorted ascending, and the endpoints themselves
// returned in a deterministic order (sorted by string form) so the
// bootstrap contribution pass in the pending-range engine is
// reproducible.
func (s *State) BootstrapTokensByEndpoint() ([]topology.Endpoint, map[topology.Endpoint][]token.Token) {
	grouped := make(map[topology.Endpoint][]token.Token)
	for tok, ep := range s.BootstrapTokens {
		grouped[ep] = append(grouped[ep], tok)
	}
	eps := make([]topology.Endpoint, 0, len(grouped))
	for ep, toks := range grouped {
		token.Sort(toks)
		grouped[ep] = toks
		eps = append(eps, ep)
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].String() < eps[j].String() })
	return eps, grouped
}

// TransitionSummary is a read-only snapshot of which endpoints are
// currently mid-transition, the diagnostic view cmd/ringctl prints for
// an operator inspecting a published ring.
type TransitionSummary struct {
	Bootstrapping []topology.Endpoint
	Leaving       []topology.Endpoint
	Replacing     map[topology.Endpoint]topology.Endpoint
}

// TransitionSummary builds a TransitionSummary from the current state.
func (s *State) TransitionSummary() TransitionSummary {
	bootstrapping, _ := s.BootstrapTokensByEndpoint()
	leaving := make([]topology.Endpoint, 0, len(s.Leaving))
	for ep := range s.Leaving {
		leaving = append(leaving, ep)
	}
	sort.Slice(leaving, func(i, j int) bool { return leaving[i].String() < leaving[j].String() })
	replacing := make(map[topology.Endpoint]topology.Endpoint, len(s.Replacing))
	for existing, repl := range s.Replacing {
		replacing[existing] = repl
	}
	return TransitionSummary{
		Bootstrapping: bootstrapping,
		Leaving:       leaving,
		Replacing:     replacing,
	}
}
