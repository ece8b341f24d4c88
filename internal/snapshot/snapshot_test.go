package snapshot

import (
	"context"
	"testing"

	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTok(t *testing.T, v int64) token.Token {
	t.Helper()
	return token.FromInt64(v)
}

func populated(t *testing.T) *Snapshot {
	t.Helper()
	s := New(nil)
	epA := topology.MustEndpoint("10.2.0.1", 0)
	epB := topology.MustEndpoint("10.2.0.2", 0)

	s.Registry.UpdateDcRackState(epA, topology.DcRack{Datacenter: "dc1", Rack: "r1"}, nil)
	require.NoError(t, s.Registry.UpdateHostId(epA, topology.NewHostId()))
	s.Registry.UpdateDcRackState(epB, topology.DcRack{Datacenter: "dc1", Rack: "r2"}, nil)
	require.NoError(t, s.Registry.UpdateHostId(epB, topology.NewHostId()))

	require.NoError(t, s.Ring.UpdateNormalTokens(context.Background(),
		map[token.Token]struct{}{mustTok(t, 10): {}}, epA, s.Registry, nil))
	require.NoError(t, s.Ring.UpdateNormalTokens(context.Background(),
		map[token.Token]struct{}{mustTok(t, 20): {}}, epB, s.Registry, nil))
	s.Ring.AddLeavingEndpoint(epB)
	return s
}

func TestRingVersion_ReflectsCounter(t *testing.T) {
	s := New(nil)
	assert.Equal(t, uint64(0), s.RingVersion())
	s.Version.Bump()
	assert.Equal(t, uint64(1), s.RingVersion())
}

func TestCloneAsync_IsIndependentOfOriginal(t *testing.T) {
	s := populated(t)
	clone, err := s.CloneAsync(context.Background(), nil)
	require.NoError(t, err)

	epC := topology.MustEndpoint("10.2.0.3", 0)
	clone.Registry.UpdateDcRackState(epC, topology.DcRack{Datacenter: "dc1"}, nil)
	require.NoError(t, clone.Registry.UpdateHostId(epC, topology.NewHostId()))

	assert.Nil(t, s.Registry.FindByEndpoint(epC))
	assert.NotNil(t, clone.Registry.FindByEndpoint(epC))

	owner, ok := s.Ring.GetEndpoint(mustTok(t, 10))
	require.True(t, ok)
	cloneOwner, ok := clone.Ring.GetEndpoint(mustTok(t, 10))
	require.True(t, ok)
	assert.Equal(t, owner, cloneOwner)
}

func TestCloneOnlyTokenMap_OmitsPendingAndKeepsNormalOwners(t *testing.T) {
	s := populated(t)
	clone := s.CloneOnlyTokenMap(true)

	owner, ok := clone.Ring.GetEndpoint(mustTok(t, 10))
	require.True(t, ok)
	assert.Equal(t, topology.MustEndpoint("10.2.0.1", 0), owner)
	assert.Empty(t, clone.Pending.PendingEndpointsFor(mustTok(t, 15), "ks"))
}

func TestCloneOnlyTokenMap_WithoutSortedTokens(t *testing.T) {
	s := populated(t)
	clone := s.CloneOnlyTokenMap(false)
	assert.Empty(t, clone.Ring.SortedTokensCopy())
}

func TestCloneAfterAllLeft_RemovesLeavingEndpointEverywhere(t *testing.T) {
	s := populated(t)
	epB := topology.MustEndpoint("10.2.0.2", 0)
	require.True(t, s.Ring.IsLeaving(epB))

	clone := s.CloneAfterAllLeft()
	assert.False(t, clone.Ring.IsNormalTokenOwner(epB))
	assert.Nil(t, clone.Registry.FindByEndpoint(epB))
	assert.False(t, clone.Ring.IsLeaving(epB))
}

func TestInvalidateCachedRings_BumpsOwnVersion(t *testing.T) {
	s := New(nil)
	before := s.RingVersion()
	s.InvalidateCachedRings()
	assert.Greater(t, s.RingVersion(), before)
}

func TestClearGently_DoesNotPanicOnEmptySnapshot(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.ClearGently(context.Background(), nil))
}

// A clone's version counter must never alias its source's: bumping the
// clone (as every successful Holder.Mutate does via InvalidateCachedRings
// or a ring mutation) must not retroactively change the version a
// currently-published snapshot reports.
func TestCloneAsync_VersionCounterIndependentOfOriginal(t *testing.T) {
	s := populated(t)
	before := s.RingVersion()

	clone, err := s.CloneAsync(context.Background(), nil)
	require.NoError(t, err)
	clone.InvalidateCachedRings()

	assert.Equal(t, before, s.RingVersion())
	assert.Greater(t, clone.RingVersion(), before)
	assert.Same(t, clone.Ring.Version, clone.Version)
}

func TestCloneOnlyTokenMap_VersionCounterIndependentOfOriginal(t *testing.T) {
	s := populated(t)
	before := s.RingVersion()

	clone := s.CloneOnlyTokenMap(true)
	clone.InvalidateCachedRings()

	assert.Equal(t, before, s.RingVersion())
	assert.Greater(t, clone.RingVersion(), before)
}

func TestCloneAfterAllLeft_VersionCounterIndependentOfOriginal(t *testing.T) {
	s := populated(t)
	before := s.RingVersion()

	clone := s.CloneAfterAllLeft()
	clone.InvalidateCachedRings()

	assert.Equal(t, before, s.RingVersion())
	assert.Greater(t, clone.RingVersion(), before)
}
