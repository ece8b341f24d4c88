package holder

import (
	"context"
	"errors"
	"testing"

	"github.com/devrev/pairdb/ringmeta/internal/sched"
	"github.com/devrev/pairdb/ringmeta/internal/snapshot"
	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHolder() *Holder {
	return New(snapshot.New(nil), sched.Noop{}, nil)
}

func TestMutate_PublishesOnSuccess(t *testing.T) {
	h := newTestHolder()
	before := h.Get().RingVersion()

	ep := topology.MustEndpoint("10.2.0.1", 7000)
	err := h.Mutate(context.Background(), func(ctx context.Context, clone *snapshot.Snapshot) error {
		clone.Registry.UpdateDcRackState(ep, topology.DcRack{Datacenter: "dc1"}, nil)
		require.NoError(t, clone.Registry.UpdateHostId(ep, topology.NewHostId()))
		return clone.Ring.UpdateNormalTokens(ctx, map[token.Token]struct{}{token.New(5): {}}, ep, clone.Registry, sched.Noop{})
	})

	require.NoError(t, err)
	assert.Greater(t, h.Get().RingVersion(), before)
	owner, ok := h.Get().Ring.GetEndpoint(token.New(5))
	require.True(t, ok)
	assert.Equal(t, ep, owner)
}

func TestMutate_DiscardsCloneOnError(t *testing.T) {
	h := newTestHolder()
	orig := h.Get()

	wantErr := errors.New("boom")
	err := h.Mutate(context.Background(), func(ctx context.Context, clone *snapshot.Snapshot) error {
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Same(t, orig, h.Get())
}

func TestMutateOnAllShards_PublishesToEveryShard(t *testing.T) {
	primary := newTestHolder()
	other1 := newTestHolder()
	other2 := newTestHolder()

	ep := topology.MustEndpoint("10.2.0.2", 7000)
	err := primary.MutateOnAllShards(context.Background(), []*Holder{other1, other2}, func(ctx context.Context, clone *snapshot.Snapshot) error {
		clone.Registry.UpdateDcRackState(ep, topology.DcRack{}, nil)
		return clone.Registry.UpdateHostId(ep, topology.NewHostId())
	})

	require.NoError(t, err)
	for _, h := range []*Holder{primary, other1, other2} {
		_, ok := h.Get().Registry.HostIdOf(ep)
		assert.True(t, ok)
	}
}

func TestMutateOnAllShards_NoPublishOnError(t *testing.T) {
	primary := newTestHolder()
	other1 := newTestHolder()
	origPrimary := primary.Get()
	origOther1 := other1.Get()

	wantErr := errors.New("boom")
	err := primary.MutateOnAllShards(context.Background(), []*Holder{other1}, func(ctx context.Context, clone *snapshot.Snapshot) error {
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Same(t, origPrimary, primary.Get())
	assert.Same(t, origOther1, other1.Get())
}
