package topology

import (
	"context"
	"testing"

	"github.com/devrev/pairdb/ringmeta/internal/ringerr"
	"github.com/devrev/pairdb/ringmeta/internal/sched"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateHostId_ConflictOnDifferentEndpoint(t *testing.T) {
	r := New(nil)
	epA := MustEndpoint("10.3.0.1", 7000)
	epB := MustEndpoint("10.3.0.2", 7000)
	hostID := NewHostId()

	require.NoError(t, r.UpdateHostId(epA, hostID))

	err := r.UpdateHostId(epB, hostID)
	require.Error(t, err)
	var rerr *ringerr.RingError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, ringerr.HostIdConflict, rerr.Kind)
}

func TestUpdateHostId_ConflictOnDifferentHostId(t *testing.T) {
	r := New(nil)
	ep := MustEndpoint("10.3.0.3", 7000)

	require.NoError(t, r.UpdateHostId(ep, NewHostId()))
	err := r.UpdateHostId(ep, NewHostId())

	require.Error(t, err)
	assert.True(t, ringerr.Is(err, ringerr.HostIdConflict))
}

func TestUpdateDcRackState_MovesDcIndex(t *testing.T) {
	r := New(nil)
	ep := MustEndpoint("10.3.0.4", 7000)

	r.UpdateDcRackState(ep, DcRack{Datacenter: "dc1", Rack: "r1"}, nil)
	assert.Contains(t, r.EndpointsInDc("dc1"), ep)

	r.UpdateDcRackState(ep, DcRack{Datacenter: "dc2", Rack: "r1"}, nil)
	assert.NotContains(t, r.EndpointsInDc("dc1"), ep)
	assert.Contains(t, r.EndpointsInDc("dc2"), ep)
}

func TestUpdateDcRackState_NilStateLeavesExistingStateUntouched(t *testing.T) {
	r := New(nil)
	ep := MustEndpoint("10.3.0.5", 7000)
	normal := StateNormal

	r.UpdateDcRackState(ep, DcRack{Datacenter: "dc1"}, &normal)
	r.UpdateDcRackState(ep, DcRack{Datacenter: "dc1", Rack: "r2"}, nil)

	entry := r.FindByEndpoint(ep)
	require.NotNil(t, entry)
	require.NotNil(t, entry.State)
	assert.Equal(t, StateNormal, *entry.State)
	assert.Equal(t, "r2", entry.DcRack.Rack)
}

func TestRemove_ClearsSecondaryIndexes(t *testing.T) {
	r := New(nil)
	ep := MustEndpoint("10.3.0.6", 7000)
	hostID := NewHostId()

	r.UpdateDcRackState(ep, DcRack{Datacenter: "dc1"}, nil)
	require.NoError(t, r.UpdateHostId(ep, hostID))

	r.Remove(ep)

	assert.Nil(t, r.FindByEndpoint(ep))
	_, ok := r.EndpointOf(hostID)
	assert.False(t, ok)
	assert.Empty(t, r.EndpointsInDc("dc1"))
}

func TestCloneGently_IsIndependent(t *testing.T) {
	r := New(nil)
	ep := MustEndpoint("10.3.0.7", 7000)
	r.UpdateDcRackState(ep, DcRack{Datacenter: "dc1"}, nil)
	require.NoError(t, r.UpdateHostId(ep, NewHostId()))

	clone, err := r.CloneGently(context.Background(), sched.Noop{})
	require.NoError(t, err)

	clone.Remove(ep)

	assert.NotNil(t, r.FindByEndpoint(ep))
	assert.Nil(t, clone.FindByEndpoint(ep))
}
