package topology

import (
	"context"

	"github.com/devrev/pairdb/ringmeta/internal/ringerr"
	"github.com/devrev/pairdb/ringmeta/internal/sched"
	"go.uber.org/zap"
)

// Registry holds the endpoint<->host-id bijection plus per-endpoint
// DC/rack and lifecycle state, with secondary indexes by host-id and
// by datacenter.
type Registry struct {
	byEndpoint map[Endpoint]*Entry
	byHostId   map[HostId]Endpoint
	byDc       map[string]map[Endpoint]struct{}

	logger *zap.Logger
}

// New builds an empty Registry. A nil logger is replaced with a no-op
// logger, matching the teacher's workerpool.Config nil-logger guard.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byEndpoint: make(map[Endpoint]*Entry),
		byHostId:   make(map[HostId]Endpoint),
		byDc:       make(map[string]map[Endpoint]struct{}),
		logger:     logger,
	}
}

// entry returns (creating if absent) the entry for endpoint.
func (r *Registry) entry(ep Endpoint) *Entry {
	e, ok := r.byEndpoint[ep]
	if !ok {
		e = &Entry{}
		r.byEndpoint[ep] = e
	}
	return e
}

// UpdateDcRackState is the idempotent add_or_update(endpoint, dc_rack,
// state?) operation: it updates dc_rack unconditionally and state only
// when non-nil.
func (r *Registry) UpdateDcRackState(ep Endpoint, dcRack DcRack, state *NodeState) {
	e := r.entry(ep)

	if e.DcRack != dcRack {
		r.removeFromDcIndex(ep, e.DcRack.Datacenter)
		e.DcRack = dcRack
		r.addToDcIndex(ep, dcRack.Datacenter)
	}
	if state != nil {
		e.State = state
	}
}

// UpdateHostId establishes or reasserts the endpoint<->host-id
// bijection. Fails with ringerr.HostIdConflict if hostID is already
// bound to a different endpoint, or if ep already has a different
// host-id.
func (r *Registry) UpdateHostId(ep Endpoint, hostID HostId) error {
	if existingEp, ok := r.byHostId[hostID]; ok && existingEp != ep {
		return ringerr.New("UpdateHostId", ringerr.HostIdConflict)
	}
	if e, ok := r.byEndpoint[ep]; ok && e.HostId != (HostId{}) && e.HostId != hostID {
		return ringerr.New("UpdateHostId", ringerr.HostIdConflict)
	}

	e := r.entry(ep)
	e.HostId = hostID
	r.byHostId[hostID] = ep
	return nil
}

// Remove drops the entry and secondary index slots for ep.
func (r *Registry) Remove(ep Endpoint) {
	e, ok := r.byEndpoint[ep]
	if !ok {
		return
	}
	delete(r.byHostId, e.HostId)
	r.removeFromDcIndex(ep, e.DcRack.Datacenter)
	delete(r.byEndpoint, ep)
}

// FindByEndpoint returns the entry known for ep, or nil if unknown.
func (r *Registry) FindByEndpoint(ep Endpoint) *Entry {
	return r.byEndpoint[ep]
}

// FindByHostId returns the entry known for hostID, or nil if unknown.
func (r *Registry) FindByHostId(hostID HostId) *Entry {
	ep, ok := r.byHostId[hostID]
	if !ok {
		return nil
	}
	return r.byEndpoint[ep]
}

// EndpointOf returns the endpoint bound to hostID.
func (r *Registry) EndpointOf(hostID HostId) (Endpoint, bool) {
	ep, ok := r.byHostId[hostID]
	return ep, ok
}

// HostIdOf returns the host-id bound to ep.
func (r *Registry) HostIdOf(ep Endpoint) (HostId, bool) {
	e, ok := r.byEndpoint[ep]
	if !ok || e.HostId == (HostId{}) {
		return HostId{}, false
	}
	return e.HostId, true
}

// EndpointsInDc returns every endpoint registered under dc.
func (r *Registry) EndpointsInDc(dc string) []Endpoint {
	set := r.byDc[dc]
	out := make([]Endpoint, 0, len(set))
	for ep := range set {
		out = append(out, ep)
	}
	return out
}

func (r *Registry) addToDcIndex(ep Endpoint, dc string) {
	if dc == "" {
		return
	}
	if r.byDc[dc] == nil {
		r.byDc[dc] = make(map[Endpoint]struct{})
	}
	r.byDc[dc][ep] = struct{}{}
}

func (r *Registry) removeFromDcIndex(ep Endpoint, dc string) {
	if dc == "" {
		return
	}
	if set, ok := r.byDc[dc]; ok {
		delete(set, ep)
		if len(set) == 0 {
			delete(r.byDc, dc)
		}
	}
}

// CloneGently returns a deep, independent copy of the registry,
// yielding cooperatively every batch of entries per spec §5.
func (r *Registry) CloneGently(ctx context.Context, yielder sched.Yielder) (*Registry, error) {
	if yielder == nil {
		yielder = sched.Default
	}
	clone := New(r.logger)

	i := 0
	for ep, e := range r.byEndpoint {
		cp := *e
		clone.byEndpoint[ep] = &cp
		clone.addToDcIndex(ep, cp.DcRack.Datacenter)
		i++
		if err := yielder.MaybeYield(ctx, i); err != nil {
			return nil, err
		}
	}
	for hostID, ep := range r.byHostId {
		clone.byHostId[hostID] = ep
	}
	return clone, nil
}

// Len returns the number of registered endpoints.
func (r *Registry) Len() int { return len(r.byEndpoint) }
