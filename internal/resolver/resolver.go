// Package resolver implements the host-id/endpoint string parser
// (component G): a string resolves against a published snapshot to
// fill in whichever half (host-id or endpoint) the caller didn't
// already supply.
package resolver

import (
	"net/netip"
	"strings"

	"github.com/devrev/pairdb/ringmeta/internal/ringerr"
	"github.com/devrev/pairdb/ringmeta/internal/snapshot"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"github.com/google/uuid"
)

// Mode selects which parse strategy Parse attempts.
type Mode int

const (
	ModeHostId Mode = iota
	ModeEndpoint
	ModeAuto
)

// PartialID is a partially-populated (host-id, endpoint) pair produced
// by Parse; exactly one of HostId/Endpoint is populated until Resolve
// fills in the other half.
type PartialID struct {
	HostId      topology.HostId
	HasHostId   bool
	Endpoint    topology.Endpoint
	HasEndpoint bool
}

// Parse interprets s under mode, yielding a PartialID with either the
// host-id or endpoint half populated (never both). ModeAuto first
// attempts host-id parsing, then endpoint parsing; if both fail it
// returns ringerr.InvalidInput.
func Parse(s string, mode Mode) (PartialID, error) {
	switch mode {
	case ModeHostId:
		return parseHostId(s)
	case ModeEndpoint:
		return parseEndpoint(s)
	case ModeAuto:
		if id, err := parseHostId(s); err == nil {
			return id, nil
		}
		if id, err := parseEndpoint(s); err == nil {
			return id, nil
		}
		return PartialID{}, ringerr.New("Parse", ringerr.InvalidInput)
	default:
		return PartialID{}, ringerr.New("Parse", ringerr.InvalidInput)
	}
}

func parseHostId(s string) (PartialID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return PartialID{}, ringerr.Wrap("parseHostId", ringerr.InvalidInput, err)
	}
	return PartialID{HostId: id, HasHostId: true}, nil
}

func parseEndpoint(s string) (PartialID, error) {
	ap, err := netip.ParseAddrPort(strings.TrimSpace(s))
	if err != nil {
		return PartialID{}, ringerr.Wrap("parseEndpoint", ringerr.InvalidInput, err)
	}
	return PartialID{
		Endpoint:    topology.Endpoint{Addr: ap.Addr(), Port: ap.Port()},
		HasEndpoint: true,
	}, nil
}

// Resolve fills in the missing half of id against snap's topology
// registry. Fails with ringerr.NotInCluster if the lookup finds
// nothing.
func (id PartialID) Resolve(snap *snapshot.Snapshot) (topology.HostId, topology.Endpoint, error) {
	if id.HasHostId {
		ep, ok := snap.Registry.EndpointOf(id.HostId)
		if !ok {
			return topology.HostId{}, topology.Endpoint{}, ringerr.New("Resolve", ringerr.NotInCluster)
		}
		return id.HostId, ep, nil
	}
	if id.HasEndpoint {
		hostID, ok := snap.Registry.HostIdOf(id.Endpoint)
		if !ok {
			return topology.HostId{}, topology.Endpoint{}, ringerr.New("Resolve", ringerr.NotInCluster)
		}
		return hostID, id.Endpoint, nil
	}
	return topology.HostId{}, topology.Endpoint{}, ringerr.New("Resolve", ringerr.NotInCluster)
}
