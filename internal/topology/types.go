// Package topology implements the endpoint<->host-id bijection and
// per-endpoint DC/rack/state bookkeeping (component B).
package topology

import (
	"net/netip"

	"github.com/google/uuid"
)

// Endpoint is the opaque, value-comparable, hashable network address of
// a cluster node.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// String renders the endpoint for logs.
func (e Endpoint) String() string {
	if !e.Addr.IsValid() {
		return "<invalid-endpoint>"
	}
	return netip.AddrPortFrom(e.Addr, e.Port).String()
}

// MustEndpoint builds an Endpoint from a literal address and port,
// panicking on a malformed address. Intended for tests and static
// wiring, not for parsing untrusted input.
func MustEndpoint(addr string, port uint16) Endpoint {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		panic(err)
	}
	return Endpoint{Addr: a, Port: port}
}

// HostId is the 128-bit identifier intended to outlive endpoint
// reassignments.
type HostId = uuid.UUID

// NewHostId generates a fresh random host-id.
func NewHostId() HostId { return uuid.New() }

// NodeState is the lifecycle tag the registry stores for an endpoint.
type NodeState string

const (
	StateJoining   NodeState = "joining"
	StateNormal    NodeState = "normal"
	StateLeaving   NodeState = "leaving"
	StateReplacing NodeState = "replacing"
	StateLeft      NodeState = "left"
)

// DcRack is the opaque (datacenter, rack) pair a replication strategy
// consults via the caller-provided lookup function.
type DcRack struct {
	Datacenter string
	Rack       string
}

// Entry is the per-endpoint record the registry maintains.
type Entry struct {
	HostId HostId
	DcRack DcRack
	State  *NodeState // nil means "known but unset"
}
