// Package strategy declares the replication-strategy collaborator
// interface the pending-range engine consumes. Concrete strategies
// (SimpleStrategy, NetworkTopologyStrategy, ...) are an external
// concern per spec §1/§6; this package only defines the shape.
package strategy

import (
	"context"

	"github.com/devrev/pairdb/ringmeta/internal/ring"
	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
)

// View is the read-only what-if ring the strategy callbacks are asked
// to reason about: either the currently published ring or the
// synthetic "all leaving endpoints removed" ring the pending-range
// engine builds internally, into which the bootstrap pass installs one
// joining endpoint at a time.
type View struct {
	Ring     *ring.State
	Registry *topology.Registry
}

// Strategy computes ranges owned by an endpoint and the natural replica
// set for a token, against a given View. Both are declared async in
// spec §6 because a real strategy may need to read cluster-wide
// replication configuration; ctx lets callers bound that work.
type Strategy interface {
	// RangesOwned returns every range endpoint owns as a primary or
	// replicated holder under view.
	RangesOwned(ctx context.Context, endpoint topology.Endpoint, view View) ([]token.Range, error)

	// NaturalEndpoints returns the set of replica endpoints responsible
	// for tok under view, ignoring any in-flight topology transition.
	NaturalEndpoints(ctx context.Context, tok token.Token, view View) (map[topology.Endpoint]struct{}, error)
}

// DcRackResolver is the synchronous DC/rack lookup collaborator of
// spec §6, consumed by strategies that need it. The pending-range
// engine neither takes a DcRackResolver nor passes one to the strategy;
// View carries only the ring and the topology registry.
type DcRackResolver interface {
	DcRack(endpoint topology.Endpoint) topology.DcRack
}
