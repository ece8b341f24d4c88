// Package snitch implements strategy.DcRackResolver by piggy-backing
// each node's (datacenter, rack) onto hashicorp/memberlist's node
// metadata, the same gossip-delegate shape the storage node uses for
// health propagation.
package snitch

import (
	"encoding/json"
	"net/netip"
	"sync"

	"github.com/devrev/pairdb/ringmeta/internal/config"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"
)

// nodeMeta is the JSON payload broadcast as each memberlist node's
// metadata blob.
type nodeMeta struct {
	Datacenter string `json:"dc"`
	Rack       string `json:"rack"`
}

// GossipSnitch resolves endpoints to (datacenter, rack) pairs learned
// from memberlist's node list. It implements both
// strategy.DcRackResolver and memberlist.EventDelegate so it can keep
// its local cache in sync as nodes join, update, and leave.
type GossipSnitch struct {
	mu     sync.RWMutex
	byAddr map[netip.Addr]topology.DcRack
	local  config.DcRack
	logger *zap.Logger
}

// New constructs a GossipSnitch seeded with the local node's own
// (datacenter, rack), as read from topology configuration.
func New(local config.DcRack, logger *zap.Logger) *GossipSnitch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GossipSnitch{
		byAddr: make(map[netip.Addr]topology.DcRack),
		local:  local,
		logger: logger,
	}
}

// NodeMeta implements memberlist.Delegate: every gossiped node
// advertises its own dc/rack.
func (s *GossipSnitch) NodeMeta(limit int) []byte {
	data, _ := json.Marshal(nodeMeta{Datacenter: s.local.Datacenter, Rack: s.local.Rack})
	if len(data) > limit {
		s.logger.Warn("snitch node metadata truncated to fit memberlist limit", zap.Int("limit", limit))
		return data[:limit]
	}
	return data
}

// NotifyMsg implements memberlist.Delegate; the snitch doesn't use
// memberlist's user-message channel.
func (s *GossipSnitch) NotifyMsg([]byte) {}

// GetBroadcasts implements memberlist.Delegate; dc/rack only travels
// via NodeMeta/LocalState, never as a queued broadcast.
func (s *GossipSnitch) GetBroadcasts(overhead, limit int) [][]byte { return nil }

// LocalState implements memberlist.Delegate.
func (s *GossipSnitch) LocalState(join bool) []byte {
	return s.NodeMeta(1 << 16)
}

// MergeRemoteState implements memberlist.Delegate; per-node metadata
// already arrives through NotifyJoin/NotifyUpdate, so full-state push
// on join is a no-op here.
func (s *GossipSnitch) MergeRemoteState([]byte, bool) {}

// NotifyJoin implements memberlist.EventDelegate.
func (s *GossipSnitch) NotifyJoin(node *memberlist.Node) { s.learn(node) }

// NotifyUpdate implements memberlist.EventDelegate.
func (s *GossipSnitch) NotifyUpdate(node *memberlist.Node) { s.learn(node) }

// NotifyLeave implements memberlist.EventDelegate; a departed node's
// last-known dc/rack is left cached, since RangesOwned callbacks may
// still need it for a leaving endpoint mid-transition.
func (s *GossipSnitch) NotifyLeave(node *memberlist.Node) {}

func (s *GossipSnitch) learn(node *memberlist.Node) {
	var meta nodeMeta
	if err := json.Unmarshal(node.Meta, &meta); err != nil {
		s.logger.Warn("failed to decode snitch metadata for gossiped node",
			zap.String("node", node.Name), zap.Error(err))
		return
	}
	addr, ok := netip.AddrFromSlice(node.Addr)
	if !ok {
		return
	}
	addr = addr.Unmap()

	s.mu.Lock()
	s.byAddr[addr] = topology.DcRack{Datacenter: meta.Datacenter, Rack: meta.Rack}
	s.mu.Unlock()
}

// DcRack implements strategy.DcRackResolver. An endpoint with no
// gossiped metadata yet (or not yet observed) resolves to the zero
// DcRack; callers treat that as "unknown" rather than an error, since
// topology proximity sorting degrades gracefully without it.
func (s *GossipSnitch) DcRack(endpoint topology.Endpoint) topology.DcRack {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byAddr[endpoint.Addr]
}
