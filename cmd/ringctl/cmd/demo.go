package cmd

import (
	"context"
	"fmt"

	"github.com/devrev/pairdb/ringmeta/internal/holder"
	"github.com/devrev/pairdb/ringmeta/internal/snapshot"
	"github.com/devrev/pairdb/ringmeta/internal/strategy"
	"github.com/devrev/pairdb/ringmeta/internal/token"
	"github.com/devrev/pairdb/ringmeta/internal/topology"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Drive a small bootstrap/leave/replace ring by hand",
	Long: `demo wires up a shared holder, bootstraps a three-node ring, then
walks it through a bootstrap, a leave, and a replace, printing the
transitioning endpoints and the per-keyspace pending-range counts after
each step. It exists to let an operator
exercise the transition algorithms without a running cluster attached.`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

// rf1Strategy is a replication-factor-1 strategy: the natural endpoint
// for a token is whichever node owns the next token at or after it.
type rf1Strategy struct{}

func (rf1Strategy) RangesOwned(_ context.Context, ep topology.Endpoint, view strategy.View) ([]token.Range, error) {
	return view.Ring.GetPrimaryRangesFor(view.Ring.GetTokens(ep))
}

func (rf1Strategy) NaturalEndpoints(_ context.Context, tok token.Token, view strategy.View) (map[topology.Endpoint]struct{}, error) {
	it, err := token.NewRingIterator(view.Ring.SortedTokens, tok)
	if err != nil {
		return nil, err
	}
	owner, ok := it.Next()
	if !ok {
		return map[topology.Endpoint]struct{}{}, nil
	}
	ep, _ := view.Ring.GetEndpoint(owner)
	return map[topology.Endpoint]struct{}{ep: {}}, nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	out := cmd.OutOrStdout()

	epA := topology.MustEndpoint("10.9.0.1", 9042)
	epB := topology.MustEndpoint("10.9.0.2", 9042)
	epC := topology.MustEndpoint("10.9.0.3", 9042)
	epD := topology.MustEndpoint("10.9.0.4", 9042)

	h := holder.New(snapshot.New(nil), nil, nil)
	for _, ep := range []topology.Endpoint{epA, epB, epC, epD} {
		err := h.Mutate(ctx, func(_ context.Context, s *snapshot.Snapshot) error {
			s.Registry.UpdateDcRackState(ep, topology.DcRack{Datacenter: "dc1", Rack: "r1"}, nil)
			return s.Registry.UpdateHostId(ep, topology.NewHostId())
		})
		if err != nil {
			return err
		}
	}

	tokens := map[topology.Endpoint]int64{epA: 10, epB: 20, epC: 30}
	for ep, v := range tokens {
		t := token.New(v)
		err := h.Mutate(ctx, func(innerCtx context.Context, s *snapshot.Snapshot) error {
			return s.Ring.UpdateNormalTokens(innerCtx, map[token.Token]struct{}{t: {}}, ep, s.Registry, nil)
		})
		if err != nil {
			return err
		}
	}

	printSummary := func(label string) error {
		s := h.Get()
		if err := s.Pending.UpdatePendingRanges(ctx, "demo_ks", s.Ring, s.Registry, rf1Strategy{}, nil); err != nil {
			return err
		}
		summary := s.TransitionSummary()
		fmt.Fprintf(out, "-- %s --\n", label)
		fmt.Fprintf(out, "bootstrapping: %v\n", summary.Bootstrapping)
		fmt.Fprintf(out, "leaving: %v\n", summary.Leaving)
		fmt.Fprintf(out, "replacing: %v\n", summary.Replacing)
		fmt.Fprintf(out, "pending ranges by keyspace: %v\n", summary.PendingRangeCounts)
		return nil
	}

	if err := h.Mutate(ctx, func(_ context.Context, s *snapshot.Snapshot) error {
		return s.Ring.AddBootstrapTokens(map[token.Token]struct{}{token.New(25): {}}, epD)
	}); err != nil {
		return err
	}
	if err := printSummary("bootstrap epD at token 25"); err != nil {
		return err
	}

	if err := h.Mutate(ctx, func(_ context.Context, s *snapshot.Snapshot) error {
		s.Ring.RemoveBootstrapTokens(map[token.Token]struct{}{token.New(25): {}})
		s.Ring.AddLeavingEndpoint(epB)
		return nil
	}); err != nil {
		return err
	}
	if err := printSummary("leave epB"); err != nil {
		return err
	}

	if err := h.Mutate(ctx, func(_ context.Context, s *snapshot.Snapshot) error {
		s.Ring.DelLeavingEndpoint(epB)
		s.Ring.AddReplacingEndpoint(epB, epD)
		return nil
	}); err != nil {
		return err
	}
	return printSummary("replace epB with epD")
}
