// Package pipeline dispatches a packet through an ordered set of
// strategies, expanding, replacing, or dropping it as each strategy's
// action dictates, and produces the final transmit-order packet list.
package pipeline

import (
	"sort"

	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/gdpi-go/engine/pkg/strategy"
)

// Pipeline holds strategies sorted ascending by priority. Equal
// priorities keep insertion order: the sort is stable by construction.
type Pipeline struct {
	strategies []strategy.Strategy
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// AddStrategy appends s and re-sorts the strategy list by priority,
// preserving relative order among equal priorities.
func (p *Pipeline) AddStrategy(s strategy.Strategy) {
	p.strategies = append(p.strategies, s)
	sort.SliceStable(p.strategies, func(i, j int) bool {
		return p.strategies[i].Priority() < p.strategies[j].Priority()
	})
}

// AddStrategies appends each strategy in order via AddStrategy.
func (p *Pipeline) AddStrategies(strategies ...strategy.Strategy) {
	for _, s := range strategies {
		p.AddStrategy(s)
	}
}

// Len returns the number of strategies in the pipeline.
func (p *Pipeline) Len() int { return len(p.strategies) }

// IsEmpty reports whether the pipeline has no strategies.
func (p *Pipeline) IsEmpty() bool { return len(p.strategies) == 0 }

// StrategyNames returns the names of all strategies in priority order,
// for logging and diagnostics.
func (p *Pipeline) StrategyNames() []string {
	names := make([]string, len(p.strategies))
	for i, s := range p.strategies {
		names[i] = s.Name()
	}
	return names
}

// Process runs pkt through every enabled strategy in priority order and
// returns the final transmit-order packet list. Each strategy is
// invoked at most once per element currently in flight: a strategy that
// splits a packet into fragments may see those fragments again (from a
// later-priority strategy), but is never invoked twice on the same
// element by itself. Processing stops early if the in-flight list
// becomes empty (every element has been dropped).
//
// Strategy and packet-level errors never abort processing: a strategy
// that returns an error is treated as Pass, matching the rule that an
// individual strategy failure must never drop a real user packet.
func (p *Pipeline) Process(pkt *packet.Packet, ctx *pipectx.Context) []*packet.Packet {
	inFlight := []*packet.Packet{pkt}

	for _, s := range p.strategies {
		if !s.IsEnabled() {
			continue
		}
		if len(inFlight) == 0 {
			break
		}

		next := make([]*packet.Packet, 0, len(inFlight))
		for _, elem := range inFlight {
			if !s.ShouldApply(elem, ctx) {
				next = append(next, elem)
				continue
			}

			action, err := s.Apply(elem, ctx)
			if err != nil {
				next = append(next, elem)
				continue
			}

			next = append(next, expand(action)...)
		}
		inFlight = next
	}

	ctx.Stats.PacketsProcessed.Add(1)
	return inFlight
}

// expand converts a single strategy Action into the zero-or-more
// packets it contributes to the in-flight list, in transmission order.
func expand(action strategy.Action) []*packet.Packet {
	switch action.Kind {
	case strategy.ActionPassKind:
		return []*packet.Packet{action.Packet}
	case strategy.ActionReplaceKind:
		return action.Packets
	case strategy.ActionDropKind:
		return nil
	case strategy.ActionInjectBeforeKind:
		return append(append([]*packet.Packet{}, action.Inject...), action.Original)
	case strategy.ActionInjectAfterKind:
		return append([]*packet.Packet{action.Original}, action.Inject...)
	default:
		return nil
	}
}
