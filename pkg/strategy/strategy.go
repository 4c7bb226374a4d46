// Package strategy implements the six independent packet-transformation
// strategies and the StrategyAction tagged union the pipeline dispatches
// on.
package strategy

import (
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
)

// Strategy is one independent packet transformation. The pipeline
// invokes ShouldApply/Apply on every strategy, in ascending Priority
// order, at most once per packet element currently flowing through it.
type Strategy interface {
	Name() string
	Priority() uint8
	IsEnabled() bool
	ShouldApply(p *packet.Packet, ctx *pipectx.Context) bool
	Apply(p *packet.Packet, ctx *pipectx.Context) (Action, error)
}

// ActionKind tags which variant of Action is populated.
type ActionKind int

const (
	// ActionPassKind keeps the packet, possibly mutated.
	ActionPassKind ActionKind = iota
	// ActionReplaceKind replaces the packet with one or more packets
	// (e.g. fragments).
	ActionReplaceKind
	// ActionDropKind discards the packet entirely.
	ActionDropKind
	// ActionInjectBeforeKind sends Inject packets ahead of Original.
	ActionInjectBeforeKind
	// ActionInjectAfterKind sends Inject packets after Original.
	ActionInjectAfterKind
)

// Action is the tagged union a Strategy's Apply returns, mirroring the
// original engine's StrategyAction enum.
type Action struct {
	Kind     ActionKind
	Packet   *packet.Packet   // ActionPassKind
	Packets  []*packet.Packet // ActionReplaceKind
	Original *packet.Packet   // ActionInjectBeforeKind / ActionInjectAfterKind
	Inject   []*packet.Packet // ActionInjectBeforeKind / ActionInjectAfterKind
}

// Pass keeps p, possibly mutated in place by the strategy.
func Pass(p *packet.Packet) Action { return Action{Kind: ActionPassKind, Packet: p} }

// Replace substitutes one or more packets for the original.
func Replace(ps ...*packet.Packet) Action {
	return Action{Kind: ActionReplaceKind, Packets: ps}
}

// Drop discards the packet.
func Drop() Action { return Action{Kind: ActionDropKind} }

// InjectBefore sends inject ahead of original.
func InjectBefore(inject []*packet.Packet, original *packet.Packet) Action {
	return Action{Kind: ActionInjectBeforeKind, Inject: inject, Original: original}
}

// InjectAfter sends inject after original.
func InjectAfter(original *packet.Packet, inject []*packet.Packet) Action {
	return Action{Kind: ActionInjectAfterKind, Original: original, Inject: inject}
}

// Base provides the enabled-flag bookkeeping every concrete strategy
// embeds, matching the original's default-constructed "always enabled"
// behaviour while letting config disable individual strategies.
type Base struct {
	Enabled bool
}

// IsEnabled reports whether the pipeline should invoke this strategy at
// all; disabled strategies are skipped even if ShouldApply would have
// matched.
func (b Base) IsEnabled() bool { return b.Enabled }
