package capture

import (
	"fmt"
	"strings"
)

// FilterBuilder composes a WinDivert-syntax filter expression from
// typed method calls, avoiding hand-built strings at call sites. The
// Linux NFQUEUE backend accepts the expression but does not apply it
// (see NFQueueDriver.Open).
type FilterBuilder struct {
	parts []filterPart
}

type filterPartKind int

const (
	partKeyword filterPartKind = iota
	partCondition
	partAnd
	partOr
	partNot
	partGroupStart
	partGroupEnd
)

type filterPart struct {
	kind  filterPartKind
	value string
}

// NewFilterBuilder creates an empty builder.
func NewFilterBuilder() *FilterBuilder {
	return &FilterBuilder{}
}

func (f *FilterBuilder) keyword(k string) *FilterBuilder {
	f.parts = append(f.parts, filterPart{kind: partKeyword, value: k})
	return f
}

func (f *FilterBuilder) condition(c string) *FilterBuilder {
	f.parts = append(f.parts, filterPart{kind: partCondition, value: c})
	return f
}

func (f *FilterBuilder) Outbound() *FilterBuilder { return f.keyword("outbound") }
func (f *FilterBuilder) Inbound() *FilterBuilder  { return f.keyword("inbound") }
func (f *FilterBuilder) TCP() *FilterBuilder      { return f.keyword("tcp") }
func (f *FilterBuilder) UDP() *FilterBuilder      { return f.keyword("udp") }
func (f *FilterBuilder) IP() *FilterBuilder       { return f.keyword("ip") }
func (f *FilterBuilder) IPv6() *FilterBuilder     { return f.keyword("ipv6") }
func (f *FilterBuilder) Loopback() *FilterBuilder { return f.keyword("loopback") }

func (f *FilterBuilder) DstPort(port uint16) *FilterBuilder {
	return f.condition(fmt.Sprintf("tcp.DstPort == %d", port))
}

func (f *FilterBuilder) SrcPort(port uint16) *FilterBuilder {
	return f.condition(fmt.Sprintf("tcp.SrcPort == %d", port))
}

func (f *FilterBuilder) UDPDstPort(port uint16) *FilterBuilder {
	return f.condition(fmt.Sprintf("udp.DstPort == %d", port))
}

func (f *FilterBuilder) Syn() *FilterBuilder { return f.condition("tcp.Syn") }
func (f *FilterBuilder) Ack() *FilterBuilder { return f.condition("tcp.Ack") }
func (f *FilterBuilder) Psh() *FilterBuilder { return f.condition("tcp.Psh") }
func (f *FilterBuilder) Rst() *FilterBuilder { return f.condition("tcp.Rst") }
func (f *FilterBuilder) Fin() *FilterBuilder { return f.condition("tcp.Fin") }

func (f *FilterBuilder) PayloadLength(op string, n int) *FilterBuilder {
	return f.condition(fmt.Sprintf("tcp.PayloadLength %s %d", op, n))
}

func (f *FilterBuilder) Raw(condition string) *FilterBuilder {
	return f.condition(condition)
}

func (f *FilterBuilder) And() *FilterBuilder {
	f.parts = append(f.parts, filterPart{kind: partAnd})
	return f
}

func (f *FilterBuilder) Or() *FilterBuilder {
	f.parts = append(f.parts, filterPart{kind: partOr})
	return f
}

func (f *FilterBuilder) Not() *FilterBuilder {
	f.parts = append(f.parts, filterPart{kind: partNot})
	return f
}

func (f *FilterBuilder) GroupStart() *FilterBuilder {
	f.parts = append(f.parts, filterPart{kind: partGroupStart})
	return f
}

func (f *FilterBuilder) GroupEnd() *FilterBuilder {
	f.parts = append(f.parts, filterPart{kind: partGroupEnd})
	return f
}

// Build renders the accumulated parts into a filter expression string.
func (f *FilterBuilder) Build() string {
	var b strings.Builder
	prevWasTerm := false

	for _, part := range f.parts {
		switch part.kind {
		case partKeyword, partCondition:
			if prevWasTerm {
				b.WriteString(" and ")
			}
			b.WriteString(part.value)
			prevWasTerm = true
		case partAnd:
			b.WriteString(" and ")
			prevWasTerm = false
		case partOr:
			b.WriteString(" or ")
			prevWasTerm = false
		case partNot:
			if prevWasTerm {
				b.WriteString(" and ")
			}
			b.WriteString("not ")
			prevWasTerm = false
		case partGroupStart:
			if prevWasTerm {
				b.WriteString(" and ")
			}
			b.WriteByte('(')
			prevWasTerm = false
		case partGroupEnd:
			b.WriteByte(')')
			prevWasTerm = true
		}
	}

	return b.String()
}

// FilterPresets are common, named filter expressions for strategy
// combinations the engine actually wires up.
type FilterPresets struct{}

func (FilterPresets) HTTPOutbound() string {
	return NewFilterBuilder().Outbound().TCP().DstPort(80).Psh().Ack().Build()
}

func (FilterPresets) HTTPSOutbound() string {
	return NewFilterBuilder().Outbound().TCP().DstPort(443).Build()
}

func (FilterPresets) DNSOutbound() string {
	return NewFilterBuilder().Outbound().UDP().UDPDstPort(53).Build()
}

func (FilterPresets) QUICOutbound() string {
	return NewFilterBuilder().Outbound().UDP().UDPDstPort(443).Build()
}

func (FilterPresets) SYNACKInbound() string {
	return NewFilterBuilder().Inbound().TCP().Syn().Ack().Build()
}

// Basic combines HTTP and HTTPS outbound traffic only.
func (FilterPresets) Basic() string {
	return "outbound and tcp and (tcp.DstPort == 80 or tcp.DstPort == 443)"
}

// Full adds DNS redirection and SYN-ACK TTL tracking to Basic.
func (FilterPresets) Full() string {
	return "(outbound and tcp and (tcp.DstPort == 80 or tcp.DstPort == 443)) or " +
		"(outbound and udp and udp.DstPort == 53) or " +
		"(inbound and tcp and tcp.Syn and tcp.Ack)"
}

// WithQUIC adds QUIC-Block's UDP/443 match to Full, for profiles that
// enable quic_block.
func (FilterPresets) WithQUIC() string {
	return "(outbound and tcp and (tcp.DstPort == 80 or tcp.DstPort == 443)) or " +
		"(outbound and udp and (udp.DstPort == 53 or udp.DstPort == 443)) or " +
		"(inbound and tcp and tcp.Syn and tcp.Ack)"
}
