package strategy

import (
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/sirupsen/logrus"
)

// PassiveDPI recognises inbound RST packets injected by a DPI box — not
// sent by the real server — via their characteristic IP-identification
// values, and drops them so the legitimate connection stays open.
//
// Unlike the other strategies, PassiveDPI is optional even when enabled
// in configuration: it only ever matches on a configured set of known
// IP-ID fingerprints, so an empty IPIDs set makes it inert.
type PassiveDPI struct {
	Base

	// IPIDs is the set of IP-identification values known to be emitted
	// by the DPI boxes this strategy targets.
	IPIDs map[uint16]struct{}

	Log logrus.FieldLogger
}

// NewPassiveDPI creates an enabled Passive-DPI strategy recognising the
// given IP-ID fingerprints.
func NewPassiveDPI(ipIDs []uint16, log logrus.FieldLogger) *PassiveDPI {
	set := make(map[uint16]struct{}, len(ipIDs))
	for _, id := range ipIDs {
		set[id] = struct{}{}
	}
	return &PassiveDPI{Base: Base{Enabled: true}, IPIDs: set, Log: log}
}

func (s *PassiveDPI) Name() string    { return "passive_dpi" }
func (s *PassiveDPI) Priority() uint8 { return 40 }

func (s *PassiveDPI) ShouldApply(p *packet.Packet, ctx *pipectx.Context) bool {
	if !p.IsInbound() || !p.IsTCP() || !p.IsRST() {
		return false
	}
	id, ok := p.IPIdentification()
	if !ok {
		return false
	}
	_, known := s.IPIDs[id]
	return known
}

func (s *PassiveDPI) Apply(p *packet.Packet, ctx *pipectx.Context) (Action, error) {
	ctx.Stats.PacketsDropped.Add(1)
	if s.Log != nil {
		s.Log.Debug("dropping forged RST from recognised DPI fingerprint")
	}
	return Drop(), nil
}
