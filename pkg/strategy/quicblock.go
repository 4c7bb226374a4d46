package strategy

import (
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/sirupsen/logrus"
)

// QUICBlock drops outbound QUIC Initial packets on port 443, forcing the
// browser to fall back to HTTP/2 over TCP where the other strategies can
// do their work. QUIC is fully encrypted at the transport layer, so
// there is nothing else to manipulate.
type QUICBlock struct {
	Base

	// MinPayloadSize is the smallest payload length treated as a
	// candidate QUIC Initial packet (real Initial packets are padded to
	// at least 1200 bytes).
	MinPayloadSize int

	Log logrus.FieldLogger
}

// NewQUICBlock creates an enabled QUIC-Block strategy with the default
// 1200-byte minimum payload size.
func NewQUICBlock(log logrus.FieldLogger) *QUICBlock {
	return &QUICBlock{Base: Base{Enabled: true}, MinPayloadSize: 1200, Log: log}
}

func (s *QUICBlock) Name() string    { return "quic_block" }
func (s *QUICBlock) Priority() uint8 { return 5 }

func (s *QUICBlock) ShouldApply(p *packet.Packet, ctx *pipectx.Context) bool {
	return p.IsOutbound() && p.IsUDP() && p.DstPort == 443 && p.PayloadLen() >= s.MinPayloadSize
}

func (s *QUICBlock) Apply(p *packet.Packet, ctx *pipectx.Context) (Action, error) {
	if !p.IsQUICInitial() {
		return Pass(p), nil
	}

	ctx.Stats.QUICBlocked.Add(1)
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"dst":         p.DstAddr.String(),
			"payload_len": p.PayloadLen(),
		}).Debug("blocking QUIC Initial packet")
	}
	return Drop(), nil
}
