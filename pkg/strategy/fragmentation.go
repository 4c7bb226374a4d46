package strategy

import (
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/sirupsen/logrus"
)

// Fragmentation splits an outbound TCP segment into two at a point
// inside the first few bytes (or inside the TLS SNI, if BySNI is set)
// and, optionally, sends the second half first. A DPI box that only
// inspects the first segment of a flow never sees the request line or
// ClientHello in one piece; the destination's TCP stack reassembles the
// stream correctly either way.
type Fragmentation struct {
	Base

	// HTTPSize is the split offset for plaintext HTTP requests. Zero
	// disables fragmentation of HTTP traffic specifically, without
	// affecting HTTPSSize for TLS ClientHellos.
	HTTPSize int
	// HTTPSSize is the split offset for TLS ClientHellos when BySNI is
	// false. Zero disables fragmentation of HTTPS traffic specifically.
	HTTPSSize int
	// BySNI splits inside the SNI hostname bytes of a ClientHello
	// instead of at a fixed offset, when the hostname can be located.
	BySNI bool
	// ReverseOrder sends the second fragment before the first,
	// defeating DPI that only reassembles segments in arrival order.
	ReverseOrder bool
	// NativeSplit uses the capture driver's own fragmentation (IP-level
	// fragments) instead of splitting at the TCP layer. Not implemented
	// here: no capture backend in this engine exposes native IP
	// fragmentation on send, so this field is recorded for config
	// compatibility but Apply always performs a TCP-layer split.
	NativeSplit bool
	// HTTPPersistent is recorded for config compatibility; Apply does not
	// read it and fragments every matching HTTP request on a connection,
	// not only the first.
	HTTPPersistent bool

	Log logrus.FieldLogger
}

// NewFragmentation creates an enabled Fragmentation strategy with the
// original engine's default split sizes.
func NewFragmentation(log logrus.FieldLogger) *Fragmentation {
	return &Fragmentation{
		Base:      Base{Enabled: true},
		HTTPSize:  2,
		HTTPSSize: 2,
		Log:       log,
	}
}

func (s *Fragmentation) Name() string    { return "fragmentation" }
func (s *Fragmentation) Priority() uint8 { return 80 }

func (s *Fragmentation) ShouldApply(p *packet.Packet, ctx *pipectx.Context) bool {
	if p.IsFake {
		return false
	}
	if !p.IsOutbound() || !p.IsTCP() || p.PayloadLen() < 2 {
		return false
	}

	switch {
	case p.IsHTTPRequest():
		if s.HTTPSize <= 0 {
			return false
		}
		if host, ok := p.ExtractHTTPHost(); ok {
			return ctx.ShouldBypass(host)
		}
		return ctx.ShouldBypass("")
	case p.IsTLSClientHello():
		if s.HTTPSSize <= 0 {
			return false
		}
		if sni, ok := p.ExtractSNI(); ok {
			return ctx.ShouldBypass(sni)
		}
		return ctx.ShouldBypass("")
	default:
		return false
	}
}

func (s *Fragmentation) Apply(p *packet.Packet, ctx *pipectx.Context) (Action, error) {
	offset := s.splitOffset(p)
	if offset <= 0 || offset >= p.PayloadLen() {
		return Pass(p), nil
	}

	first, second, err := p.SplitAtPayload(offset)
	if err != nil {
		return Pass(p), nil
	}
	first.RecalculateChecksums()
	second.RecalculateChecksums()

	ctx.Stats.PacketsFragmented.Add(1)
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"offset":  offset,
			"reverse": s.ReverseOrder,
		}).Debug("fragmenting packet")
	}

	if s.ReverseOrder {
		return Replace(second, first), nil
	}
	return Replace(first, second), nil
}

// splitOffset picks where inside the payload to split: inside the SNI
// hostname when BySNI finds one, otherwise the configured fixed size
// for the matched protocol.
func (s *Fragmentation) splitOffset(p *packet.Packet) int {
	if s.BySNI && p.IsTLSClientHello() {
		if pos, ok := findSNIFragmentPosition(p); ok {
			return pos
		}
	}

	if p.IsHTTPRequest() {
		return s.HTTPSize
	}
	return s.HTTPSSize
}

// findSNIFragmentPosition locates a point one byte inside the SNI
// hostname extension, so the split lands mid-hostname rather than at a
// predictable fixed offset. It scans for the same extension-length
// tuple ExtractSNI matches, then returns the offset one byte past the
// name-length field (the hostname's second byte).
func findSNIFragmentPosition(p *packet.Packet) (int, bool) {
	payload := p.Payload()
	if len(payload) < 44 {
		return 0, false
	}

	for ptr := 0; ptr+10 < len(payload); ptr++ {
		if payload[ptr] != 0x00 || payload[ptr+1] != 0x00 {
			continue
		}
		extLen := int(payload[ptr+2])<<8 | int(payload[ptr+3])
		listLen := int(payload[ptr+4])<<8 | int(payload[ptr+5])
		nameType := payload[ptr+6]
		nameLen := int(payload[ptr+7])<<8 | int(payload[ptr+8])

		if extLen != listLen+2 || listLen != nameLen+3 || nameType != 0x00 {
			continue
		}

		sniStart := ptr + 9
		if sniStart+1 >= len(payload) {
			continue
		}
		return sniStart + 1, true
	}

	return 0, false
}
