package strategy

import (
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/sirupsen/logrus"
)

// FakeDamageMode selects how a decoy packet is made to look legitimate
// to the DPI box but get discarded (or ignored) by the real server.
type FakeDamageMode int

const (
	// DamageTTL sends the decoy with a TTL too low to reach the real
	// server but high enough to pass whatever middlebox is inspecting
	// the flow.
	DamageTTL FakeDamageMode = iota
	// DamageChecksum sends the decoy with a TCP checksum decremented by
	// one and a normal TTL; most real stacks drop the segment silently
	// on checksum mismatch.
	DamageChecksum
	// DamageSeq sends the decoy with sequence and ack numbers shifted
	// back by a fixed amount and a normal TTL.
	DamageSeq
)

// decoyPayloads are innocuous-looking payloads used to pad out the fake
// packet so it resembles real application data rather than garbage.
var decoyPayloads = [][]byte{
	[]byte("GET / HTTP/1.1\r\nHost: www.w3.org\r\n\r\n"),
	{ // minimal TLS ClientHello record shell, enough to pass a
		// byte-pattern sniff; it carries no SNI extension
		0x16, 0x03, 0x01, 0x00, 0x2f, 0x01, 0x00, 0x00, 0x2b, 0x03, 0x03,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	},
}

const (
	wrongSeqDelta = 10000
	wrongAckDelta = 66000
)

// FakePacket injects one or more decoy packets ahead of every matching
// outbound initial-request packet. Each decoy is crafted to be accepted
// by an in-path DPI classifier (so it sees what looks like the start of
// a connection) but discarded before, or ignored by, the real
// destination, while the genuine packet follows immediately after.
type FakePacket struct {
	Base

	// Damage selects how the decoy is invalidated for the real peer.
	Damage FakeDamageMode

	// FixedTTL is used for DamageTTL when no SYN-ACK TTL has been
	// recorded yet for the connection (and Auto-TTL can't run).
	FixedTTL uint8

	// ResendCount is how many decoy packets precede each real packet.
	ResendCount int

	// MinHops gates Auto-TTL: below this many inferred hops there isn't
	// enough room to pick a TTL that clears the DPI box but not the
	// server, so the strategy gives up rather than guess.
	MinHops uint8

	// TTLMarginLow/TTLMarginHigh are the a1/a2 margins (in hops)
	// subtracted from the inferred hop count to pick a fake TTL that
	// undershoots the real path length.
	TTLMarginLow  uint8
	TTLMarginHigh uint8
	// MaxTTL caps the computed fake TTL regardless of path length.
	MaxTTL uint8

	Log logrus.FieldLogger
}

// NewFakePacket creates an enabled Fake-Packet strategy with the
// original engine's default margins (a1=1, a2=4, max=10, min_hops=3) and
// a single decoy per real packet.
func NewFakePacket(damage FakeDamageMode, log logrus.FieldLogger) *FakePacket {
	return &FakePacket{
		Base:          Base{Enabled: true},
		Damage:        damage,
		FixedTTL:      5,
		ResendCount:   1,
		MinHops:       3,
		TTLMarginLow:  1,
		TTLMarginHigh: 4,
		MaxTTL:        10,
		Log:           log,
	}
}

func (s *FakePacket) Name() string    { return "fake_packet" }
func (s *FakePacket) Priority() uint8 { return 10 }

func (s *FakePacket) ShouldApply(p *packet.Packet, ctx *pipectx.Context) bool {
	if p.IsFake || !p.IsOutbound() || !p.IsTCP() {
		return false
	}

	var matched bool
	switch {
	case p.DstPort == 80 && p.IsHTTPRequest():
		matched = true
	case p.DstPort == 443 && p.IsTLSClientHello():
		matched = true
	default:
		return false
	}
	if !matched {
		return false
	}

	if host, ok := p.ExtractHTTPHost(); ok {
		return ctx.ShouldBypass(host)
	}
	if sni, ok := p.ExtractSNI(); ok {
		return ctx.ShouldBypass(sni)
	}
	return ctx.ShouldBypass("")
}

func (s *FakePacket) Apply(p *packet.Packet, ctx *pipectx.Context) (Action, error) {
	fakeTTL := s.FixedTTL
	if s.Damage == DamageTTL {
		if recorded, ok := ctx.ConnectionTTL(p); ok {
			if t, ok := s.autoTTL(recorded); ok {
				fakeTTL = t
			} else {
				return Pass(p), nil
			}
		}
	}

	decoys := make([]*packet.Packet, 0, s.ResendCount)
	for i := 0; i < s.ResendCount; i++ {
		decoys = append(decoys, s.buildDecoy(p, fakeTTL, i))
	}

	ctx.Stats.FakePacketsSent.Add(uint64(len(decoys)))
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"fake_ttl": fakeTTL,
			"count":    len(decoys),
		}).Debug("injecting fake packet(s)")
	}

	return InjectBefore(decoys, p), nil
}

func (s *FakePacket) buildDecoy(p *packet.Packet, fakeTTL uint8, index int) *packet.Packet {
	payload := decoyPayloads[index%len(decoyPayloads)]
	decoy := p.WithNewPayload(payload)
	decoy.IsFake = true

	switch s.Damage {
	case DamageTTL:
		decoy.SetTTL(fakeTTL)
		decoy.RecalculateChecksums()
	case DamageChecksum:
		decoy.RecalculateChecksums()
		decrementChecksum(decoy)
	case DamageSeq:
		decoy.RecalculateChecksums()
		if seq, ok := decoy.TCPSeq(); ok {
			decoy.SetTCPSeq(seq - wrongSeqDelta)
		}
		if ack, ok := decoy.TCPAck(); ok {
			decoy.SetTCPAck(ack - wrongAckDelta)
		}
		decoy.RecalculateChecksums()
	}

	return decoy
}

// decrementChecksum subtracts one from the already-recalculated TCP
// checksum field so the real endpoint's stack silently discards the
// segment while a naive middlebox — which often doesn't validate
// checksums at all — still parses and inspects it.
func decrementChecksum(p *packet.Packet) {
	if !p.IsTCP() {
		return
	}
	data := p.Bytes()
	offset := p.TCPChecksumOffset()
	if offset < 0 || offset+1 >= len(data) {
		return
	}
	sum := uint16(data[offset])<<8 | uint16(data[offset+1])
	sum--
	data[offset] = byte(sum >> 8)
	data[offset+1] = byte(sum)
}

// autoTTL infers the number of hops between the client and the real
// destination from the TTL recorded off the connection's SYN-ACK, and
// returns a fake TTL that should expire before reaching the server
// while still surviving to any in-path DPI box. ok is false when there
// isn't enough margin to try, matching the original engine's
// give-up conditions.
func (s *FakePacket) autoTTL(synAckTTL uint8) (uint8, bool) {
	var estimate uint8
	switch {
	case synAckTTL > 98 && synAckTTL < 128:
		estimate = 128
	case synAckTTL > 34 && synAckTTL < 64:
		estimate = 64
	default:
		return 0, false
	}

	h := estimate - synAckTTL
	if h < s.MinHops {
		return 0, false
	}

	fakeTTL := satSub(h, s.TTLMarginHigh)
	if fakeTTL < s.TTLMarginHigh && h <= 9 {
		scale := uint8(float64(s.TTLMarginHigh-s.TTLMarginLow) * float64(h) / 10.0)
		fakeTTL = satSub(satSub(h, s.TTLMarginLow), scale)
	}

	if fakeTTL > s.MaxTTL {
		fakeTTL = s.MaxTTL
	}
	if fakeTTL == 0 {
		return 0, false
	}

	return fakeTTL, true
}

func satSub(a, b uint8) uint8 {
	if b >= a {
		return 0
	}
	return a - b
}
