package strategy

import (
	"net"
	"testing"

	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/stretchr/testify/assert"
)

func dnsQueryPacket(t *testing.T, srcPort uint16) *packet.Packet {
	t.Helper()
	payload := make([]byte, 16)
	// header: id, flags(QR=0), qdcount=1, ancount=0
	payload[4], payload[5] = 0x00, 0x01

	data := make([]byte, 28+len(payload))
	data[0] = 0x45
	totalLen := len(data)
	data[2], data[3] = byte(totalLen>>8), byte(totalLen)
	data[8] = 64
	data[9] = 17 // UDP
	data[12], data[13], data[14], data[15] = 10, 0, 0, 1
	data[16], data[17], data[18], data[19] = 192, 168, 1, 1
	data[20], data[21] = byte(srcPort>>8), byte(srcPort)
	data[22], data[23] = 0x00, 53
	udpLen := 8 + len(payload)
	data[24], data[25] = byte(udpLen>>8), byte(udpLen)
	copy(data[28:], payload)

	p, err := packet.FromBytes(data, packet.DirectionOutbound)
	if err != nil {
		t.Fatalf("build dns packet: %v", err)
	}
	return p
}

func TestDNSRedirect_RewritesDestinationAndTracksQuery(t *testing.T) {
	p := dnsQueryPacket(t, 50000)
	ctx := pipectx.New()
	s := NewDNSRedirect(net.IPv4(1, 1, 1, 1), 53, nil)

	assert.True(t, s.ShouldApply(p, ctx))
	action, err := s.Apply(p, ctx)
	assert.NoError(t, err)
	assert.Equal(t, ActionPassKind, action.Kind)
	assert.True(t, p.DstAddr.Equal(net.IPv4(1, 1, 1, 1)))
	assert.EqualValues(t, 1, ctx.Stats.Snapshot().DNSRedirected)

	origIP, origPort, ok := ctx.DNS.GetOriginal(50000)
	assert.True(t, ok)
	assert.True(t, origIP.Equal(net.IPv4(192, 168, 1, 1)))
	assert.EqualValues(t, 53, origPort)
}

func TestDNSRedirect_IgnoresResponses(t *testing.T) {
	p := dnsQueryPacket(t, 50000)
	data := p.Bytes()
	data[28+2] = 0x80 // set QR bit: this is a response

	ctx := pipectx.New()
	s := NewDNSRedirect(net.IPv4(1, 1, 1, 1), 53, nil)

	action, err := s.Apply(p, ctx)
	assert.NoError(t, err)
	assert.Equal(t, ActionPassKind, action.Kind)
	assert.EqualValues(t, 0, ctx.Stats.Snapshot().DNSRedirected)
}

func dnsReplyPacket(t *testing.T, fromAddr net.IP, fromPort uint16, toPort uint16) *packet.Packet {
	t.Helper()
	payload := make([]byte, 16)
	payload[2] = 0x80 // QR set: response
	payload[4], payload[5] = 0x00, 0x01
	payload[6], payload[7] = 0x00, 0x01

	data := make([]byte, 28+len(payload))
	data[0] = 0x45
	totalLen := len(data)
	data[2], data[3] = byte(totalLen>>8), byte(totalLen)
	data[8] = 64
	data[9] = 17 // UDP
	v4 := fromAddr.To4()
	data[12], data[13], data[14], data[15] = v4[0], v4[1], v4[2], v4[3]
	data[16], data[17], data[18], data[19] = 10, 0, 0, 1
	data[20], data[21] = byte(fromPort>>8), byte(fromPort)
	data[22], data[23] = byte(toPort>>8), byte(toPort)
	udpLen := 8 + len(payload)
	data[24], data[25] = byte(udpLen>>8), byte(udpLen)
	copy(data[28:], payload)

	p, err := packet.FromBytes(data, packet.DirectionInbound)
	if err != nil {
		t.Fatalf("build dns reply packet: %v", err)
	}
	return p
}

func TestDNSRedirect_RestoresReplySourceAndEvictsEntry(t *testing.T) {
	ctx := pipectx.New()
	s := NewDNSRedirect(net.IPv4(77, 88, 8, 8), 53, nil)

	query := dnsQueryPacket(t, 50000)
	assert.True(t, s.ShouldApply(query, ctx))
	_, err := s.Apply(query, ctx)
	assert.NoError(t, err)

	reply := dnsReplyPacket(t, net.IPv4(77, 88, 8, 8), 53, 50000)
	assert.True(t, s.ShouldApply(reply, ctx))

	action, err := s.Apply(reply, ctx)
	assert.NoError(t, err)
	assert.Equal(t, ActionPassKind, action.Kind)
	assert.True(t, reply.SrcAddr.Equal(net.IPv4(192, 168, 1, 1)))
	assert.EqualValues(t, 53, reply.SrcPort)

	_, _, ok := ctx.DNS.GetOriginal(50000)
	assert.False(t, ok, "tracking entry should be evicted after the reply is restored")
}

func TestDNSRedirect_IgnoresUntrackedReply(t *testing.T) {
	ctx := pipectx.New()
	s := NewDNSRedirect(net.IPv4(77, 88, 8, 8), 53, nil)

	reply := dnsReplyPacket(t, net.IPv4(77, 88, 8, 8), 53, 50000)
	assert.True(t, s.ShouldApply(reply, ctx))

	action, err := s.Apply(reply, ctx)
	assert.NoError(t, err)
	assert.Equal(t, ActionPassKind, action.Kind)
	assert.True(t, reply.SrcAddr.Equal(net.IPv4(77, 88, 8, 8)), "untracked reply should pass through unchanged")
}

func TestIsDNSQuery(t *testing.T) {
	assert.False(t, isDNSQuery(nil))
	assert.False(t, isDNSQuery(make([]byte, 4)))
}
