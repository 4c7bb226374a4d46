package strategy

import (
	"bytes"
	"testing"

	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/stretchr/testify/assert"
)

func httpPacket(t *testing.T, body string) *packet.Packet {
	t.Helper()
	payload := []byte(body)

	data := make([]byte, 40+len(payload))
	data[0] = 0x45
	totalLen := len(data)
	data[2], data[3] = byte(totalLen>>8), byte(totalLen)
	data[8] = 64
	data[9] = 6 // TCP
	data[12], data[13], data[14], data[15] = 10, 0, 0, 1
	data[16], data[17], data[18], data[19] = 93, 184, 216, 34
	data[20], data[21] = 0x13, 0x37
	data[22], data[23] = 0x00, 80
	data[32] = 5 << 4 // data offset = 20 bytes
	copy(data[40:], payload)

	p, err := packet.FromBytes(data, packet.DirectionOutbound)
	if err != nil {
		t.Fatalf("build http packet: %v", err)
	}
	return p
}

func TestHeaderMangle_HostReplace(t *testing.T) {
	p := httpPacket(t, "GET / HTTP/1.1\r\nHost: blocked.example\r\n\r\n")
	ctx := pipectx.New()
	s := NewHeaderMangle(nil)

	assert.True(t, s.ShouldApply(p, ctx))
	action, err := s.Apply(p, ctx)
	assert.NoError(t, err)
	assert.Equal(t, ActionReplaceKind, action.Kind)
	assert.Len(t, action.Packets, 1)
	assert.True(t, bytes.Contains(action.Packets[0].Payload(), []byte("\r\nhoSt: blocked.example\r\n")))
	assert.EqualValues(t, 1, ctx.Stats.Snapshot().HeadersModified)
}

func TestHeaderMangle_MixCase(t *testing.T) {
	p := httpPacket(t, "GET / HTTP/1.1\r\nHost: blocked.example\r\n\r\n")
	ctx := pipectx.New()
	s := NewHeaderMangle(nil)
	s.HostReplace = false
	s.HostMixCase = true

	action, err := s.Apply(p, ctx)
	assert.NoError(t, err)
	assert.True(t, bytes.Contains(action.Packets[0].Payload(), []byte("\r\nHost: bLoCkEd.eXaMpLe\r\n")))
	assert.EqualValues(t, 1, ctx.Stats.Snapshot().HeadersModified)
}

func TestHeaderMangle_IgnoresNonHTTPPort(t *testing.T) {
	p := httpPacket(t, "GET / HTTP/1.1\r\nHost: blocked.example\r\n\r\n")
	p.DstPort = 8080
	ctx := pipectx.New()
	s := NewHeaderMangle(nil)

	assert.False(t, s.ShouldApply(p, ctx))
}

func TestHeaderMangle_NoHostHeaderPassesThrough(t *testing.T) {
	p := httpPacket(t, "GET / HTTP/1.1\r\n\r\n")
	ctx := pipectx.New()
	s := NewHeaderMangle(nil)

	action, err := s.Apply(p, ctx)
	assert.NoError(t, err)
	assert.Equal(t, ActionPassKind, action.Kind)
}
