package strategy

import (
	"testing"

	"github.com/gdpi-go/engine/pkg/filter"
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/stretchr/testify/assert"
)

func httpGetPacket(t *testing.T, dstPort uint16) *packet.Packet {
	t.Helper()
	payload := []byte("GET / HTTP/1.1\r\nHost: blocked.example\r\n\r\n")

	data := make([]byte, 40+len(payload))
	data[0] = 0x45
	totalLen := len(data)
	data[2], data[3] = byte(totalLen>>8), byte(totalLen)
	data[8] = 64
	data[9] = 6
	data[12], data[13], data[14], data[15] = 10, 0, 0, 1
	data[16], data[17], data[18], data[19] = 93, 184, 216, 34
	data[20], data[21] = 0x13, 0x37
	data[22], data[23] = byte(dstPort>>8), byte(dstPort)
	data[32] = 5 << 4
	copy(data[40:], payload)

	p, err := packet.FromBytes(data, packet.DirectionOutbound)
	if err != nil {
		t.Fatalf("build http packet: %v", err)
	}
	return p
}

func TestFakePacket_InjectsBeforeRealPacket(t *testing.T) {
	p := httpGetPacket(t, 80)
	ctx := pipectx.NewWithFilter(filter.WithDomains(filter.ModeBlacklist, []string{"blocked.example"}))
	s := NewFakePacket(DamageChecksum, nil)

	assert.True(t, s.ShouldApply(p, ctx))
	action, err := s.Apply(p, ctx)
	assert.NoError(t, err)
	assert.Equal(t, ActionInjectBeforeKind, action.Kind)
	assert.Len(t, action.Inject, 1)
	assert.True(t, action.Inject[0].IsFake)
	assert.Same(t, p, action.Original)
	assert.EqualValues(t, 1, ctx.Stats.Snapshot().FakePacketsSent)
}

func TestFakePacket_SkipsWhenDomainNotBypassed(t *testing.T) {
	p := httpGetPacket(t, 80)
	ctx := pipectx.NewWithFilter(filter.WithDomains(filter.ModeBlacklist, []string{"other.example"}))
	s := NewFakePacket(DamageChecksum, nil)

	assert.False(t, s.ShouldApply(p, ctx))
}

func TestFakePacket_SkipsAlreadyFakePackets(t *testing.T) {
	p := httpGetPacket(t, 80)
	p.IsFake = true
	ctx := pipectx.NewWithFilter(filter.WithDomains(filter.ModeBlacklist, []string{"blocked.example"}))
	s := NewFakePacket(DamageChecksum, nil)

	assert.False(t, s.ShouldApply(p, ctx))
}

func TestAutoTTL_GivesUpBelowMinHops(t *testing.T) {
	s := NewFakePacket(DamageTTL, nil)
	_, ok := s.autoTTL(126) // estimate 128, h = 2 < MinHops(3)
	assert.False(t, ok)
}

func TestAutoTTL_ComputesFakeTTL(t *testing.T) {
	s := NewFakePacket(DamageTTL, nil)
	ttl, ok := s.autoTTL(118) // estimate 128, h = 10
	assert.True(t, ok)
	assert.LessOrEqual(t, ttl, s.MaxTTL)
	assert.Greater(t, ttl, uint8(0))
}

func TestAutoTTL_OutOfRangeGivesUp(t *testing.T) {
	s := NewFakePacket(DamageTTL, nil)
	_, ok := s.autoTTL(10)
	assert.False(t, ok)
}
