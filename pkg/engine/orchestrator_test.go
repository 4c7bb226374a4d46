package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gdpi-go/engine/pkg/capture"
	"github.com/gdpi-go/engine/pkg/config"
	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/gdpi-go/engine/pkg/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver hands back a fixed queue of packets and records everything
// sent back through it.
type fakeDriver struct {
	mu    sync.Mutex
	queue []capture.CapturedPacket
	sent  [][]byte

	openErr error
}

func (f *fakeDriver) Open(string) error { return f.openErr }

func (f *fakeDriver) Recv() (capture.CapturedPacket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return capture.CapturedPacket{}, errors.New("fakeDriver: queue empty")
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next, nil
}

func (f *fakeDriver) Send(data []byte, _ capture.PacketAddress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeDriver) Close() error { return nil }

// rawIPv4TCP builds a minimal IPv4/TCP packet with no options and no
// payload, enough for FromBytes to parse successfully.
func rawIPv4TCP(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, 40)
	buf[0] = 0x45 // version 4, IHL 5
	buf[8] = 64   // TTL
	buf[9] = 6    // TCP
	copy(buf[12:16], []byte{10, 0, 0, 1})
	copy(buf[16:20], []byte{10, 0, 0, 2})
	buf[20], buf[21] = 0x13, 0x88 // src port 5000
	buf[22], buf[23] = 0x00, 0x50 // dst port 80
	buf[32] = 5 << 4 // data offset 5
	return buf
}

func newTestOrchestrator(driver capture.Driver) *Orchestrator {
	return &Orchestrator{
		Driver:   driver,
		Pipeline: pipeline.New(),
		Context:  pipectx.New(),
		Log:      logrus.New(),
	}
}

func TestHandle_ParsesAndReinjectsUnmodifiedPacket(t *testing.T) {
	driver := &fakeDriver{}
	o := newTestOrchestrator(driver)

	raw := rawIPv4TCP(t)
	captured := capture.CapturedPacket{
		Data:      raw,
		Direction: packet.DirectionOutbound,
		Address:   capture.Outbound(),
	}

	require.NoError(t, o.handle(captured))
	require.Len(t, driver.sent, 1)
	assert.Equal(t, raw, driver.sent[0])
}

func TestHandle_PropagatesParseError(t *testing.T) {
	driver := &fakeDriver{}
	o := newTestOrchestrator(driver)

	captured := capture.CapturedPacket{Data: []byte{0x01}, Direction: packet.DirectionOutbound}
	err := o.handle(captured)
	require.Error(t, err)
}

func TestHandle_CountsProcessedPacket(t *testing.T) {
	driver := &fakeDriver{}
	o := newTestOrchestrator(driver)

	raw := rawIPv4TCP(t)
	captured := capture.CapturedPacket{
		Data:      raw,
		Direction: packet.DirectionOutbound,
		Address:   capture.Outbound(),
	}

	require.NoError(t, o.handle(captured))
	assert.EqualValues(t, 1, o.Context.Stats.PacketsProcessed.Load())
}

func TestNew_BuildsFromDefaultConfig(t *testing.T) {
	cfg := config.Default()

	o, err := New(cfg, logrus.New())
	require.NoError(t, err)
	assert.NotNil(t, o.Driver)
	assert.NotNil(t, o.Pipeline)
	assert.NotNil(t, o.Context)
}

func TestOrchestrator_StopCancelsRunLoop(t *testing.T) {
	driver := &fakeDriver{}
	o := newTestOrchestrator(driver)
	o.Log = nil

	done := make(chan error, 1)
	go func() { done <- o.Run(context.Background()) }()

	o.Stop()
	require.NoError(t, <-done)
}
