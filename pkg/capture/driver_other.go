//go:build !linux && !windows

package capture

import "fmt"

// unsupportedDriver reports an error on every call, so the orchestrator
// fails fast at start-up on platforms with no capture backend rather
// than silently dropping every packet.
type unsupportedDriver struct{}

// NewPlatformDriver returns the capture backend for the current
// platform. On platforms other than Linux and Windows there is none.
func NewPlatformDriver() (Driver, error) {
	return nil, fmt.Errorf("capture: no driver implemented for this platform")
}

func (unsupportedDriver) Open(string) error                 { return fmt.Errorf("capture: unsupported platform") }
func (unsupportedDriver) Recv() (CapturedPacket, error)      { return CapturedPacket{}, fmt.Errorf("capture: unsupported platform") }
func (unsupportedDriver) Send([]byte, PacketAddress) error   { return fmt.Errorf("capture: unsupported platform") }
func (unsupportedDriver) Close() error                       { return nil }
