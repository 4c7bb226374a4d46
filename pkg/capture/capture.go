// Package capture defines the platform-agnostic packet capture/inject
// interface and filter-expression builder; driver_linux.go and
// driver_windows.go provide the concrete backends.
package capture

import (
	"github.com/gdpi-go/engine/pkg/packet"
)

// Driver is implemented by platform-specific capture backends (NFQUEUE
// on Linux, the NDISAPI driver on Windows).
type Driver interface {
	// Open acquires the underlying handle and applies filter.
	Open(filter string) error
	// Recv blocks until a packet is available.
	Recv() (CapturedPacket, error)
	// Send reinjects data at the point addr describes.
	Send(data []byte, addr PacketAddress) error
	// Close releases the underlying handle.
	Close() error
}

// CapturedPacket is a raw packet plus enough platform metadata to
// reinject it (or a derived packet) at the same point in the stack.
type CapturedPacket struct {
	Data      []byte
	Direction packet.Direction
	Address   PacketAddress
}

// Parse parses Data into a structured Packet using Direction.
func (c CapturedPacket) Parse() (*packet.Packet, error) {
	return packet.FromBytes(c.Data, c.Direction)
}

// PacketAddress carries the platform-specific metadata needed to
// reinject a packet at the correct point: which interface it arrived
// on, which direction, and whether its checksums still need fixing up.
type PacketAddress struct {
	InterfaceIndex    uint32
	SubinterfaceIndex uint32

	Outbound bool
	Loopback bool

	// Impostor marks a packet as injected by this engine rather than
	// relayed from the real capture, mirroring Packet.IsFake at the
	// driver layer.
	Impostor bool

	IPv6 bool

	IPChecksumValid  bool
	TCPChecksumValid bool
	UDPChecksumValid bool
}

// Outbound returns an address for an outbound packet with valid
// checksums, the common case for relaying an unmodified capture.
func Outbound() PacketAddress {
	return PacketAddress{Outbound: true, IPChecksumValid: true, TCPChecksumValid: true, UDPChecksumValid: true}
}

// Inbound returns an address for an inbound packet with valid checksums.
func Inbound() PacketAddress {
	return PacketAddress{Outbound: false, IPChecksumValid: true, TCPChecksumValid: true, UDPChecksumValid: true}
}

// AsImpostor marks addr as carrying an injected (fake or mutated)
// packet, returning the updated copy.
func (a PacketAddress) AsImpostor() PacketAddress {
	a.Impostor = true
	return a
}

// RecalculateChecksums marks all three checksum fields as stale,
// returning the updated copy — used after a strategy mutates a
// packet's bytes without recomputing checksums itself.
func (a PacketAddress) RecalculateChecksums() PacketAddress {
	a.IPChecksumValid = false
	a.TCPChecksumValid = false
	a.UDPChecksumValid = false
	return a
}
