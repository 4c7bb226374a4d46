//go:build windows

package capture

import (
	"fmt"

	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/wiresock/ndisapi-go"
)

// NewPlatformDriver returns the capture backend for the current
// platform.
func NewPlatformDriver() (Driver, error) {
	return NewWindowsDriver(), nil
}

// WinDivertStyleDriver captures packets via the NDISAPI (WinpkFilter)
// driver, operating in MSTCP-tunnel mode so both directions pass
// through this engine before reaching the network or the stack.
type WinDivertStyleDriver struct {
	api     *ndisapi.NdisApi
	adapter ndisapi.Handle
	mode    uint32

	packets chan CapturedPacket
	closed  chan struct{}
}

// NewWindowsDriver prepares (but does not yet open) an NDISAPI-backed
// driver bound to the first TCP/IP adapter reported by the driver.
func NewWindowsDriver() *WinDivertStyleDriver {
	return &WinDivertStyleDriver{
		packets: make(chan CapturedPacket, 1024),
		closed:  make(chan struct{}),
	}
}

// Open binds to the default adapter and puts it into tunnel mode so
// both sent and received packets are queued for this process. filter
// is applied at the strategy layer; NDISAPI itself only gates by
// adapter and direction, not by protocol/port.
func (d *WinDivertStyleDriver) Open(filter string) error {
	api, err := ndisapi.NewNdisApi()
	if err != nil {
		return fmt.Errorf("ndisapi: open driver: %w", err)
	}
	d.api = api

	adapters, err := api.GetTcpipBoundAdaptersInfo()
	if err != nil {
		return fmt.Errorf("ndisapi: enumerate adapters: %w", err)
	}
	if adapters.AdapterCount == 0 {
		return fmt.Errorf("ndisapi: no bound adapters found")
	}
	d.adapter = adapters.AdapterHandle[0]

	d.mode = ndisapi.MSTCP_FLAG_SENT_TUNNEL | ndisapi.MSTCP_FLAG_RECV_TUNNEL
	if err := api.SetAdapterMode(&ndisapi.AdapterMode{AdapterHandle: d.adapter, Flags: d.mode}); err != nil {
		return fmt.Errorf("ndisapi: set adapter mode: %w", err)
	}

	go d.pump()

	return nil
}

// pump reads from the driver in a loop and feeds d.packets, translating
// NDIS send/receive flags into the engine's Direction.
func (d *WinDivertStyleDriver) pump() {
	buf := ndisapi.IntermediateBuffer{}

	for {
		select {
		case <-d.closed:
			return
		default:
		}

		req := ndisapi.EtherRequest{
			AdapterHandle: d.adapter,
			EthernetPacket: ndisapi.EthernetPacket{
				Buffer: &buf,
			},
		}

		if err := d.api.ReadPacket(&req); err != nil {
			continue
		}

		direction := packet.DirectionOutbound
		if buf.DeviceFlags&ndisapi.PACKET_FLAG_ON_RECEIVE != 0 {
			direction = packet.DirectionInbound
		}

		data := append([]byte(nil), buf.Buffer[:buf.Length]...)
		addr := PacketAddress{Outbound: direction == packet.DirectionOutbound, IPChecksumValid: true, TCPChecksumValid: true, UDPChecksumValid: true}

		d.packets <- CapturedPacket{Data: data, Direction: direction, Address: addr}
	}
}

// Recv returns the next packet read by the background pump goroutine.
func (d *WinDivertStyleDriver) Recv() (CapturedPacket, error) {
	select {
	case p, ok := <-d.packets:
		if !ok {
			return CapturedPacket{}, fmt.Errorf("ndisapi: driver closed")
		}
		return p, nil
	case <-d.closed:
		return CapturedPacket{}, fmt.Errorf("ndisapi: driver closed")
	}
}

// Send reinjects data at the adapter, either back towards the network
// (outbound) or up towards MSTCP (inbound), per addr.Outbound.
func (d *WinDivertStyleDriver) Send(data []byte, addr PacketAddress) error {
	if len(data) > len(ndisapi.IntermediateBuffer{}.Buffer) {
		return fmt.Errorf("ndisapi: packet too large to reinject: %d bytes", len(data))
	}

	var buf ndisapi.IntermediateBuffer
	copy(buf.Buffer[:], data)
	buf.Length = uint32(len(data))

	req := ndisapi.EtherRequest{
		AdapterHandle: d.adapter,
		EthernetPacket: ndisapi.EthernetPacket{
			Buffer: &buf,
		},
	}

	if addr.Outbound {
		return d.api.SendPacketToAdapter(&req)
	}
	return d.api.SendPacketToMstcp(&req)
}

// Close restores normal adapter mode and releases the driver handle.
func (d *WinDivertStyleDriver) Close() error {
	close(d.closed)
	if d.api != nil && d.adapter != (ndisapi.Handle{}) {
		_ = d.api.SetAdapterMode(&ndisapi.AdapterMode{AdapterHandle: d.adapter, Flags: 0})
	}
	if d.api != nil {
		return d.api.Close()
	}
	return nil
}
