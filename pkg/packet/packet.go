package packet

import (
	"fmt"
	"net"
)

// Packet wraps a single captured IPv4/IPv6 TCP/UDP packet, parsed enough
// to let strategies inspect and mutate it without re-walking the header
// bytes on every access.
type Packet struct {
	data []byte

	Direction Direction
	IPVersion IPVersion
	Protocol  Protocol

	SrcAddr net.IP
	DstAddr net.IP
	SrcPort uint16
	DstPort uint16

	TTL   uint8
	IPID  uint16
	hasID bool

	TCPFlags    TCPFlags
	hasTCPFlags bool

	ipHeaderLen        int
	transportHeaderLen int

	// IsFake marks a packet as a decoy injected by Fake-Packet — other
	// strategies (Fragmentation in particular) must never reprocess it.
	IsFake bool
}

// ParseError reports why a byte slice could not be parsed as a packet.
// Callers match on Kind, not on the message text.
type ParseError struct {
	Kind     string
	Expected int
	Actual   int
	Detail   string
}

func (e *ParseError) Error() string {
	if e.Kind == "too_small" {
		return fmt.Sprintf("packet too small: expected at least %d bytes, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("packet malformed: %s", e.Detail)
}

func tooSmall(expected, actual int) error {
	return &ParseError{Kind: "too_small", Expected: expected, Actual: actual}
}

func malformed(detail string) error {
	return &ParseError{Kind: "malformed", Detail: detail}
}

// FromBytes parses a raw packet captured in the given direction. The
// returned Packet retains a copy of data; the caller's slice may be
// reused afterwards.
func FromBytes(data []byte, direction Direction) (*Packet, error) {
	if len(data) < 20 {
		return nil, tooSmall(20, len(data))
	}

	p := &Packet{
		data:      append([]byte(nil), data...),
		Direction: direction,
	}

	version := (p.data[0] >> 4) & 0x0F
	switch version {
	case 4:
		if err := p.parseIPv4(); err != nil {
			return nil, err
		}
	case 6:
		if err := p.parseIPv6(); err != nil {
			return nil, err
		}
	default:
		return nil, malformed(fmt.Sprintf("unknown IP version: %d", version))
	}

	return p, nil
}

func (p *Packet) parseIPv4() error {
	if len(p.data) < 20 {
		return tooSmall(20, len(p.data))
	}

	p.IPVersion = IPv4
	p.ipHeaderLen = int(p.data[0]&0x0F) * 4

	if len(p.data) < p.ipHeaderLen {
		return tooSmall(p.ipHeaderLen, len(p.data))
	}

	p.IPID = uint16(p.data[4])<<8 | uint16(p.data[5])
	p.hasID = true
	p.TTL = p.data[8]
	p.Protocol = protocolFromByte(p.data[9])
	p.SrcAddr = net.IPv4(p.data[12], p.data[13], p.data[14], p.data[15])
	p.DstAddr = net.IPv4(p.data[16], p.data[17], p.data[18], p.data[19])

	return p.parseTransport()
}

func (p *Packet) parseIPv6() error {
	if len(p.data) < 40 {
		return tooSmall(40, len(p.data))
	}

	p.IPVersion = IPv6
	p.ipHeaderLen = 40

	p.TTL = p.data[7] // hop limit
	p.Protocol = protocolFromByte(p.data[6])

	src := make(net.IP, 16)
	dst := make(net.IP, 16)
	copy(src, p.data[8:24])
	copy(dst, p.data[24:40])
	p.SrcAddr = src
	p.DstAddr = dst

	return p.parseTransport()
}

func (p *Packet) parseTransport() error {
	offset := p.ipHeaderLen

	switch p.Protocol {
	case ProtoTCP:
		if len(p.data) < offset+20 {
			return tooSmall(offset+20, len(p.data))
		}
		p.SrcPort = uint16(p.data[offset])<<8 | uint16(p.data[offset+1])
		p.DstPort = uint16(p.data[offset+2])<<8 | uint16(p.data[offset+3])
		p.transportHeaderLen = int(p.data[offset+12]>>4) * 4
		p.TCPFlags = tcpFlagsFromByte(p.data[offset+13])
		p.hasTCPFlags = true
	case ProtoUDP:
		if len(p.data) < offset+8 {
			return tooSmall(offset+8, len(p.data))
		}
		p.SrcPort = uint16(p.data[offset])<<8 | uint16(p.data[offset+1])
		p.DstPort = uint16(p.data[offset+2])<<8 | uint16(p.data[offset+3])
		p.transportHeaderLen = 8
	}

	return nil
}

// Payload returns the bytes after the IP and transport headers. The
// returned slice aliases the packet's internal buffer; callers must not
// retain it past the next mutation.
func (p *Packet) Payload() []byte {
	offset := p.ipHeaderLen + p.transportHeaderLen
	if offset < len(p.data) {
		return p.data[offset:]
	}
	return nil
}

// PayloadLen returns len(p.Payload()) without the alias risk.
func (p *Packet) PayloadLen() int {
	return len(p.Payload())
}

// Bytes returns the full raw packet, including headers.
func (p *Packet) Bytes() []byte {
	return p.data
}

// Len returns the total packet length in bytes.
func (p *Packet) Len() int {
	return len(p.data)
}

// Clone returns a deep copy that shares no backing array with p.
func (p *Packet) Clone() *Packet {
	cp := *p
	cp.data = append([]byte(nil), p.data...)
	return &cp
}

func (p *Packet) IsOutbound() bool { return p.Direction == DirectionOutbound }
func (p *Packet) IsInbound() bool  { return p.Direction == DirectionInbound }
func (p *Packet) IsTCP() bool      { return p.Protocol == ProtoTCP }
func (p *Packet) IsUDP() bool      { return p.Protocol == ProtoUDP }
func (p *Packet) IsIPv4() bool     { return p.IPVersion == IPv4 }
func (p *Packet) IsIPv6() bool     { return p.IPVersion == IPv6 }

func (p *Packet) IsSYN() bool    { return p.hasTCPFlags && p.TCPFlags.SYN }
func (p *Packet) IsACK() bool    { return p.hasTCPFlags && p.TCPFlags.ACK }
func (p *Packet) IsRST() bool    { return p.hasTCPFlags && p.TCPFlags.RST }
func (p *Packet) IsSYNACK() bool { return p.hasTCPFlags && p.TCPFlags.SYN && p.TCPFlags.ACK }

// IsHTTP reports whether either port looks like plaintext HTTP.
func (p *Packet) IsHTTP() bool {
	return p.IsTCP() && (p.DstPort == 80 || p.SrcPort == 80)
}

// IsHTTPS reports whether either port looks like TLS.
func (p *Packet) IsHTTPS() bool {
	return p.IsTCP() && (p.DstPort == 443 || p.SrcPort == 443)
}

// IPIdentification returns the IPv4 identification field, if present
// (IPv6 packets carry no equivalent in the base header).
func (p *Packet) IPIdentification() (uint16, bool) {
	return p.IPID, p.hasID
}

// FiveTuple returns the packet's source address, destination address,
// source port, destination port and protocol as parsed. The order is not
// normalised, so the two legs of one flow give different tuples.
func (p *Packet) FiveTuple() (string, string, uint16, uint16, Protocol) {
	return addrKey(p.SrcAddr), addrKey(p.DstAddr), p.SrcPort, p.DstPort, p.Protocol
}

// TCPSeq returns the TCP sequence number, if this is a TCP packet.
func (p *Packet) TCPSeq() (uint32, bool) {
	if !p.IsTCP() {
		return 0, false
	}
	offset := p.ipHeaderLen + 4
	if len(p.data) < offset+4 {
		return 0, false
	}
	return beUint32(p.data[offset:]), true
}

// TCPAck returns the TCP acknowledgment number, if this is a TCP packet.
func (p *Packet) TCPAck() (uint32, bool) {
	if !p.IsTCP() {
		return 0, false
	}
	offset := p.ipHeaderLen + 8
	if len(p.data) < offset+4 {
		return 0, false
	}
	return beUint32(p.data[offset:]), true
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBeUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
