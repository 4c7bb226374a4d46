// Package packet implements parsing and in-place mutation of raw IPv4/IPv6
// TCP/UDP packets captured from a platform driver.
package packet

import "net"

// MaxSize is the largest packet length the capture drivers request from
// the kernel (the NFQUEUE copy length). FromBytes does not check it.
const MaxSize = 9016

// MaxHostnameLen bounds any hostname extracted from SNI or a Host header,
// per the DNS hostname length limit.
const MaxHostnameLen = 253

// Direction records which way a packet was travelling when the driver
// handed it to us.
type Direction uint8

const (
	DirectionOutbound Direction = iota
	DirectionInbound
)

func (d Direction) String() string {
	if d == DirectionInbound {
		return "inbound"
	}
	return "outbound"
}

// IPVersion is the parsed IP version of a packet.
type IPVersion uint8

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

// Protocol is the parsed transport-layer protocol.
type Protocol uint8

const (
	ProtoUnknown Protocol = iota
	ProtoTCP
	ProtoUDP
)

// protocol numbers per IANA, as they appear in the IPv4 protocol field /
// IPv6 next-header field.
const (
	protoNumTCP = 6
	protoNumUDP = 17
)

func protocolFromByte(b byte) Protocol {
	switch b {
	case protoNumTCP:
		return ProtoTCP
	case protoNumUDP:
		return ProtoUDP
	default:
		return ProtoUnknown
	}
}

// TCPFlags is the set of control bits from the TCP header's flags byte.
type TCPFlags struct {
	FIN bool
	SYN bool
	RST bool
	PSH bool
	ACK bool
	URG bool
	ECE bool
	CWR bool
}

func tcpFlagsFromByte(b byte) TCPFlags {
	return TCPFlags{
		FIN: b&0x01 != 0,
		SYN: b&0x02 != 0,
		RST: b&0x04 != 0,
		PSH: b&0x08 != 0,
		ACK: b&0x10 != 0,
		URG: b&0x20 != 0,
		ECE: b&0x40 != 0,
		CWR: b&0x80 != 0,
	}
}

func (f TCPFlags) toByte() byte {
	var b byte
	if f.FIN {
		b |= 0x01
	}
	if f.SYN {
		b |= 0x02
	}
	if f.RST {
		b |= 0x04
	}
	if f.PSH {
		b |= 0x08
	}
	if f.ACK {
		b |= 0x10
	}
	if f.URG {
		b |= 0x20
	}
	if f.ECE {
		b |= 0x40
	}
	if f.CWR {
		b |= 0x80
	}
	return b
}

// fiveTuple holds a flow's addresses, ports and protocol in the order
// seen on one packet; it does not normalise direction. Nothing in the
// module uses it at present.
type fiveTuple struct {
	srcAddr  string
	dstAddr  string
	srcPort  uint16
	dstPort  uint16
	protocol Protocol
}

func addrKey(ip net.IP) string {
	return ip.String()
}
