package packet

import "fmt"

// SetTTL overwrites the TTL (IPv4) or hop limit (IPv6) field in place.
func (p *Packet) SetTTL(ttl uint8) {
	switch p.IPVersion {
	case IPv4:
		p.data[8] = ttl
	case IPv6:
		p.data[7] = ttl
	}
	p.TTL = ttl
}

// SetTCPSeq overwrites the TCP sequence number in place. No-op on
// non-TCP packets.
func (p *Packet) SetTCPSeq(seq uint32) {
	if !p.IsTCP() {
		return
	}
	offset := p.ipHeaderLen + 4
	putBeUint32(p.data[offset:], seq)
}

// SetTCPAck overwrites the TCP acknowledgment number in place. No-op on
// non-TCP packets.
func (p *Packet) SetTCPAck(ack uint32) {
	if !p.IsTCP() {
		return
	}
	offset := p.ipHeaderLen + 8
	putBeUint32(p.data[offset:], ack)
}

// SplitAtPayload splits the packet into two fragments at the given
// payload offset: the first fragment carries payload[:offset], the
// second carries payload[offset:] with its TCP sequence number advanced
// by offset. Both fragments retain copies of the original headers with
// their length fields corrected. offset must be strictly less than the
// payload length.
func (p *Packet) SplitAtPayload(offset int) (*Packet, *Packet, error) {
	headerLen := p.ipHeaderLen + p.transportHeaderLen
	payload := p.Payload()

	if offset <= 0 || offset >= len(payload) {
		return nil, nil, &ParseError{Kind: "split_out_of_range", Detail: fmt.Sprintf("offset %d out of range for payload length %d", offset, len(payload))}
	}

	first := p.Clone()
	first.data = append(append([]byte(nil), p.data[:headerLen]...), payload[:offset]...)
	first.updateLengths()

	second := p.Clone()
	second.data = append(append([]byte(nil), p.data[:headerLen]...), payload[offset:]...)
	if seq, ok := second.TCPSeq(); ok {
		second.SetTCPSeq(seq + uint32(offset))
	}
	second.updateLengths()

	return first, second, nil
}

// WithNewPayload returns a copy of p with its payload replaced. Header
// length fields are recomputed; sequence numbers are left untouched —
// callers that need a sequence-number shift should call SetTCPSeq
// themselves.
func (p *Packet) WithNewPayload(payload []byte) *Packet {
	headerLen := p.ipHeaderLen + p.transportHeaderLen
	cp := p.Clone()
	cp.data = append(append([]byte(nil), p.data[:headerLen]...), payload...)
	cp.updateLengths()
	return cp
}

// updateLengths fixes up the IP total-length (IPv4) or payload-length
// (IPv6) field after the packet's size has changed. It does not touch
// checksums; call ZeroChecksums or RecalculateChecksums afterwards.
func (p *Packet) updateLengths() {
	totalLen := len(p.data)

	switch p.IPVersion {
	case IPv4:
		p.data[2] = byte(totalLen >> 8)
		p.data[3] = byte(totalLen)
	case IPv6:
		payloadLen := totalLen - 40
		p.data[4] = byte(payloadLen >> 8)
		p.data[5] = byte(payloadLen)
	}
}

// TCPChecksumOffset returns the byte offset of the TCP checksum field
// within Bytes(), or -1 if this isn't a TCP packet with room for one.
func (p *Packet) TCPChecksumOffset() int {
	if !p.IsTCP() {
		return -1
	}
	offset := p.ipHeaderLen + 16
	if len(p.data) < offset+2 {
		return -1
	}
	return offset
}

// ZeroChecksums sets the IP header checksum (IPv4 only; IPv6 has none)
// and the transport-layer checksum to zero. Many capture drivers
// recompute checksums on send when asked to, so zeroing is the cheap,
// portable way to mark a mutated packet's checksums as stale.
func (p *Packet) ZeroChecksums() {
	if p.IPVersion == IPv4 {
		p.data[10] = 0
		p.data[11] = 0
	}
	offset := p.ipHeaderLen
	switch p.Protocol {
	case ProtoTCP:
		if len(p.data) >= offset+18 {
			p.data[offset+16] = 0
			p.data[offset+17] = 0
		}
	case ProtoUDP:
		if len(p.data) >= offset+8 {
			p.data[offset+6] = 0
			p.data[offset+7] = 0
		}
	}
}

// RecalculateChecksums fills in correct IPv4 header and TCP/UDP
// checksums using the RFC 1071 one's-complement algorithm. Needed when
// injecting a packet through a path that does not offload checksumming
// (e.g. raw sockets, or a driver opened without a checksum-fixup flag).
func (p *Packet) RecalculateChecksums() {
	if p.IPVersion == IPv4 {
		p.data[10] = 0
		p.data[11] = 0
		sum := checksum(p.data[:p.ipHeaderLen])
		p.data[10] = byte(sum >> 8)
		p.data[11] = byte(sum)
	}

	offset := p.ipHeaderLen
	switch p.Protocol {
	case ProtoTCP:
		if len(p.data) < offset+18 {
			return
		}
		p.data[offset+16] = 0
		p.data[offset+17] = 0
		sum := p.transportChecksum(p.data[offset:])
		p.data[offset+16] = byte(sum >> 8)
		p.data[offset+17] = byte(sum)
	case ProtoUDP:
		if len(p.data) < offset+8 {
			return
		}
		p.data[offset+6] = 0
		p.data[offset+7] = 0
		sum := p.transportChecksum(p.data[offset:])
		p.data[offset+6] = byte(sum >> 8)
		p.data[offset+7] = byte(sum)
	}
}
