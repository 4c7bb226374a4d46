package packet

import "testing"

func testTCPPacket() []byte {
	return []byte{
		// IPv4 header (20 bytes)
		0x45, 0x00, 0x00, 0x28, // Version, IHL, TOS, Total Length
		0x00, 0x01, 0x00, 0x00, // ID, Flags, Fragment
		0x40, 0x06, 0x00, 0x00, // TTL, Protocol (TCP), Checksum
		0xC0, 0xA8, 0x01, 0x01, // Source IP (192.168.1.1)
		0xC0, 0xA8, 0x01, 0x02, // Dest IP (192.168.1.2)
		// TCP header (20 bytes)
		0x00, 0x50, 0x01, 0xBB, // Src Port (80), Dst Port (443)
		0x00, 0x00, 0x00, 0x01, // Sequence Number
		0x00, 0x00, 0x00, 0x01, // Ack Number
		0x50, 0x18, 0x00, 0x00, // Data Offset, Flags (ACK+PSH), Window
		0x00, 0x00, 0x00, 0x00, // Checksum, Urgent Pointer
	}
}

func TestFromBytes_TCP(t *testing.T) {
	p, err := FromBytes(testTCPPacket(), DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	if !p.IsTCP() {
		t.Error("expected TCP")
	}
	if !p.IsIPv4() {
		t.Error("expected IPv4")
	}
	if p.SrcPort != 80 {
		t.Errorf("SrcPort = %d, want 80", p.SrcPort)
	}
	if p.DstPort != 443 {
		t.Errorf("DstPort = %d, want 443", p.DstPort)
	}
	if p.TTL != 64 {
		t.Errorf("TTL = %d, want 64", p.TTL)
	}
}

func TestFromBytes_TCPFlags(t *testing.T) {
	p, err := FromBytes(testTCPPacket(), DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	if !p.TCPFlags.ACK {
		t.Error("expected ACK set")
	}
	if !p.TCPFlags.PSH {
		t.Error("expected PSH set")
	}
	if p.TCPFlags.SYN {
		t.Error("expected SYN unset")
	}
}

func TestFromBytes_TooSmall(t *testing.T) {
	_, err := FromBytes([]byte{0x45, 0x00}, DirectionOutbound)
	if err == nil {
		t.Fatal("expected error for undersized packet")
	}
	var perr *ParseError
	if !asParseError(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Kind != "too_small" {
		t.Errorf("Kind = %q, want too_small", perr.Kind)
	}
}

func asParseError(err error, target **ParseError) bool {
	pe, ok := err.(*ParseError)
	if ok {
		*target = pe
	}
	return ok
}

func TestPayload_RoundTrip(t *testing.T) {
	data := testTCPPacket()
	data = append(data, []byte("GET / HTTP/1.1\r\n\r\n")...)
	// fix up total length
	total := len(data)
	data[2] = byte(total >> 8)
	data[3] = byte(total)

	p, err := FromBytes(data, DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if string(p.Payload()) != "GET / HTTP/1.1\r\n\r\n" {
		t.Errorf("Payload() = %q", p.Payload())
	}
	if !p.IsHTTPRequest() {
		t.Error("expected HTTP request detection")
	}
}

func TestSplitAtPayload(t *testing.T) {
	data := testTCPPacket()
	data = append(data, []byte("0123456789")...)
	total := len(data)
	data[2] = byte(total >> 8)
	data[3] = byte(total)

	p, err := FromBytes(data, DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	first, second, err := p.SplitAtPayload(4)
	if err != nil {
		t.Fatalf("SplitAtPayload: %v", err)
	}

	if string(first.Payload()) != "0123" {
		t.Errorf("first payload = %q, want 0123", first.Payload())
	}
	if string(second.Payload()) != "456789" {
		t.Errorf("second payload = %q, want 456789", second.Payload())
	}

	firstSeq, _ := first.TCPSeq()
	secondSeq, _ := second.TCPSeq()
	if firstSeq != 1 {
		t.Errorf("first seq = %d, want 1", firstSeq)
	}
	if secondSeq != 5 {
		t.Errorf("second seq = %d, want 5 (1+4)", secondSeq)
	}
}

func TestSplitAtPayload_OutOfRange(t *testing.T) {
	p, err := FromBytes(testTCPPacket(), DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if _, _, err := p.SplitAtPayload(0); err == nil {
		t.Fatal("expected error splitting an empty payload")
	}
}

func TestSplitAtPayload_ZeroOffsetRejectedOnNonEmptyPayload(t *testing.T) {
	data := testTCPPacket()
	data = append(data, []byte("0123456789")...)
	total := len(data)
	data[2] = byte(total >> 8)
	data[3] = byte(total)

	p, err := FromBytes(data, DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if _, _, err := p.SplitAtPayload(0); err == nil {
		t.Fatal("expected error splitting at offset 0 of a non-empty payload")
	}
}

func TestExtractHTTPHost(t *testing.T) {
	data := testTCPPacket()
	data = append(data, []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")...)
	total := len(data)
	data[2] = byte(total >> 8)
	data[3] = byte(total)

	p, err := FromBytes(data, DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	host, ok := p.ExtractHTTPHost()
	if !ok {
		t.Fatal("expected Host header to be found")
	}
	if host != "example.com" {
		t.Errorf("host = %q, want example.com", host)
	}
}

func TestSetTTL(t *testing.T) {
	p, err := FromBytes(testTCPPacket(), DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	p.SetTTL(8)
	if p.TTL != 8 {
		t.Errorf("TTL = %d, want 8", p.TTL)
	}
	if p.Bytes()[8] != 8 {
		t.Errorf("raw TTL byte = %d, want 8", p.Bytes()[8])
	}
}

func TestIsQUICInitial(t *testing.T) {
	payload := append([]byte{0xC0, 0x00, 0x00, 0x00, 0x01}, make([]byte, 1200)...)

	udp := []byte{
		0x45, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00,
		0x40, 0x11, 0x00, 0x00,
		0xC0, 0xA8, 0x01, 0x01,
		0xC0, 0xA8, 0x01, 0x02,
		0x00, 0x50, 0x01, 0xBB,
		0x00, 0x00, 0x00, 0x00,
	}
	udp = append(udp, payload...)
	total := len(udp)
	udp[2] = byte(total >> 8)
	udp[3] = byte(total)

	p, err := FromBytes(udp, DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if !p.IsQUICInitial() {
		t.Error("expected QUIC Initial detection")
	}
}
