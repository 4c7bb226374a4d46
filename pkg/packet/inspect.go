package packet

import "bytes"

var httpMethodPrefixes = [][]byte{
	[]byte("GET "), []byte("POST"), []byte("HEAD"),
	[]byte("PUT "), []byte("DELE"), []byte("CONN"), []byte("OPTI"),
}

// IsHTTPRequest reports whether the payload begins with a recognised
// HTTP request-line method.
func (p *Packet) IsHTTPRequest() bool {
	payload := p.Payload()
	if len(payload) < 4 {
		return false
	}
	head := payload[:4]
	for _, m := range httpMethodPrefixes {
		if bytes.Equal(head, m) {
			return true
		}
	}
	return false
}

// IsTLSClientHello reports whether the payload looks like a TLS record
// carrying a ClientHello: handshake content type with a TLS 1.0 or 1.2+
// record version.
func (p *Packet) IsTLSClientHello() bool {
	payload := p.Payload()
	if len(payload) < 3 {
		return false
	}
	return payload[0] == 0x16 && payload[1] == 0x03 && (payload[2] == 0x01 || payload[2] == 0x03)
}

// ExtractSNI scans the ClientHello for the SNI extension and returns the
// hostname it names, if any. The scan is a byte-pattern walk rather than
// a full TLS parse: it looks for an extension-type/length/list-length/
// name-type/name-length tuple whose lengths are mutually consistent, the
// same tolerant approach the strategies this protects against also use.
func (p *Packet) ExtractSNI() (string, bool) {
	payload := p.Payload()
	if len(payload) < 44 {
		return "", false
	}

	for ptr := 0; ptr+10 < len(payload); ptr++ {
		if payload[ptr] != 0x00 || payload[ptr+1] != 0x00 {
			continue
		}
		if ptr+9 >= len(payload) {
			continue
		}

		extLen := int(payload[ptr+2])<<8 | int(payload[ptr+3])
		listLen := int(payload[ptr+4])<<8 | int(payload[ptr+5])
		nameType := payload[ptr+6]
		nameLen := int(payload[ptr+7])<<8 | int(payload[ptr+8])

		if extLen != listLen+2 || listLen != nameLen+3 || nameType != 0x00 {
			continue
		}

		sniStart := ptr + 9
		sniEnd := sniStart + nameLen
		if sniEnd > len(payload) || nameLen < 3 || nameLen > MaxHostnameLen {
			continue
		}

		sniBytes := payload[sniStart:sniEnd]
		if !isHostnameBytes(sniBytes) {
			continue
		}

		return string(sniBytes), true
	}

	return "", false
}

func isHostnameBytes(b []byte) bool {
	for _, c := range b {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'z':
		case c == '.' || c == '-':
		default:
			return false
		}
	}
	return true
}

var hostMarker = []byte("\r\nHost: ")
var crlf = []byte("\r\n")

// ExtractHTTPHost returns the value of the Host header from an HTTP
// request payload, if present and within the accepted length bounds.
func (p *Packet) ExtractHTTPHost() (string, bool) {
	payload := p.Payload()

	idx := bytes.Index(payload, hostMarker)
	if idx < 0 {
		return "", false
	}
	start := idx + len(hostMarker)

	end := bytes.Index(payload[start:], crlf)
	if end < 0 {
		return "", false
	}
	end += start

	host := payload[start:end]
	if len(host) < 3 || len(host) > MaxHostnameLen {
		return "", false
	}
	return string(host), true
}

// IsQUICInitial reports whether the UDP payload's first bytes look like
// a QUIC long-header Initial packet: form bit and fixed bit both set
// (first byte >= 0xC0) and a version field of 0 (negotiation) or 1.
// Callers needing the full 1200-byte Initial-packet size gate apply it
// themselves.
func (p *Packet) IsQUICInitial() bool {
	payload := p.Payload()
	if !p.IsUDP() || len(payload) < 5 {
		return false
	}

	if payload[0] < 0xC0 {
		return false
	}

	version := beUint32(payload[1:5])
	return version == 0 || version == 1
}
