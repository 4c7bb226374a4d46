package strategy

import (
	"net"

	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/sirupsen/logrus"
)

// DNSRedirect rewrites the destination of outbound plaintext DNS queries
// to an upstream server that (unlike the client's configured resolver)
// isn't subject to DNS-based blocking, remembering the original
// destination so the response can be matched back up later.
type DNSRedirect struct {
	Base

	UpstreamAddr net.IP
	UpstreamPort uint16

	Log logrus.FieldLogger
}

// NewDNSRedirect creates an enabled strategy redirecting to upstream:port.
func NewDNSRedirect(upstream net.IP, port uint16, log logrus.FieldLogger) *DNSRedirect {
	return &DNSRedirect{Base: Base{Enabled: true}, UpstreamAddr: upstream, UpstreamPort: port, Log: log}
}

// NewDNSRedirectYandex redirects to Yandex DNS (77.88.8.8:53), the
// default upstream for the Turkey-tailored preset.
func NewDNSRedirectYandex(log logrus.FieldLogger) *DNSRedirect {
	return NewDNSRedirect(net.IPv4(77, 88, 8, 8), 53, log)
}

// NewDNSRedirectCloudflare redirects to Cloudflare DNS (1.1.1.1:53).
func NewDNSRedirectCloudflare(log logrus.FieldLogger) *DNSRedirect {
	return NewDNSRedirect(net.IPv4(1, 1, 1, 1), 53, log)
}

// NewDNSRedirectGoogle redirects to Google DNS (8.8.8.8:53).
func NewDNSRedirectGoogle(log logrus.FieldLogger) *DNSRedirect {
	return NewDNSRedirect(net.IPv4(8, 8, 8, 8), 53, log)
}

func (s *DNSRedirect) Name() string    { return "dns_redirect" }
func (s *DNSRedirect) Priority() uint8 { return 20 }

func (s *DNSRedirect) ShouldApply(p *packet.Packet, ctx *pipectx.Context) bool {
	if !p.IsUDP() || !p.IsIPv4() {
		return false
	}
	if p.IsOutbound() {
		return p.DstPort == 53
	}
	return p.IsInbound() && p.SrcPort == s.UpstreamPort && p.SrcAddr.Equal(s.UpstreamAddr)
}

func (s *DNSRedirect) Apply(p *packet.Packet, ctx *pipectx.Context) (Action, error) {
	if p.IsInbound() {
		return s.applyInbound(p, ctx)
	}

	if !isDNSQuery(p.Payload()) {
		return Pass(p), nil
	}

	ctx.DNS.TrackQuery(p.SrcPort, p.DstAddr, p.DstPort)

	p.DstAddr = s.UpstreamAddr
	rewriteUDPDst(p, s.UpstreamAddr, s.UpstreamPort)
	p.ZeroChecksums()

	ctx.Stats.DNSRedirected.Add(1)
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"upstream": s.UpstreamAddr.String(),
			"port":     s.UpstreamPort,
		}).Debug("redirecting DNS query")
	}

	return Pass(p), nil
}

// applyInbound handles the reply leg of a redirected query: the client's
// original port is the packet's destination port on this leg, since the
// reply is addressed back to the client. If a tracked query matches, the
// reply's source address/port is rewritten to look like it came from the
// client's originally-requested resolver, and the tracking entry is
// evicted so a retransmitted or spoofed reply can't rewrite twice.
func (s *DNSRedirect) applyInbound(p *packet.Packet, ctx *pipectx.Context) (Action, error) {
	origIP, origPort, ok := ctx.DNS.GetOriginal(p.DstPort)
	if !ok {
		return Pass(p), nil
	}

	clientPort := p.DstPort
	p.SrcAddr = origIP
	rewriteUDPSrc(p, origIP, origPort)
	p.ZeroChecksums()

	ctx.DNS.Remove(clientPort)
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"restored_src": origIP.String(),
			"port":         origPort,
		}).Debug("restoring DNS reply source")
	}

	return Pass(p), nil
}

// isDNSQuery reports whether payload looks like a DNS query: QR bit
// clear, at least one question, and no answers yet.
func isDNSQuery(payload []byte) bool {
	if len(payload) < 12 {
		return false
	}

	flags := uint16(payload[2])<<8 | uint16(payload[3])
	if flags&0x8000 != 0 { // QR set: this is a response, not a query
		return false
	}

	qdCount := uint16(payload[4])<<8 | uint16(payload[5])
	if qdCount == 0 {
		return false
	}

	anCount := uint16(payload[6])<<8 | uint16(payload[7])
	return anCount == 0
}

// rewriteUDPDst overwrites the destination port in the raw UDP header
// and, for IPv4, the destination address. p's parsed fields are not
// re-derived; callers needing to read them back should re-parse.
func rewriteUDPDst(p *packet.Packet, addr net.IP, port uint16) {
	data := p.Bytes()
	if p.IsIPv4() {
		v4 := addr.To4()
		data[16] = v4[0]
		data[17] = v4[1]
		data[18] = v4[2]
		data[19] = v4[3]
	}
	ipHeaderLen := int(data[0]&0x0F) * 4
	data[ipHeaderLen+2] = byte(port >> 8)
	data[ipHeaderLen+3] = byte(port)
}

// rewriteUDPSrc overwrites the source port in the raw UDP header and,
// for IPv4, the source address. Used to restore a redirected DNS
// reply's address back to what the client originally queried.
func rewriteUDPSrc(p *packet.Packet, addr net.IP, port uint16) {
	data := p.Bytes()
	if p.IsIPv4() {
		v4 := addr.To4()
		data[12] = v4[0]
		data[13] = v4[1]
		data[14] = v4[2]
		data[15] = v4[3]
	}
	ipHeaderLen := int(data[0]&0x0F) * 4
	data[ipHeaderLen] = byte(port >> 8)
	data[ipHeaderLen+1] = byte(port)
}
