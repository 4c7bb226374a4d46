package strategy

import (
	"bytes"

	"github.com/gdpi-go/engine/pkg/packet"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/sirupsen/logrus"
)

// HeaderMangle rewrites the plaintext "Host:" header of an outbound HTTP
// request in ways that most servers tolerate but that confuse a DPI box
// doing a literal substring match for "Host: <blocked-domain>".
type HeaderMangle struct {
	Base

	// HostReplace rewrites "Host:" to "hoSt:", breaking a
	// case-sensitive match.
	HostReplace bool
	// HostMixCase uppercases the Host header's value at odd character
	// positions ("eXaMpLe.CoM"-style), breaking a literal match while
	// remaining a valid (case-insensitive) hostname.
	HostMixCase bool
	// HostRemoveSpace would remove the space after the colon
	// ("Host:example.com"). Unsupported: removing the space produces a
	// malformed header HTTP/1.1 servers are not required to accept,
	// and the original engine itself never finished wiring it up, so
	// enabling this field is rejected at config-validation time rather
	// than silently ignored here.
	HostRemoveSpace bool

	Log logrus.FieldLogger
}

// NewHeaderMangle creates an enabled Header-Mangle strategy with the
// Host-header case-swap transform on.
func NewHeaderMangle(log logrus.FieldLogger) *HeaderMangle {
	return &HeaderMangle{Base: Base{Enabled: true}, HostReplace: true, Log: log}
}

func (s *HeaderMangle) Name() string    { return "header_mangle" }
func (s *HeaderMangle) Priority() uint8 { return 50 }

func (s *HeaderMangle) ShouldApply(p *packet.Packet, ctx *pipectx.Context) bool {
	if p.IsFake || !p.IsOutbound() || !p.IsTCP() || p.DstPort != 80 {
		return false
	}
	return p.IsHTTPRequest()
}

func (s *HeaderMangle) Apply(p *packet.Packet, ctx *pipectx.Context) (Action, error) {
	payload := p.Payload()
	mangled := append([]byte(nil), payload...)
	modified := false

	if s.HostMixCase {
		if valueStart, valueEnd, ok := findHostHeaderValue(mangled); ok && valueStart < valueEnd {
			mixCaseHostname(mangled[valueStart:valueEnd])
			modified = true
		}
	}
	if s.HostReplace {
		if idx := bytes.Index(mangled, []byte("\r\nHost:")); idx >= 0 {
			headerStart := idx + 2 // skip the leading \r\n, point at "Host:"
			// "Host:" -> "hoSt:"
			mangled[headerStart] = 'h'
			mangled[headerStart+1] = 'o'
			mangled[headerStart+2] = 'S'
			mangled[headerStart+3] = 't'
			modified = true
		}
	}

	if !modified {
		return Pass(p), nil
	}

	out := p.WithNewPayload(mangled)
	out.RecalculateChecksums()

	ctx.Stats.HeadersModified.Add(1)
	if s.Log != nil {
		s.Log.Debug("mangled HTTP Host header")
	}

	return Replace(out), nil
}

// findHostHeaderValue locates the byte range of the Host header's value
// (e.g. "example.com" in "Host: example.com\r\n"), returning the start
// and end offsets into payload. Requires the canonical "Host: " form
// with exactly one space after the colon.
func findHostHeaderValue(payload []byte) (start, end int, ok bool) {
	marker := []byte("\r\nHost: ")
	idx := bytes.Index(payload, marker)
	if idx < 0 {
		return 0, 0, false
	}

	valueStart := idx + len(marker)
	rel := bytes.Index(payload[valueStart:], []byte("\r\n"))
	if rel < 0 {
		return 0, 0, false
	}

	return valueStart, valueStart + rel, true
}

// mixCaseHostname uppercases odd-indexed ASCII lowercase letters in
// place, e.g. "example.com" -> "eXaMpLe.CoM". Bytes that aren't
// lowercase letters (dots, digits, even positions) are left untouched.
func mixCaseHostname(hostname []byte) {
	for i := range hostname {
		if i%2 == 1 && hostname[i] >= 'a' && hostname[i] <= 'z' {
			hostname[i] -= 'a' - 'A'
		}
	}
}
