package capture

import "testing"

func TestFilterBuilder_Basic(t *testing.T) {
	got := NewFilterBuilder().Outbound().TCP().Build()
	want := "outbound and tcp"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFilterBuilder_Port(t *testing.T) {
	got := NewFilterBuilder().Outbound().TCP().DstPort(443).Build()
	want := "outbound and tcp and tcp.DstPort == 443"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFilterBuilder_OrGroup(t *testing.T) {
	got := NewFilterBuilder().Outbound().TCP().GroupStart().DstPort(80).Or().DstPort(443).GroupEnd().Build()
	want := "outbound and tcp and (tcp.DstPort == 80 or tcp.DstPort == 443)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFilterPresets(t *testing.T) {
	p := FilterPresets{}
	if got := p.HTTPOutbound(); !contains(got, "tcp.DstPort == 80") {
		t.Errorf("HTTPOutbound missing port 80: %q", got)
	}
	if got := p.DNSOutbound(); !contains(got, "udp.DstPort == 53") {
		t.Errorf("DNSOutbound missing port 53: %q", got)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
