package packet

import "testing"

func TestChecksum_Zero(t *testing.T) {
	// A buffer of all zeros checksums to 0xFFFF (one's complement of 0).
	got := checksum(make([]byte, 20))
	if got != 0xFFFF {
		t.Errorf("checksum(zeros) = %#x, want 0xffff", got)
	}
}

func TestRecalculateChecksums_IPv4TCP(t *testing.T) {
	p, err := FromBytes(testTCPPacket(), DirectionOutbound)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	p.RecalculateChecksums()

	// A correct checksum makes the packet's own checksum field, when
	// included in the verification sum, come out to 0xFFFF.
	ipHeader := append([]byte(nil), p.Bytes()[:20]...)
	if checksum(ipHeader) != 0x0000 {
		t.Errorf("IPv4 header checksum does not verify: sum=%#x", checksum(ipHeader))
	}
}
