// Package kernelver gates capture-backend feature flags on the running
// Linux kernel version, the same need the teacher's pkg/linux init used
// docker/docker's kernel-version parser for.
package kernelver

import (
	"fmt"

	"github.com/docker/docker/pkg/parsers/kernel"
)

// Features records which NFQUEUE/nftables capabilities this kernel is
// known to support, detected once at process start.
type Features struct {
	Version *kernel.VersionInfo

	// ConntrackZeroCopy reflects whether NFQUEUE can hand back packet
	// data without an extra copy (added in 4.18 in the upstream
	// kernel's nfnetlink_queue rework).
	ConntrackZeroCopy bool
	// Nftables reflects whether the nf_tables subsystem (vs. legacy
	// iptables) is available to place the NFQUEUE verdict rule
	// (present since 3.13, universally enabled since 4.18 distros).
	Nftables bool
}

var versionedFlags = []struct {
	version kernel.VersionInfo
	apply   func(*Features)
}{
	{kernel.VersionInfo{Kernel: 3, Major: 13, Minor: 0}, func(f *Features) { f.Nftables = true }},
	{kernel.VersionInfo{Kernel: 4, Major: 18, Minor: 0}, func(f *Features) { f.ConntrackZeroCopy = true }},
}

// Detect reads the running kernel version and returns the Features it
// implies. Returns an error if the version can't be read — the caller
// (driver_linux.go) treats that as fatal at start-up, same as any
// other driver-initialization failure.
func Detect() (*Features, error) {
	v, err := kernel.GetKernelVersion()
	if err != nil {
		return nil, fmt.Errorf("kernelver: %w", err)
	}

	f := &Features{Version: v}
	for _, vf := range versionedFlags {
		if kernel.CompareKernelVersion(*v, vf.version) >= 0 {
			vf.apply(f)
		}
	}
	return f, nil
}
