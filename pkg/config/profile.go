package config

import (
	"fmt"
	"net"
	"strings"
)

// Profile names one of the built-in presets, mapping legacy CLI modes
// (-1 through -9) and the Turkey-tailored preset onto a full Config.
type Profile int

const (
	// Mode1 is the most compatible legacy preset: passive-DPI drop,
	// Host-header mangling, small HTTP/HTTPS fragments, no fake packets.
	Mode1 Profile = iota
	// Mode2 trades HTTPS fragment granularity for speed.
	Mode2
	// Mode3 disables HTTP fragmentation entirely, keeping only HTTPS.
	Mode3
	// Mode4 is the fastest legacy preset: passive-DPI and header
	// mangling only, no fragmentation or fake packets.
	Mode4
	// Mode5 is a modern preset using Auto-TTL fake packets with reverse
	// fragment order.
	Mode5
	// Mode6 uses wrong-sequence fake packets with reverse fragment order.
	Mode6
	// Mode7 uses wrong-checksum fake packets with reverse fragment order.
	Mode7
	// Mode8 combines wrong-sequence and wrong-checksum fake packets.
	Mode8
	// Mode9 is the default modern preset: Mode8 plus QUIC blocking.
	Mode9
	// Turkey is Mode9 plus DNS redirection to Yandex, tailored for
	// ISP-level DNS blocking as seen in Turkey.
	Turkey
	// Custom leaves every setting at its default for the caller to
	// customise from a TOML file.
	Custom
)

var profileNames = map[Profile]string{
	Mode1: "mode1", Mode2: "mode2", Mode3: "mode3", Mode4: "mode4",
	Mode5: "mode5", Mode6: "mode6", Mode7: "mode7", Mode8: "mode8",
	Mode9: "mode9", Turkey: "turkey", Custom: "custom",
}

var profileDescriptions = map[Profile]string{
	Mode1:  "Most compatible mode (legacy)",
	Mode2:  "Better HTTPS speed (legacy)",
	Mode3:  "Better HTTP/HTTPS speed (legacy)",
	Mode4:  "Best speed, minimal processing (legacy)",
	Mode5:  "Auto-TTL fake packets + reverse fragmentation",
	Mode6:  "Wrong-sequence fake packets + reverse fragmentation",
	Mode7:  "Wrong-checksum fake packets + reverse fragmentation",
	Mode8:  "Wrong-sequence + wrong-checksum fake packets",
	Mode9:  "Full mode with QUIC blocking (default)",
	Turkey: "Turkey-optimized with DNS redirection",
	Custom: "Custom configuration",
}

// String returns the profile's canonical lowercase name.
func (p Profile) String() string {
	if name, ok := profileNames[p]; ok {
		return name
	}
	return "custom"
}

// Description returns a short human-readable summary of the profile.
func (p Profile) Description() string {
	if d, ok := profileDescriptions[p]; ok {
		return d
	}
	return profileDescriptions[Custom]
}

// ParseProfile parses a profile name or legacy mode number, accepting
// both the numeric CLI spelling ("9") and the symbolic name ("mode9").
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "mode1":
		return Mode1, nil
	case "2", "mode2":
		return Mode2, nil
	case "3", "mode3":
		return Mode3, nil
	case "4", "mode4":
		return Mode4, nil
	case "5", "mode5":
		return Mode5, nil
	case "6", "mode6":
		return Mode6, nil
	case "7", "mode7":
		return Mode7, nil
	case "8", "mode8":
		return Mode8, nil
	case "9", "mode9", "default":
		return Mode9, nil
	case "turkey", "tr":
		return Turkey, nil
	case "custom":
		return Custom, nil
	default:
		return Custom, fmt.Errorf("config: unknown profile %q", s)
	}
}

func profileForLegacyMode(mode uint8) (Profile, bool) {
	switch mode {
	case 1:
		return Mode1, true
	case 2:
		return Mode2, true
	case 3:
		return Mode3, true
	case 4:
		return Mode4, true
	case 5:
		return Mode5, true
	case 6:
		return Mode6, true
	case 7:
		return Mode7, true
	case 8:
		return Mode8, true
	case 9:
		return Mode9, true
	default:
		return Custom, false
	}
}

// Config builds the full configuration this profile represents,
// starting from Default and overriding only the settings the preset
// cares about.
func (p Profile) Config() Config {
	cfg := Default()
	cfg.General.Name = p.String()

	switch p {
	case Mode1:
		legacyCompat(&cfg)
		cfg.Strategies.Fragmentation.HTTPSize = 2
		cfg.Strategies.Fragmentation.HTTPSSize = 2
		cfg.Strategies.Fragmentation.NativeSplit = false
	case Mode2:
		legacyCompat(&cfg)
		cfg.Strategies.Fragmentation.HTTPSize = 2
		cfg.Strategies.Fragmentation.HTTPSSize = 40
		cfg.Strategies.Fragmentation.NativeSplit = false
	case Mode3:
		legacyCompat(&cfg)
		cfg.Strategies.Fragmentation.HTTPSize = 0 // HTTP fragmentation disabled
		cfg.Strategies.Fragmentation.HTTPSSize = 40
		cfg.Strategies.Fragmentation.NativeSplit = false
		cfg.Strategies.Fragmentation.HTTPPersistent = false
	case Mode4:
		legacyCompat(&cfg)
		cfg.Strategies.Fragmentation.Enabled = false
	case Mode5:
		modernFragFake(&cfg)
		cfg.Strategies.FakePacket.AutoTTL = &AutoTTLConfig{MarginLow: 1, MarginHigh: 4, Max: 10}
		cfg.Strategies.FakePacket.WrongChecksum = false
		cfg.Strategies.FakePacket.WrongSeq = false
	case Mode6:
		modernFragFake(&cfg)
		cfg.Strategies.FakePacket.WrongSeq = true
		cfg.Strategies.FakePacket.WrongChecksum = false
	case Mode7:
		modernFragFake(&cfg)
		cfg.Strategies.FakePacket.WrongChecksum = true
		cfg.Strategies.FakePacket.WrongSeq = false
	case Mode8:
		modernFragFake(&cfg)
		cfg.Strategies.FakePacket.WrongChecksum = true
		cfg.Strategies.FakePacket.WrongSeq = true
	case Mode9:
		modernFragFake(&cfg)
		cfg.Strategies.FakePacket.WrongChecksum = true
		cfg.Strategies.FakePacket.WrongSeq = true
		cfg.Strategies.QUICBlock.Enabled = true
	case Turkey:
		cfg = Mode9.Config()
		cfg.General.Name = "turkey"
		cfg.DNS.Enabled = true
		cfg.DNS.IPv4Upstream = net.IPv4(77, 88, 8, 8)
		cfg.DNS.IPv4Port = 53
		cfg.DNS.FlushCacheOnStart = true
	case Custom:
		// Keep defaults, caller customises from here.
	}

	return cfg
}

// legacyCompat applies the settings shared by every Mode1-4 preset:
// passive-DPI drop and "hoSt:" header mangling, with fake packets and
// QUIC blocking off.
func legacyCompat(cfg *Config) {
	cfg.Strategies.PassiveDPI.Enabled = true
	cfg.Strategies.HeaderMangle.Enabled = true
	cfg.Strategies.HeaderMangle.HostReplace = true
	cfg.Strategies.FakePacket.Enabled = false
	cfg.Strategies.QUICBlock.Enabled = false
}

// modernFragFake applies the settings shared by every Mode5-9 preset:
// small reverse-order fragments, fake packets on, QUIC blocking off
// (Mode9 turns it back on).
func modernFragFake(cfg *Config) {
	cfg.Strategies.Fragmentation.Enabled = true
	cfg.Strategies.Fragmentation.HTTPSize = 2
	cfg.Strategies.Fragmentation.HTTPSSize = 2
	cfg.Strategies.Fragmentation.NativeSplit = true
	cfg.Strategies.Fragmentation.ReverseOrder = true
	cfg.Strategies.Fragmentation.HTTPPersistent = true
	cfg.Strategies.FakePacket.Enabled = true
	cfg.Strategies.QUICBlock.Enabled = false
	cfg.Performance.MaxPayloadSize = 1200
}
