// Package config implements the engine's TOML-backed configuration:
// strongly-typed settings for each strategy plus the legacy Mode1-9 and
// Turkey profile presets.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure, loaded from TOML or built
// from a Profile preset.
type Config struct {
	General     GeneralConfig     `toml:"general"`
	DNS         DNSConfig         `toml:"dns"`
	Strategies  StrategiesConfig  `toml:"strategies"`
	Blacklist   BlacklistConfig   `toml:"blacklist"`
	Logging     LoggingConfig     `toml:"logging"`
	Performance PerformanceConfig `toml:"performance"`
}

// GeneralConfig holds top-level identification settings.
type GeneralConfig struct {
	Name         string `toml:"name"`
	Version      string `toml:"version"`
	AutoStart    bool   `toml:"auto_start"`
	RunAsService bool   `toml:"run_as_service"`
}

// DNSConfig controls the DNSRedirect strategy.
type DNSConfig struct {
	Enabled           bool   `toml:"enabled"`
	IPv4Upstream      net.IP `toml:"ipv4_upstream"`
	IPv4Port          uint16 `toml:"ipv4_port"`
	FlushCacheOnStart bool   `toml:"flush_cache_on_start"`
	Verbose           bool   `toml:"verbose"`
}

// StrategiesConfig groups one settings block per strategy.
type StrategiesConfig struct {
	Fragmentation FragmentationConfig `toml:"fragmentation"`
	FakePacket    FakePacketConfig    `toml:"fake_packet"`
	HeaderMangle  HeaderMangleConfig  `toml:"header_mangle"`
	QUICBlock     QUICBlockConfig     `toml:"quic_block"`
	PassiveDPI    PassiveDPIConfig    `toml:"passive_dpi"`
}

// FragmentationConfig mirrors strategy.Fragmentation's tunables.
type FragmentationConfig struct {
	Enabled        bool `toml:"enabled"`
	HTTPSize       int  `toml:"http_size"`
	HTTPSSize      int  `toml:"https_size"`
	NativeSplit    bool `toml:"native_split"`
	ReverseOrder   bool `toml:"reverse_order"`
	BySNI          bool `toml:"by_sni"`
	HTTPPersistent bool `toml:"http_persistent"`
}

// AutoTTLConfig mirrors the original engine's a1/a2/max Auto-TTL margins.
type AutoTTLConfig struct {
	MarginLow  uint8 `toml:"a1"`
	MarginHigh uint8 `toml:"a2"`
	Max        uint8 `toml:"max"`
}

// FakePacketConfig mirrors strategy.FakePacket's tunables. WrongChecksum
// and WrongSeq select the Damage mode; when both are false the TTL
// damage mode is used instead.
type FakePacketConfig struct {
	Enabled       bool           `toml:"enabled"`
	WrongChecksum bool           `toml:"wrong_checksum"`
	WrongSeq      bool           `toml:"wrong_seq"`
	TTL           uint8          `toml:"ttl"`
	AutoTTL       *AutoTTLConfig `toml:"auto_ttl"`
	MinTTLHops    uint8          `toml:"min_ttl_hops"`
	ResendCount   uint8          `toml:"resend_count"`
}

// HeaderMangleConfig mirrors strategy.HeaderMangle's tunables.
// HostRemoveSpace is accepted here (for TOML round-tripping of profiles
// that never set it) but Validate rejects any config that enables it.
type HeaderMangleConfig struct {
	Enabled         bool `toml:"enabled"`
	HostReplace     bool `toml:"host_replace"`
	HostRemoveSpace bool `toml:"host_remove_space"`
	HostMixCase     bool `toml:"host_mix_case"`
}

// QUICBlockConfig mirrors strategy.QUICBlock's tunables.
type QUICBlockConfig struct {
	Enabled bool `toml:"enabled"`
}

// PassiveDPIConfig mirrors strategy.PassiveDPI's tunables.
type PassiveDPIConfig struct {
	Enabled bool     `toml:"enabled"`
	IPIDs   []uint16 `toml:"ip_ids"`
}

// BlacklistConfig controls the filter.DomainFilter built at start-up.
type BlacklistConfig struct {
	Enabled    bool     `toml:"enabled"`
	Files      []string `toml:"files"`
	AllowNoSNI bool     `toml:"allow_no_sni"`
}

// LoggingConfig controls the logrus setup done at start-up.
type LoggingConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  uint32 `toml:"max_size_mb"`
	RotateCnt  uint32 `toml:"rotate_count"`
	JSONFormat bool   `toml:"json_format"`
}

// PerformanceConfig tunes the conntrack tables and pipeline.
type PerformanceConfig struct {
	MaxPayloadSize           uint16   `toml:"max_payload_size"`
	WorkerThreads            uint8    `toml:"worker_threads"`
	ConntrackMaxEntries      int      `toml:"conntrack_max_entries"`
	ConntrackCleanupInterval uint32   `toml:"conntrack_cleanup_interval"`
	HTTPAllPorts             bool     `toml:"http_all_ports"`
	AdditionalPorts          []uint16 `toml:"additional_ports"`
}

// Default returns the zero-value-safe default configuration: no
// strategy is enabled except the defaults below, matching the original
// engine's Default impl.
func Default() Config {
	return Config{
		General: GeneralConfig{Name: "default", Version: "2.0"},
		DNS:     DNSConfig{IPv4Port: 53, FlushCacheOnStart: true},
		Strategies: StrategiesConfig{
			Fragmentation: FragmentationConfig{Enabled: true, HTTPSize: 2, HTTPSSize: 2, NativeSplit: true, ReverseOrder: true, HTTPPersistent: true},
			FakePacket:    FakePacketConfig{Enabled: true, WrongChecksum: true, WrongSeq: true, ResendCount: 1},
			HeaderMangle:  HeaderMangleConfig{},
			QUICBlock:     QUICBlockConfig{Enabled: true},
			PassiveDPI:    PassiveDPIConfig{},
		},
		Logging:     LoggingConfig{Level: "info", MaxSizeMB: 10, RotateCnt: 5},
		Performance: PerformanceConfig{MaxPayloadSize: 1200, ConntrackMaxEntries: 10000, ConntrackCleanupInterval: 30},
	}
}

// Load reads and parses a TOML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromTOML(data)
}

// FromTOML parses a TOML document into a Config, seeded with Default so
// any field the document omits keeps its default value.
func FromTOML(data []byte) (Config, error) {
	cfg := Default()
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse toml: %w", err)
	}
	return cfg, nil
}

// FromLegacyMode maps a legacy CLI mode number (1-9) to its preset Config.
func FromLegacyMode(mode uint8) (Config, error) {
	p, ok := profileForLegacyMode(mode)
	if !ok {
		return Config{}, fmt.Errorf("config: invalid legacy mode %d, must be 1-9", mode)
	}
	return p.Config(), nil
}

// Validate checks a Config for internally inconsistent or unsupported
// settings. Two cases are resolved deliberately rather than left to
// guesswork:
//
//   - Fragmentation.HTTPSize/HTTPSSize of zero is permissive: it
//     disables fragmentation of that one protocol (HTTP or HTTPS)
//     without disabling the strategy as a whole, since each size gates
//     its own protocol independently in Fragmentation.ShouldApply. Both
//     being zero while fragmentation is enabled leaves the strategy
//     with nothing to do, so that combination is rejected.
//   - HeaderMangle.HostRemoveSpace is rejected outright: the original
//     engine never finished wiring up the transform, and removing the
//     space after "Host:" produces a header most HTTP/1.1 servers are
//     not obliged to accept, so this is unsupported rather than silently
//     ignored.
func (c Config) Validate() error {
	if c.DNS.Enabled && c.DNS.IPv4Port == 0 {
		return fmt.Errorf("config: dns.ipv4_port must not be 0 when dns.enabled is true")
	}

	if c.Strategies.Fragmentation.Enabled {
		if c.Strategies.Fragmentation.HTTPSize < 0 || c.Strategies.Fragmentation.HTTPSize > 65535 {
			return fmt.Errorf("config: strategies.fragmentation.http_size must be between 0 and 65535")
		}
		if c.Strategies.Fragmentation.HTTPSSize < 0 || c.Strategies.Fragmentation.HTTPSSize > 65535 {
			return fmt.Errorf("config: strategies.fragmentation.https_size must be between 0 and 65535")
		}
		if c.Strategies.Fragmentation.HTTPSize == 0 && c.Strategies.Fragmentation.HTTPSSize == 0 {
			return fmt.Errorf("config: strategies.fragmentation.http_size and https_size must not both be 0 when fragmentation is enabled")
		}
	}

	fp := c.Strategies.FakePacket
	usesFixedTTLDamage := fp.Enabled && !fp.WrongChecksum && !fp.WrongSeq
	if usesFixedTTLDamage && fp.AutoTTL == nil && fp.TTL == 0 {
		return fmt.Errorf("config: strategies.fake_packet.ttl must not be 0 when wrong_checksum, wrong_seq and auto_ttl are all unset")
	}

	if c.Strategies.HeaderMangle.Enabled && c.Strategies.HeaderMangle.HostRemoveSpace {
		return fmt.Errorf("config: strategies.header_mangle.host_remove_space is not supported")
	}

	return nil
}
