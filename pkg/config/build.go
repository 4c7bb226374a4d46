package config

import (
	"github.com/gdpi-go/engine/pkg/filter"
	"github.com/gdpi-go/engine/pkg/strategy"
	"github.com/sirupsen/logrus"
)

// BuildStrategies constructs the strategy set this Config describes,
// wired with their configured parameters, ready to hand to
// pipeline.New().AddStrategies. Disabled strategies are omitted rather
// than constructed with Enabled=false, since a strategy with no
// configured parameters (e.g. an empty PassiveDPI.IPIDs set) is already
// inert and omitting it avoids paying for a ShouldApply call on every
// packet for nothing.
func (c Config) BuildStrategies(log logrus.FieldLogger) []strategy.Strategy {
	var out []strategy.Strategy

	if c.Strategies.QUICBlock.Enabled {
		out = append(out, strategy.NewQUICBlock(log))
	}

	if c.Strategies.FakePacket.Enabled {
		out = append(out, buildFakePacket(c.Strategies.FakePacket, log))
	}

	if c.Strategies.PassiveDPI.Enabled && len(c.Strategies.PassiveDPI.IPIDs) > 0 {
		out = append(out, strategy.NewPassiveDPI(c.Strategies.PassiveDPI.IPIDs, log))
	}

	if c.Strategies.HeaderMangle.Enabled {
		hm := strategy.NewHeaderMangle(log)
		hm.HostReplace = c.Strategies.HeaderMangle.HostReplace
		hm.HostMixCase = c.Strategies.HeaderMangle.HostMixCase
		out = append(out, hm)
	}

	if c.Strategies.Fragmentation.Enabled {
		out = append(out, buildFragmentation(c.Strategies.Fragmentation, log))
	}

	if c.DNS.Enabled {
		out = append(out, strategy.NewDNSRedirect(c.DNS.IPv4Upstream, c.DNS.IPv4Port, log))
	}

	return out
}

// buildFakePacket picks a single Damage mode from the wrong-checksum and
// wrong-seq flags. When both are set only checksum damage is used; no
// wrong-seq decoys are built. When neither is set the TTL damage mode is
// used, with the TTL taken from Auto-TTL when a SYN-ACK TTL has been
// recorded for the flow and from the fixed TTL otherwise.
func buildFakePacket(c FakePacketConfig, log logrus.FieldLogger) *strategy.FakePacket {
	damage := strategy.DamageTTL
	switch {
	case c.WrongChecksum:
		damage = strategy.DamageChecksum
	case c.WrongSeq:
		damage = strategy.DamageSeq
	}

	fp := strategy.NewFakePacket(damage, log)
	if c.TTL != 0 {
		fp.FixedTTL = c.TTL
	}
	if c.AutoTTL != nil {
		fp.TTLMarginLow = c.AutoTTL.MarginLow
		fp.TTLMarginHigh = c.AutoTTL.MarginHigh
		fp.MaxTTL = c.AutoTTL.Max
	}
	if c.MinTTLHops != 0 {
		fp.MinHops = c.MinTTLHops
	}
	if c.ResendCount != 0 {
		fp.ResendCount = int(c.ResendCount)
	}
	return fp
}

func buildFragmentation(c FragmentationConfig, log logrus.FieldLogger) *strategy.Fragmentation {
	f := strategy.NewFragmentation(log)
	f.HTTPSize = c.HTTPSize
	f.HTTPSSize = c.HTTPSSize
	f.BySNI = c.BySNI
	f.ReverseOrder = c.ReverseOrder
	f.NativeSplit = c.NativeSplit
	f.HTTPPersistent = c.HTTPPersistent
	return f
}

// BuildDomainFilter constructs the filter.DomainFilter this Config's
// blacklist settings describe: blacklist mode loaded from the
// configured files, or a disabled (bypass-everything) filter when no
// blacklist is configured.
func (c Config) BuildDomainFilter() (*filter.DomainFilter, error) {
	if !c.Blacklist.Enabled || len(c.Blacklist.Files) == 0 {
		return filter.New(), nil
	}

	f := filter.New()
	f.SetMode(filter.ModeBlacklist)
	for _, path := range c.Blacklist.Files {
		if _, err := f.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return f, nil
}
