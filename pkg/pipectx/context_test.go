package pipectx

import (
	"testing"

	"github.com/gdpi-go/engine/pkg/filter"
	"github.com/stretchr/testify/assert"
)

func TestShouldBypass_DisabledFilterAppliesToEverything(t *testing.T) {
	ctx := New()
	assert.True(t, ctx.ShouldBypass("anything.com"))
}

func TestShouldBypass_BlacklistExactAndSubdomain(t *testing.T) {
	ctx := NewWithFilter(filter.WithDomains(filter.ModeBlacklist, []string{"example.com"}))

	assert.True(t, ctx.ShouldBypass("example.com"))
	assert.False(t, ctx.ShouldBypass("sub.example.com"))
	assert.False(t, ctx.ShouldBypass("notexample.com"))
}

func TestStats_SnapshotAndReset(t *testing.T) {
	ctx := New()

	ctx.Stats.PacketsProcessed.Add(100)
	ctx.Stats.PacketsFragmented.Add(50)

	snap := ctx.Stats.Snapshot()
	assert.EqualValues(t, 100, snap.PacketsProcessed)
	assert.EqualValues(t, 50, snap.PacketsFragmented)

	ctx.Stats.Reset()
	assert.EqualValues(t, 0, ctx.Stats.Snapshot().PacketsProcessed)
}
