package filter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactMatch(t *testing.T) {
	f := WithDomains(ModeBlacklist, []string{"example.com"})

	assert.True(t, f.Matches("example.com"))
	assert.False(t, f.Matches("other.com"))
}

func TestWildcardMatch(t *testing.T) {
	f := WithDomains(ModeBlacklist, []string{"*.example.com"})

	assert.True(t, f.Matches("sub.example.com"))
	assert.True(t, f.Matches("deep.sub.example.com"))
	assert.True(t, f.Matches("example.com"), "wildcard also matches its own base domain")
	assert.False(t, f.Matches("other.com"))
}

func TestWhitelistMode(t *testing.T) {
	f := WithDomains(ModeWhitelist, []string{"bank.com"})

	assert.Equal(t, SkipBypass, f.Check("bank.com"))
	assert.Equal(t, ApplyBypass, f.Check("youtube.com"))
}

func TestBlacklistMode(t *testing.T) {
	f := WithDomains(ModeBlacklist, []string{"blocked.com"})

	assert.Equal(t, ApplyBypass, f.Check("blocked.com"))
	assert.Equal(t, SkipBypass, f.Check("other.com"))
}

func TestDisabledMode(t *testing.T) {
	f := New()
	assert.Equal(t, ApplyBypass, f.Check("any.com"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.txt")
	contents := "# comment\nexample.com\n*.blocked.net\n\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	f, err := FromFile(path, ModeBlacklist)
	require.NoError(t, err)

	assert.Equal(t, 2, f.Len())
	assert.True(t, f.Matches("example.com"))
	assert.True(t, f.Matches("sub.blocked.net"))
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.txt")
	require.NoError(t, os.WriteFile(path, []byte("example.com\n"), 0o644))

	f, err := FromFile(path, ModeBlacklist)
	require.NoError(t, err)
	assert.True(t, f.Matches("example.com"))
	assert.False(t, f.Matches("added-later.com"))

	// ensure the mtime strictly advances on filesystems with coarse
	// timestamp resolution
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("added-later.com\n"), 0o644))

	reloaded, err := f.Reload()
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.True(t, f.Matches("added-later.com"))
	assert.False(t, f.Matches("example.com"), "reload replaces contents, it does not merge")
}

func TestReload_NoSourceFile(t *testing.T) {
	f := WithDomains(ModeBlacklist, []string{"example.com"})
	reloaded, err := f.Reload()
	require.NoError(t, err)
	assert.False(t, reloaded)
}
