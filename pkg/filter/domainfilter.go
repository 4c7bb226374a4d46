// Package filter implements the engine's domain allow/deny logic:
// whitelist mode (listed domains skip bypass), blacklist mode (only
// listed domains get bypass) and disabled mode (bypass everything).
package filter

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Mode determines how Check interprets list membership.
type Mode int

const (
	// ModeDisabled applies bypass to every domain; the filter is
	// effectively inert.
	ModeDisabled Mode = iota
	// ModeWhitelist skips bypass for listed domains (banks, sensitive
	// sites) and applies it to everything else.
	ModeWhitelist
	// ModeBlacklist applies bypass only to listed domains.
	ModeBlacklist
)

func (m Mode) String() string {
	switch m {
	case ModeWhitelist:
		return "whitelist"
	case ModeBlacklist:
		return "blacklist"
	default:
		return "disabled"
	}
}

// ModeFromString parses the config-file spelling of a mode, defaulting
// to ModeDisabled for anything unrecognised.
func ModeFromString(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "whitelist", "white":
		return ModeWhitelist
	case "blacklist", "black":
		return ModeBlacklist
	default:
		return ModeDisabled
	}
}

// Result is what Check returns.
type Result int

const (
	ApplyBypass Result = iota
	SkipBypass
)

// DomainFilter is a thread-safe exact/wildcard domain list with
// whitelist/blacklist/disabled semantics and optional hot-reload from a
// source file.
type DomainFilter struct {
	mu      sync.RWMutex
	mode    Mode
	exact   map[string]struct{}
	wild    map[string]struct{}
	path    string
	modTime time.Time
}

// New creates an empty, disabled filter.
func New() *DomainFilter {
	return &DomainFilter{
		exact: make(map[string]struct{}),
		wild:  make(map[string]struct{}),
	}
}

// WithDomains creates a filter in the given mode pre-populated with
// domains (each of which may use the "*.example.com" wildcard form).
func WithDomains(mode Mode, domains []string) *DomainFilter {
	f := New()
	f.mode = mode
	for _, d := range domains {
		f.AddDomain(d)
	}
	return f
}

// FromFile creates a filter in the given mode, loaded from path.
func FromFile(path string, mode Mode) (*DomainFilter, error) {
	f := New()
	f.mode = mode
	if _, err := f.LoadFile(path); err != nil {
		return nil, err
	}
	return f, nil
}

// FromConfig mirrors the original's convenience constructor: build a
// filter from an enabled flag, a mode string, an optional file path and
// a set of inline domains. A missing file path is not an error — the
// filter simply starts with only the inline domains.
func FromConfig(enabled bool, modeStr string, filePath string, inlineDomains []string) (*DomainFilter, error) {
	if !enabled {
		return New(), nil
	}

	f := New()
	f.mode = ModeFromString(modeStr)

	if filePath != "" {
		if _, err := os.Stat(filePath); err == nil {
			if _, err := f.LoadFile(filePath); err != nil {
				return nil, err
			}
		}
	}

	for _, d := range inlineDomains {
		f.AddDomain(d)
	}

	return f, nil
}

// Mode returns the current filter mode.
func (f *DomainFilter) Mode() Mode {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.mode
}

// SetMode changes the filter mode.
func (f *DomainFilter) SetMode(mode Mode) {
	f.mu.Lock()
	f.mode = mode
	f.mu.Unlock()
}

// AddDomain adds an exact ("example.com") or wildcard ("*.example.com")
// entry. Blank lines and comments (leading '#') are silently ignored so
// callers can feed file lines straight through.
func (f *DomainFilter) AddDomain(domain string) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || strings.HasPrefix(domain, "#") {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if stripped, ok := strings.CutPrefix(domain, "*."); ok {
		f.wild[stripped] = struct{}{}
	} else {
		f.exact[domain] = struct{}{}
	}
}

// RemoveDomain removes a previously-added entry.
func (f *DomainFilter) RemoveDomain(domain string) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	f.mu.Lock()
	defer f.mu.Unlock()
	if stripped, ok := strings.CutPrefix(domain, "*."); ok {
		delete(f.wild, stripped)
	} else {
		delete(f.exact, domain)
	}
}

// Clear removes every entry, keeping the current mode.
func (f *DomainFilter) Clear() {
	f.mu.Lock()
	f.exact = make(map[string]struct{})
	f.wild = make(map[string]struct{})
	f.mu.Unlock()
}

// LoadFile replaces the filter's contents with the domains listed in
// path (one per line, '#' comments, blank lines ignored), and remembers
// the file's path and mtime for later Reload calls.
func (f *DomainFilter) LoadFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening filter file: %w", err)
	}
	defer file.Close()

	f.Clear()

	count := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f.AddDomain(line)
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("reading filter file: %w", err)
	}

	f.mu.Lock()
	f.path = path
	f.mu.Unlock()
	f.rememberModTime(path)

	return count, nil
}

func (f *DomainFilter) rememberModTime(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.modTime = info.ModTime()
	f.mu.Unlock()
}

// Reload re-reads the source file if it has changed since the last
// load, reporting whether a reload happened. A filter with no source
// file (built via WithDomains, say) always reports false.
func (f *DomainFilter) Reload() (bool, error) {
	f.mu.RLock()
	path := f.path
	lastMod := f.modTime
	f.mu.RUnlock()

	if path == "" {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat filter file: %w", err)
	}

	if !info.ModTime().After(lastMod) {
		return false, nil
	}

	if _, err := f.LoadFile(path); err != nil {
		return false, err
	}
	return true, nil
}

// Check applies the filter's mode to hostname and reports whether
// bypass strategies should run for it.
func (f *DomainFilter) Check(hostname string) Result {
	mode := f.Mode()

	switch mode {
	case ModeWhitelist:
		if f.Matches(hostname) {
			return SkipBypass
		}
		return ApplyBypass
	case ModeBlacklist:
		if f.Matches(hostname) {
			return ApplyBypass
		}
		return SkipBypass
	default:
		return ApplyBypass
	}
}

// Matches reports whether hostname is covered by an exact or wildcard
// entry, independent of mode. A wildcard for "example.com" matches
// "example.com" itself as well as any subdomain.
func (f *DomainFilter) Matches(hostname string) bool {
	hostname = strings.ToLower(hostname)

	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, ok := f.exact[hostname]; ok {
		return true
	}

	current := hostname
	for {
		if _, ok := f.wild[current]; ok {
			return true
		}
		idx := strings.IndexByte(current, '.')
		if idx < 0 {
			break
		}
		current = current[idx+1:]
	}

	return false
}

// Len returns the total number of entries (exact + wildcard).
func (f *DomainFilter) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.exact) + len(f.wild)
}

// IsEmpty reports whether the filter has no entries at all.
func (f *DomainFilter) IsEmpty() bool {
	return f.Len() == 0
}

// Domains returns a sorted snapshot of every entry, wildcards rendered
// with their "*." prefix restored.
func (f *DomainFilter) Domains() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make([]string, 0, len(f.exact)+len(f.wild))
	for d := range f.exact {
		result = append(result, d)
	}
	for d := range f.wild {
		result = append(result, "*."+d)
	}
	sort.Strings(result)
	return result
}
