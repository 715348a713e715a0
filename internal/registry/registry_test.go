package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"newscollector/internal/core"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

const manifestYAML = `
tiers:
  tier1:
    description: Established national outlets
    base_credibility: 85
    weight: 0.95
  tier2:
    description: Regional outlets
    base_credibility: 65
    weight: 0.8

sources:
  wire-one:
    name: Wire One
    kind: rss
    endpoint: https://wire-one.example.com/rss
    tier: tier1
    locales: [en-US, ko-KR]
    categories: [economy, politics]
  agg-api:
    name: Aggregator API
    kind: api
    endpoint: https://api.example.com/v1/search
    tier: whitelist
    base_credibility: 95
  local-blog:
    name: Local Blog
    kind: rss
    endpoint: https://blog.example.com/feed
    tier: tier3
    base_credibility: 35
    locales: [en]
  spam-farm:
    name: Spam Farm
    kind: rss
    endpoint: https://spam.example.com/feed
    tier: blacklist
  sleeper:
    name: Sleeper Feed
    kind: rss
    endpoint: https://sleeper.example.com/feed
    active: false
`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	manifest, err := ParseManifest([]byte(manifestYAML))
	if err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	return New(manifest, Options{MaxConsecutiveFailures: 3, Clock: fakeClock{now: testNow}})
}

func TestParseManifest(t *testing.T) {
	manifest, err := ParseManifest([]byte(manifestYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(manifest.Sources) != 5 {
		t.Fatalf("expected 5 sources, got %d", len(manifest.Sources))
	}
	// Declaration order survives parsing.
	if manifest.Sources[0].ID != "wire-one" || manifest.Sources[4].ID != "sleeper" {
		t.Errorf("declaration order lost: first %s, last %s", manifest.Sources[0].ID, manifest.Sources[4].ID)
	}

	wire := manifest.Sources[0]
	if wire.Tier != core.Tier1 {
		t.Errorf("wire-one tier = %s, want tier1", wire.Tier)
	}
	// Base credibility backfilled from the tier definition.
	if wire.BaseCredibility != 85 {
		t.Errorf("wire-one base credibility = %d, want 85 from tier def", wire.BaseCredibility)
	}
	if !wire.Active {
		t.Error("sources default to active")
	}
	if manifest.Sources[4].Active {
		t.Error("explicit active: false must be honoured")
	}

	def, ok := manifest.Tiers[core.Tier1]
	if !ok || def.BaseCredibility != 85 {
		t.Errorf("tier1 definition missing or wrong: %+v", def)
	}
}

func TestParseManifestUntieredSource(t *testing.T) {
	manifest, err := ParseManifest([]byte(`
sources:
  plain:
    name: Plain
    kind: rss
    endpoint: https://plain.example.com/feed
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if manifest.Sources[0].Tier != core.Tier2 {
		t.Errorf("untiered source tier = %s, want tier2", manifest.Sources[0].Tier)
	}
}

func TestLoadFromFileMissingManifest(t *testing.T) {
	reg := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"), Options{})
	if got := reg.All(); len(got) != 0 {
		t.Errorf("missing manifest must yield an empty registry, got %d sources", len(got))
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(manifestYAML), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	reg := LoadFromFile(path, Options{})
	if got := reg.All(); len(got) != 5 {
		t.Errorf("expected 5 sources, got %d", len(got))
	}
}

func TestSelect(t *testing.T) {
	reg := newTestRegistry(t)

	selected := reg.Select(SelectOptions{})
	// Blacklisted and inactive sources never appear.
	for _, s := range selected {
		if s.Tier == core.TierBlacklist {
			t.Errorf("blacklisted source %s selected", s.ID)
		}
		if !s.Active {
			t.Errorf("inactive source %s selected", s.ID)
		}
	}
	if len(selected) != 3 {
		t.Fatalf("expected 3 selectable sources, got %d", len(selected))
	}
	// Sorted by descending credibility.
	if selected[0].ID != "agg-api" || selected[1].ID != "wire-one" || selected[2].ID != "local-blog" {
		t.Errorf("selection order wrong: %s, %s, %s", selected[0].ID, selected[1].ID, selected[2].ID)
	}
}

func TestSelectFilters(t *testing.T) {
	reg := newTestRegistry(t)

	verified := reg.Select(SelectOptions{VerifiedOnly: true})
	if len(verified) != 2 {
		t.Errorf("expected 2 verified sources, got %d", len(verified))
	}

	// Category filter: sources with an empty category set always match.
	economy := reg.Select(SelectOptions{Categories: []string{"economy"}})
	found := map[string]bool{}
	for _, s := range economy {
		found[s.ID] = true
	}
	if !found["wire-one"] || !found["agg-api"] {
		t.Errorf("economy selection missing expected sources: %v", found)
	}

	sports := reg.Select(SelectOptions{Categories: []string{"sports"}})
	for _, s := range sports {
		if s.ID == "wire-one" {
			t.Error("wire-one does not cover sports but was selected")
		}
	}

	// Locale filter: a bare language code in the supported set matches any
	// country variant.
	enGB := reg.Select(SelectOptions{Locale: "en-GB"})
	found = map[string]bool{}
	for _, s := range enGB {
		found[s.ID] = true
	}
	if !found["local-blog"] {
		t.Error("bare 'en' should match en-GB")
	}
	if found["wire-one"] {
		t.Error("wire-one supports only en-US and ko-KR, not en-GB")
	}

	api := reg.Select(SelectOptions{Kind: core.KindAPI})
	if len(api) != 1 || api[0].ID != "agg-api" {
		t.Errorf("kind filter wrong: %v", api)
	}
}

func TestHealthTracking(t *testing.T) {
	reg := newTestRegistry(t)

	reg.RecordFailure("wire-one")
	reg.RecordFailure("wire-one")
	source, _ := reg.Lookup("wire-one")
	if source.ConsecutiveFailures != 2 {
		t.Errorf("failures = %d, want 2", source.ConsecutiveFailures)
	}
	if !source.Active {
		t.Error("source deactivated before threshold")
	}

	// A success resets the streak.
	reg.RecordSuccess("wire-one")
	source, _ = reg.Lookup("wire-one")
	if source.ConsecutiveFailures != 0 {
		t.Errorf("failures after success = %d, want 0", source.ConsecutiveFailures)
	}
	if !source.LastSuccess.Equal(testNow) || !source.LastCrawled.Equal(testNow) {
		t.Errorf("timestamps not set: success %v, crawled %v", source.LastSuccess, source.LastCrawled)
	}

	// Reaching the threshold deactivates.
	reg.RecordFailure("wire-one")
	reg.RecordFailure("wire-one")
	reg.RecordFailure("wire-one")
	source, _ = reg.Lookup("wire-one")
	if source.Active {
		t.Error("source should be deactivated at the failure threshold")
	}

	// Unknown ids are a no-op.
	reg.RecordFailure("nope")
	reg.RecordSuccess("nope")
}

func TestReactivate(t *testing.T) {
	reg := newTestRegistry(t)

	for i := 0; i < 3; i++ {
		reg.RecordFailure("wire-one")
	}
	if err := reg.Reactivate("wire-one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	source, _ := reg.Lookup("wire-one")
	if !source.Active || source.ConsecutiveFailures != 0 {
		t.Errorf("reactivation incomplete: active=%v failures=%d", source.Active, source.ConsecutiveFailures)
	}

	if err := reg.Reactivate("spam-farm"); err == nil {
		t.Error("blacklisted source must not be reactivatable")
	}

	if err := reg.Reactivate("nope"); err != nil {
		t.Errorf("unknown id should be a no-op, got %v", err)
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	reg := newTestRegistry(t)
	source, ok := reg.Lookup("wire-one")
	if !ok {
		t.Fatal("wire-one not found")
	}
	source.ConsecutiveFailures = 99

	again, _ := reg.Lookup("wire-one")
	if again.ConsecutiveFailures != 0 {
		t.Error("Lookup must return a copy, not a shared pointer")
	}
}
