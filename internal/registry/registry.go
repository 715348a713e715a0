// Package registry owns the source table: declarative metadata loaded from
// the manifest plus the runtime health state mutated by the orchestrator.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"newscollector/internal/core"
	"newscollector/internal/logger"
)

// Registry is the process-wide source table. Reads are concurrent;
// mutations are serialised behind a write lock.
type Registry struct {
	mu          sync.RWMutex
	sources     map[string]*core.Source
	order       []string // Manifest declaration order
	tiers       map[core.Tier]TierDef
	maxFailures int
	clock       core.Clock
}

// Options configures a Registry.
type Options struct {
	MaxConsecutiveFailures int        // A source is deactivated once it fails this many times in a row
	Clock                  core.Clock // Defaults to the real clock
}

// New creates a registry from an already-parsed manifest.
func New(manifest *Manifest, opts Options) *Registry {
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 5
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}

	r := &Registry{
		sources:     make(map[string]*core.Source),
		tiers:       map[core.Tier]TierDef{},
		maxFailures: opts.MaxConsecutiveFailures,
		clock:       opts.Clock,
	}
	if manifest != nil {
		for tier, def := range manifest.Tiers {
			r.tiers[tier] = def
		}
		for i := range manifest.Sources {
			source := manifest.Sources[i]
			r.sources[source.ID] = &source
			r.order = append(r.order, source.ID)
		}
	}
	return r
}

// LoadFromFile builds a registry from the manifest at path. A missing or
// unreadable manifest yields an empty registry: queries return empty
// results and the condition is logged, never raised.
func LoadFromFile(path string, opts Options) *Registry {
	manifest, err := LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Source manifest not found, registry is empty", "path", path)
		} else {
			logger.Error("Failed to load source manifest, registry is empty", err, "path", path)
		}
		return New(nil, opts)
	}
	logger.Info("Loaded source manifest", "path", path, "sources", len(manifest.Sources))
	return New(manifest, opts)
}

// Lookup returns a copy of the source with the given id.
func (r *Registry) Lookup(id string) (core.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[id]
	if !ok {
		return core.Source{}, false
	}
	return *source, true
}

// All returns every source in manifest order.
func (r *Registry) All() []core.Source {
	return r.filter(func(core.Source) bool { return true })
}

// Active returns every active source in manifest order.
func (r *Registry) Active() []core.Source {
	return r.filter(func(s core.Source) bool { return s.Active })
}

// ByTier returns every source with the given tier.
func (r *Registry) ByTier(tier core.Tier) []core.Source {
	return r.filter(func(s core.Source) bool { return s.Tier == tier })
}

// ByKind returns every source with the given ingestion kind.
func (r *Registry) ByKind(kind core.SourceKind) []core.Source {
	return r.filter(func(s core.Source) bool { return s.Kind == kind })
}

// ByCategory returns every source supporting the given category. Sources
// with an empty category set are category-agnostic and always match.
func (r *Registry) ByCategory(category string) []core.Source {
	return r.filter(func(s core.Source) bool {
		return len(s.Categories) == 0 || containsFold(s.Categories, category)
	})
}

// ByLocale returns every source supporting the given locale.
func (r *Registry) ByLocale(locale string) []core.Source {
	return r.filter(func(s core.Source) bool { return supportsLocale(s, locale) })
}

// Verified returns every whitelist or tier1 source.
func (r *Registry) Verified() []core.Source {
	return r.filter(func(s core.Source) bool { return s.Verified() })
}

// TierDefinition returns the manifest's definition for a tier.
func (r *Registry) TierDefinition(tier core.Tier) (TierDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tiers[tier]
	return def, ok
}

// SelectOptions filters source selection for one request.
type SelectOptions struct {
	Categories   []string        // Optional category filter
	Locale       string          // Optional locale, e.g. "ko-KR"
	VerifiedOnly bool            // Restrict to whitelist and tier1
	Kind         core.SourceKind // Optional ingestion-kind filter
}

// Select returns all active, non-blacklisted sources matching the options,
// sorted by descending base credibility with ties broken by id.
func (r *Registry) Select(opts SelectOptions) []core.Source {
	selected := r.filter(func(s core.Source) bool {
		if !s.Active || s.Tier == core.TierBlacklist {
			return false
		}
		if opts.VerifiedOnly && !s.Verified() {
			return false
		}
		if opts.Kind != "" && s.Kind != opts.Kind {
			return false
		}
		if len(opts.Categories) > 0 && len(s.Categories) > 0 && !intersectsFold(s.Categories, opts.Categories) {
			return false
		}
		if opts.Locale != "" && !supportsLocale(s, opts.Locale) {
			return false
		}
		return true
	})

	sort.Slice(selected, func(i, j int) bool {
		if selected[i].BaseCredibility != selected[j].BaseCredibility {
			return selected[i].BaseCredibility > selected[j].BaseCredibility
		}
		return selected[i].ID < selected[j].ID
	})
	return selected
}

// RecordSuccess zeroes the failure counter and updates both crawl
// timestamps. Unknown ids are a no-op.
func (r *Registry) RecordSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	source, ok := r.sources[id]
	if !ok {
		return
	}
	now := r.clock.Now()
	source.ConsecutiveFailures = 0
	source.LastCrawled = now
	source.LastSuccess = now
}

// RecordFailure increments the failure counter and deactivates the source
// once the configured threshold is reached. Unknown ids are a no-op.
func (r *Registry) RecordFailure(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	source, ok := r.sources[id]
	if !ok {
		return
	}
	source.ConsecutiveFailures++
	source.LastCrawled = r.clock.Now()
	if source.Active && source.ConsecutiveFailures >= r.maxFailures {
		source.Active = false
		logger.Warn("Source auto-deactivated after consecutive failures",
			"source_id", id, "failures", source.ConsecutiveFailures)
	}
}

// Reactivate restores a deactivated source and zeroes its failure counter.
// Blacklisted sources cannot be reactivated. Unknown ids are a no-op.
func (r *Registry) Reactivate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	source, ok := r.sources[id]
	if !ok {
		return nil
	}
	if source.Tier == core.TierBlacklist {
		return fmt.Errorf("cannot reactivate blacklisted source %q", id)
	}
	source.Active = true
	source.ConsecutiveFailures = 0
	logger.Info("Source reactivated", "source_id", id)
	return nil
}

// filter returns copies of the sources matching keep, in manifest order.
func (r *Registry) filter(keep func(core.Source) bool) []core.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.Source
	for _, id := range r.order {
		source := r.sources[id]
		if keep(*source) {
			out = append(out, *source)
		}
	}
	return out
}

// supportsLocale reports whether the source serves the locale. An empty
// supported set means the source is locale-agnostic. A bare language code
// in the supported set matches any country variant of that language.
func supportsLocale(s core.Source, locale string) bool {
	if len(s.Locales) == 0 {
		return true
	}
	lang := locale
	if idx := strings.IndexByte(locale, '-'); idx > 0 {
		lang = locale[:idx]
	}
	for _, supported := range s.Locales {
		if strings.EqualFold(supported, locale) || strings.EqualFold(supported, lang) {
			return true
		}
	}
	return false
}

func containsFold(haystack []string, needle string) bool {
	for _, v := range haystack {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

func intersectsFold(a, b []string) bool {
	for _, v := range b {
		if containsFold(a, v) {
			return true
		}
	}
	return false
}

// LastActivity returns the most recent crawl instant across all sources.
// Zero time means no source has been crawled yet.
func (r *Registry) LastActivity() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest time.Time
	for _, source := range r.sources {
		if source.LastCrawled.After(latest) {
			latest = source.LastCrawled
		}
	}
	return latest
}
