// Package core defines the domain types shared by every pipeline stage.
package core

import "time"

// Preset names a weight tuple used by the ranker to combine per-axis scores.
type Preset string

const (
	PresetQuality  Preset = "quality"
	PresetTrending Preset = "trending"
	PresetCredible Preset = "credible"
	PresetLatest   Preset = "latest"
)

// Grouping controls how the final ranked list is grouped for presentation.
type Grouping string

const (
	GroupNone   Grouping = "none"
	GroupDay    Grouping = "day"
	GroupSource Grouping = "source"
)

// Tier is a coarse credibility class assigned to a source in the manifest.
type Tier string

const (
	TierWhitelist Tier = "whitelist"
	Tier1         Tier = "tier1"
	Tier2         Tier = "tier2"
	Tier3         Tier = "tier3"
	TierBlacklist Tier = "blacklist"
)

// TierWeights maps a tier to its ranking weight.
var TierWeights = map[Tier]float64{
	TierWhitelist: 1.00,
	Tier1:         0.95,
	Tier2:         0.80,
	Tier3:         0.60,
	TierBlacklist: 0.00,
}

// SourceKind identifies the ingestion mechanism of a source.
type SourceKind string

const (
	KindRSS      SourceKind = "rss"
	KindAPI      SourceKind = "api"
	KindWebCrawl SourceKind = "web-crawl"
)

// Categories is the closed category vocabulary. Callers filtering by
// category must use exactly one of these strings.
var Categories = []string{
	"politics", "economy", "society", "it", "science",
	"culture", "sports", "international", "entertainment",
}

// ValidCategory reports whether c is in the closed category set.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Request describes one analysis run. It is immutable after validation.
type Request struct {
	From            *time.Time `json:"from,omitempty"` // Start of time window (inclusive)
	To              *time.Time `json:"to,omitempty"`   // End of time window (inclusive)
	Language        string     `json:"language"`       // ISO 639-1 language code
	Country         string     `json:"country"`        // ISO 3166-1 country code
	Categories      []string   `json:"categories" validate:"dive,oneof=politics economy society it science culture sports international entertainment"`
	Keywords        []string   `json:"keywords" validate:"max=10"` // Include keywords, ordered
	ExcludeKeywords []string   `json:"exclude_keywords"`           // Keywords that disqualify an article
	Preset          Preset     `json:"preset" validate:"omitempty,oneof=quality trending credible latest"`
	GroupBy         Grouping   `json:"group_by" validate:"omitempty,oneof=none day source"`
	Limit           int        `json:"limit" validate:"min=1,max=100"`
	Offset          int        `json:"offset" validate:"min=0"`
	VerifiedOnly    bool       `json:"verified_only"` // Restrict to whitelist and tier1 sources
	Diversity       bool       `json:"diversity"`     // Enforce the per-source diversity cap
}

// Locale returns the request locale as "language-COUNTRY", or just the
// language when no country is set.
func (r Request) Locale() string {
	if r.Country == "" {
		return r.Language
	}
	return r.Language + "-" + r.Country
}

// RateLimitPolicy caps request volume against one provider.
type RateLimitPolicy struct {
	PerMinute int `yaml:"per_minute" json:"per_minute"`
	PerHour   int `yaml:"per_hour" json:"per_hour"`
	PerDay    int `yaml:"per_day" json:"per_day"`
}

// MetadataFlags declares which fields a provider reliably supplies.
type MetadataFlags struct {
	HasAuthor      bool `yaml:"has_author" json:"has_author"`
	HasViews       bool `yaml:"has_views" json:"has_views"`
	HasShares      bool `yaml:"has_shares" json:"has_shares"`
	HasComments    bool `yaml:"has_comments" json:"has_comments"`
	HasPublishDate bool `yaml:"has_publish_date" json:"has_publish_date"`
}

// Source is one entry of the source manifest plus its runtime health state.
// The registry exclusively owns Source values for the life of the process.
type Source struct {
	ID              string          `yaml:"-" json:"id"`
	Name            string          `yaml:"name" json:"name"`
	Kind            SourceKind      `yaml:"kind" json:"kind"`
	Endpoint        string          `yaml:"endpoint" json:"endpoint"`
	DefaultLocale   string          `yaml:"default_locale" json:"default_locale"`
	Locales         []string        `yaml:"locales" json:"locales"`
	Categories      []string        `yaml:"categories" json:"categories"` // Empty means category-agnostic
	Tier            Tier            `yaml:"tier" json:"tier"`
	BaseCredibility int             `yaml:"base_credibility" json:"base_credibility"` // 0-100
	RateLimit       RateLimitPolicy `yaml:"rate_limit" json:"rate_limit"`
	CrawlDelay      float64         `yaml:"crawl_delay" json:"crawl_delay"` // Seconds between requests
	UserAgent       string          `yaml:"user_agent" json:"user_agent"`
	Provides        MetadataFlags   `yaml:"provides" json:"provides"`

	// Runtime state, mutated only by the registry.
	Active              bool      `yaml:"active" json:"active"`
	LastCrawled         time.Time `yaml:"-" json:"last_crawled"`
	LastSuccess         time.Time `yaml:"-" json:"last_success"`
	ConsecutiveFailures int       `yaml:"-" json:"consecutive_failures"`
}

// Verified reports whether the source belongs to the verified tiers.
func (s Source) Verified() bool {
	return s.Tier == TierWhitelist || s.Tier == Tier1
}

// RawRecord is the output of a connector: one provider item before
// normalization. Records are created by a connector, consumed by the
// normalizer, and not retained.
type RawRecord struct {
	SourceID     string            `json:"source_id"`
	SourceName   string            `json:"source_name"`
	Payload      map[string]string `json:"payload"`  // Opaque provider fields
	RawHTML      string            `json:"raw_html"` // Raw HTML/text fragment
	Text         string            `json:"text"`     // Extracted text, if the provider supplies it
	URL          string            `json:"url"`
	FetchedAt    time.Time         `json:"fetched_at"`
	HTTPStatus   int               `json:"http_status"`
	Latency      time.Duration     `json:"latency"`
	LanguageHint string            `json:"language_hint"`
}

// Engagement carries optional provider engagement counts. A nil pointer
// means the provider did not report the metric.
type Engagement struct {
	Views    *int64 `json:"views,omitempty"`
	Shares   *int64 `json:"shares,omitempty"`
	Comments *int64 `json:"comments,omitempty"`
	Likes    *int64 `json:"likes,omitempty"`
}

// Empty reports whether no engagement metric was supplied at all.
func (e Engagement) Empty() bool {
	return e.Views == nil && e.Shares == nil && e.Comments == nil && e.Likes == nil
}

// Article is the canonical, normalized form of one news story.
type Article struct {
	ID           string     `json:"id"`
	RawID        string     `json:"raw_id"`
	SourceID     string     `json:"source_id"`
	SourceName   string     `json:"source_name"`
	SourceTier   Tier       `json:"source_tier"`
	Title        string     `json:"title"` // Plain text, HTML-stripped, entities decoded
	Body         string     `json:"body"`  // Plain text
	Summary      string     `json:"summary,omitempty"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  time.Time  `json:"published_at"` // Always timezone-aware
	Language     string     `json:"language"`
	Country      string     `json:"country"`
	Category     string     `json:"category,omitempty"` // Closed vocabulary; empty means uncategorized
	Tags         []string   `json:"tags,omitempty"`
	URL          string     `json:"url"`
	ImageURLs    []string   `json:"image_urls,omitempty"`
	Engagement   Engagement `json:"engagement"`
	CrawledAt    time.Time  `json:"crawled_at"`
	NormalizedAt time.Time  `json:"normalized_at"`
	ClusterID    string     `json:"cluster_id,omitempty"` // Set when the article represents a multi-member cluster
}

// ScoredArticle extends Article with every per-axis score, the final score
// and the rank position assigned by the ranker.
type ScoredArticle struct {
	Article

	IntegrityScore       float64  `json:"integrity_score"`
	TitleBodyConsistency float64  `json:"title_body_consistency"`
	ContaminationScore   float64  `json:"contamination_score"`
	SpamScore            float64  `json:"spam_score"`
	IntegrityFlags       []string `json:"integrity_flags,omitempty"`

	CredibilityScore      float64 `json:"credibility_score"`
	QualityScore          float64 `json:"quality_score"`
	EvidenceScore         float64 `json:"evidence_score"`
	SensationalismPenalty float64 `json:"sensationalism_penalty"`

	PopularityScore  float64 `json:"popularity_score"`
	TrendingVelocity float64 `json:"trending_velocity"`

	RelevanceScore float64 `json:"relevance_score"`

	FinalScore   float64  `json:"final_score"`   // 0-100, one decimal
	RankPosition int      `json:"rank_position"` // 1-based, set by the ranker
	PolicyFlags  []string `json:"policy_flags,omitempty"`
}
