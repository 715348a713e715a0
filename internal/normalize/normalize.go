// Package normalize turns raw provider records into canonical articles:
// HTML stripped, entities decoded, publish times parsed timezone-aware,
// categories inferred, image URLs extracted.
package normalize

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"newscollector/internal/connector"
	"newscollector/internal/core"
	"newscollector/internal/logger"
)

// ErrVideoContent marks a record dropped by the video/broadcast filter.
var ErrVideoContent = errors.New("video or broadcast content")

// ErrMalformed marks a record that cannot be normalized into a valid
// article (missing title or URL).
var ErrMalformed = errors.New("malformed record")

// SourceLookup resolves a source id to its descriptor, when available.
type SourceLookup func(id string) (core.Source, bool)

// Normalizer converts raw records to canonical articles.
type Normalizer struct {
	clock    core.Clock
	location *time.Location
	lookup   SourceLookup
}

// Options configures a Normalizer.
type Options struct {
	Clock    core.Clock
	Timezone string       // Project default timezone for zone-less timestamps, default UTC
	Lookup   SourceLookup // Optional source descriptor lookup for tier attribution
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	location := time.UTC
	if opts.Timezone != "" {
		if loc, err := time.LoadLocation(opts.Timezone); err == nil {
			location = loc
		} else {
			logger.Warn("Unknown timezone, falling back to UTC", "timezone", opts.Timezone)
		}
	}
	return &Normalizer{clock: opts.Clock, location: location, lookup: opts.Lookup}
}

// Normalize converts one raw record into an article. Video/broadcast
// titles and records without a usable title or URL are rejected.
func (n *Normalizer) Normalize(rec core.RawRecord) (core.Article, error) {
	title := CleanText(rec.Payload["title"])
	if title == "" {
		return core.Article{}, fmt.Errorf("%w: empty title", ErrMalformed)
	}
	if IsVideoTitle(title) {
		return core.Article{}, ErrVideoContent
	}
	if rec.URL == "" {
		return core.Article{}, fmt.Errorf("%w: empty URL", ErrMalformed)
	}

	body := rec.Text
	if body == "" {
		body = CleanText(rec.RawHTML)
	} else {
		body = CleanText(body)
	}

	publishedAt := n.ParsePublishTime(rec.Payload["published"], rec.FetchedAt)

	tier := n.attributeTier(rec)

	article := core.Article{
		ID:           uuid.NewString(),
		RawID:        connector.RecordID(rec.SourceID, rec.URL),
		SourceID:     rec.SourceID,
		SourceName:   rec.SourceName,
		SourceTier:   tier,
		Title:        title,
		Body:         body,
		Summary:      CleanText(rec.Payload["description"]),
		Author:       strings.TrimSpace(rec.Payload["author"]),
		PublishedAt:  publishedAt,
		Language:     languageOf(rec.LanguageHint),
		Country:      countryOf(rec.LanguageHint),
		Category:     InferCategory(rec.Payload["category"], title),
		Tags:         splitTags(rec.Payload["tags"]),
		URL:          rec.URL,
		ImageURLs:    ExtractImageURLs(rec.RawHTML),
		Engagement:   parseEngagement(rec.Payload),
		CrawledAt:    rec.FetchedAt,
		NormalizedAt: n.clock.Now(),
	}
	return article, nil
}

// BatchOptions configures batch normalization.
type BatchOptions struct {
	TargetDate *time.Time    // When set, drop articles published outside the tolerance window
	Tolerance  time.Duration // Defaults to 24h on each side
}

// BatchResult is the outcome of normalizing one batch.
type BatchResult struct {
	Articles      []core.Article
	VideoFiltered int
	DateFiltered  int
	Malformed     int
}

// NormalizeBatch normalizes every record, dropping video titles, malformed
// records and, when a target date is given, articles outside the date
// window. A single record's failure never aborts the batch.
func (n *Normalizer) NormalizeBatch(records []core.RawRecord, opts BatchOptions) BatchResult {
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = 24 * time.Hour
	}

	result := BatchResult{}
	for _, rec := range records {
		article, err := n.Normalize(rec)
		switch {
		case errors.Is(err, ErrVideoContent):
			result.VideoFiltered++
			continue
		case err != nil:
			result.Malformed++
			logger.Debug("Dropped malformed record", "source_id", rec.SourceID, "url", rec.URL, "error", err.Error())
			continue
		}

		if opts.TargetDate != nil {
			// Timezone-aware comparison: both instants on the UTC timeline.
			delta := article.PublishedAt.Sub(opts.TargetDate.UTC())
			if delta > tolerance || delta < -tolerance {
				result.DateFiltered++
				continue
			}
		}

		result.Articles = append(result.Articles, article)
	}

	logger.Info("Normalized batch",
		"in", len(records),
		"out", len(result.Articles),
		"video_filtered", result.VideoFiltered,
		"date_filtered", result.DateFiltered,
		"malformed", result.Malformed,
	)
	return result
}

// IsVideoTitle reports whether the title matches the video/broadcast
// pattern set.
func IsVideoTitle(title string) bool {
	for _, pattern := range videoTitlePatterns {
		if pattern.MatchString(title) {
			return true
		}
	}
	return false
}

var whitespaceRegex = regexp.MustCompile(`[ \t\r\f\v]+`)

// CleanText strips script/style sections and all remaining HTML tags,
// decodes entities and collapses whitespace. Plain text passes through
// with the same whitespace normalization, so the operation is idempotent.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if strings.ContainsAny(raw, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			doc.Find("script, style").Remove()

			var builder strings.Builder
			blocks := doc.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre")
			if blocks.Length() > 0 {
				blocks.Each(func(_ int, s *goquery.Selection) {
					builder.WriteString(strings.TrimSpace(s.Text()))
					builder.WriteString("\n\n")
				})
			} else {
				builder.WriteString(doc.Text())
			}
			text = builder.String()
		}
		text = html.UnescapeString(text)
	}

	// Collapse runs of spaces within lines and strip empty lines, keeping
	// the paragraph structure.
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(whitespaceRegex.ReplaceAllString(line, " "))
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// ParsePublishTime parses a provider timestamp tolerantly, covering ISO
// 8601 and RFC 2822 shapes. Unparseable or empty input falls back to the
// fetch instant. The result is always timezone-aware: layouts without zone
// information are interpreted in the project timezone.
func (n *Normalizer) ParsePublishTime(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, layout := range publishTimeFormats {
			if formatHasZone(layout) {
				if t, err := time.Parse(layout, raw); err == nil {
					return t.UTC()
				}
			} else {
				if t, err := time.ParseInLocation(layout, raw, n.location); err == nil {
					return t.UTC()
				}
			}
		}
	}
	if fallback.IsZero() {
		return n.clock.Now()
	}
	return fallback.UTC()
}

// InferCategory matches the provider category hint concatenated with the
// title against the keyword table, case-insensitively. First match wins;
// no match means uncategorized.
func InferCategory(hint, title string) string {
	haystack := strings.ToLower(hint + " " + title)
	for _, entry := range categoryKeywords {
		if strings.Contains(haystack, entry.Keyword) {
			return entry.Category
		}
	}
	return ""
}

// ExtractImageURLs returns every <img src> value in document order, with
// duplicates removed.
func ExtractImageURLs(rawHTML string) []string {
	if !strings.Contains(rawHTML, "<img") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var urls []string
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		urls = append(urls, src)
	})
	return urls
}

// attributeTier picks the article's source tier: descriptor first, then a
// payload hint, then tier2.
func (n *Normalizer) attributeTier(rec core.RawRecord) core.Tier {
	if n.lookup != nil {
		if source, ok := n.lookup(rec.SourceID); ok {
			return source.Tier
		}
	}
	if hint := rec.Payload["tier"]; hint != "" {
		tier := core.Tier(strings.ToLower(hint))
		if _, ok := core.TierWeights[tier]; ok {
			return tier
		}
	}
	return core.Tier2
}

func parseEngagement(payload map[string]string) core.Engagement {
	parse := func(key string) *int64 {
		raw, ok := payload[key]
		if !ok || raw == "" {
			return nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return nil
		}
		return &v
	}
	return core.Engagement{
		Views:    parse("views"),
		Shares:   parse("shares"),
		Comments: parse("comments"),
		Likes:    parse("likes"),
	}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func languageOf(localeHint string) string {
	if idx := strings.IndexByte(localeHint, '-'); idx > 0 {
		return localeHint[:idx]
	}
	return localeHint
}

func countryOf(localeHint string) string {
	if idx := strings.IndexByte(localeHint, '-'); idx > 0 {
		return localeHint[idx+1:]
	}
	return ""
}
