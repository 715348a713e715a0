package connector

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"newscollector/internal/core"
	"newscollector/internal/logger"
)

// rssDocument is the RSS 2.0 feed shape.
type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	Author      string   `xml:"author"`
	Creator     string   `xml:"creator"` // dc:creator
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

// atomDocument is the Atom feed shape.
type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Link      []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Author    atomAuthor `xml:"author"`
	ID        string     `xml:"id"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// RSSConnector fetches a single RSS 2.0 or Atom feed.
type RSSConnector struct {
	source    core.Source
	client    *http.Client
	userAgent string

	// Conditional GET state carried across fetches of one instance.
	lastModified string
	etag         string
}

// RSSOptions configures an RSSConnector.
type RSSOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// NewRSSConnector creates a connector for one RSS/Atom source.
func NewRSSConnector(source core.Source, opts RSSOptions) *RSSConnector {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	userAgent := opts.UserAgent
	if source.UserAgent != "" {
		userAgent = source.UserAgent
	}
	if userAgent == "" {
		userAgent = "NewsCollector/1.0"
	}
	return &RSSConnector{
		source:    source,
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: userAgent,
	}
}

// SourceID returns the id of the feed source.
func (c *RSSConnector) SourceID() string {
	return c.source.ID
}

// Fetch issues one GET against the feed endpoint and converts matching
// entries into raw records. Unparseable XML yields zero records, not an
// error; transport failures and non-2xx statuses are errors.
func (c *RSSConnector) Fetch(ctx context.Context, keywords []string, limit int, window *TimeWindow) ([]core.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.source.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.lastModified != "" {
		req.Header.Set("If-Modified-Since", c.lastModified)
	}
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", c.source.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	elapsed := time.Since(start)

	if resp.StatusCode == http.StatusNotModified {
		logger.Debug("Feed not modified since last fetch", "source_id", c.source.ID)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned status %d", c.source.Endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	c.lastModified = resp.Header.Get("Last-Modified")
	c.etag = resp.Header.Get("ETag")

	entries := parseFeedEntries(body)
	if entries == nil {
		logger.Warn("Feed body is not parseable RSS or Atom", "source_id", c.source.ID)
		return nil, nil
	}

	fetchedAt := time.Now().UTC()
	var records []core.RawRecord
	for _, entry := range entries {
		if !matchesKeywords(keywords, entry["title"], entry["description"]) {
			continue
		}
		records = append(records, core.RawRecord{
			SourceID:     c.source.ID,
			SourceName:   c.source.Name,
			Payload:      entry,
			RawHTML:      entry["description"],
			URL:          entry["link"],
			FetchedAt:    fetchedAt,
			HTTPStatus:   resp.StatusCode,
			Latency:      elapsed,
			LanguageHint: c.source.DefaultLocale,
		})
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

// parseFeedEntries tries RSS 2.0 first, then Atom. A nil return means the
// body parsed as neither.
func parseFeedEntries(body []byte) []map[string]string {
	var rss rssDocument
	if err := xml.Unmarshal(body, &rss); err == nil && len(rss.Channel.Items) > 0 {
		entries := make([]map[string]string, 0, len(rss.Channel.Items))
		for _, item := range rss.Channel.Items {
			author := item.Author
			if author == "" {
				author = item.Creator
			}
			category := ""
			if len(item.Categories) > 0 {
				category = item.Categories[0]
			}
			entries = append(entries, map[string]string{
				"title":       item.Title,
				"link":        item.Link,
				"description": item.Description,
				"published":   item.PubDate,
				"author":      author,
				"guid":        item.GUID,
				"category":    category,
			})
		}
		return entries
	}

	var atom atomDocument
	if err := xml.Unmarshal(body, &atom); err == nil && atom.Title != "" {
		entries := make([]map[string]string, 0, len(atom.Entries))
		for _, entry := range atom.Entries {
			link := ""
			for _, l := range entry.Link {
				if l.Rel == "" || l.Rel == "alternate" {
					link = l.Href
					break
				}
			}
			published := entry.Published
			if published == "" {
				published = entry.Updated
			}
			description := entry.Summary
			if description == "" {
				description = entry.Content
			}
			entries = append(entries, map[string]string{
				"title":       entry.Title,
				"link":        link,
				"description": description,
				"published":   published,
				"author":      entry.Author.Name,
				"guid":        entry.ID,
			})
		}
		return entries
	}

	return nil
}
