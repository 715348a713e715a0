package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newscollector/internal/core"
	"newscollector/internal/logger"
)

// APIConnector fetches articles from a JSON search API. It composes the
// provider URL from keywords and a pagination descriptor, sends credentials
// in headers and enforces the source's rate-limit policy.
type APIConnector struct {
	source    core.Source
	client    *http.Client
	headers   map[string]string
	userAgent string
	pageSize  int
	dateQuery bool
	limiter   *rateCounter
	clock     core.Clock
}

// APIOptions configures an APIConnector.
type APIOptions struct {
	Headers            map[string]string // Credential headers, e.g. X-Api-Key
	UserAgent          string
	Timeout            time.Duration
	PageSize           int  // Items requested per page, default 50
	SupportsDateWindow bool // Provider accepts after:/before: in the query string
	Clock              core.Clock
}

// NewAPIConnector creates a connector for one search-API source.
func NewAPIConnector(source core.Source, opts APIOptions) *APIConnector {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	userAgent := opts.UserAgent
	if source.UserAgent != "" {
		userAgent = source.UserAgent
	}
	return &APIConnector{
		source:    source,
		client:    &http.Client{Timeout: opts.Timeout},
		headers:   opts.Headers,
		userAgent: userAgent,
		pageSize:  opts.PageSize,
		dateQuery: opts.SupportsDateWindow,
		limiter:   newRateCounter(source.RateLimit, opts.Clock),
		clock:     opts.Clock,
	}
}

// SourceID returns the id of the API source.
func (c *APIConnector) SourceID() string {
	return c.source.ID
}

// Fetch gathers pages from the provider until limit records are collected
// or the provider exhausts. When the daily quota is reached mid-gather the
// collected records are returned together with ErrRateLimited.
func (c *APIConnector) Fetch(ctx context.Context, keywords []string, limit int, window *TimeWindow) ([]core.RawRecord, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	query := c.composeQuery(keywords, window)

	var records []core.RawRecord
	for offset := 0; len(records) < limit; offset += c.pageSize {
		if !c.limiter.allow() {
			if c.limiter.dailyExhausted() {
				logger.Warn("Daily API quota exhausted", "source_id", c.source.ID, "collected", len(records))
				return records, ErrRateLimited
			}
			return records, nil
		}

		items, status, elapsed, err := c.fetchPage(ctx, query, offset)
		if err != nil {
			if len(records) > 0 {
				logger.Warn("API page fetch failed, returning partial results",
					"source_id", c.source.ID, "offset", offset, "error", err.Error())
				return records, nil
			}
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		fetchedAt := c.clock.Now()
		for _, item := range items {
			payload := stringifyItem(item)
			records = append(records, core.RawRecord{
				SourceID:     c.source.ID,
				SourceName:   c.source.Name,
				Payload:      payload,
				RawHTML:      payload["content"],
				Text:         payload["description"],
				URL:          payload["link"],
				FetchedAt:    fetchedAt,
				HTTPStatus:   status,
				Latency:      elapsed,
				LanguageHint: c.source.DefaultLocale,
			})
			if len(records) >= limit {
				break
			}
		}

		if len(items) < c.pageSize {
			break
		}
	}
	return records, nil
}

// composeQuery joins the keywords and, when the provider supports it,
// appends an after:/before: date window. The provider treats both bounds
// as exclusive, so the window is widened by one day on each side to keep
// the caller's inclusive semantics.
func (c *APIConnector) composeQuery(keywords []string, window *TimeWindow) string {
	parts := make([]string, 0, len(keywords)+2)
	parts = append(parts, keywords...)
	if c.dateQuery && window != nil {
		if !window.From.IsZero() {
			parts = append(parts, "after:"+window.From.AddDate(0, 0, -1).Format("2006-01-02"))
		}
		if !window.To.IsZero() {
			parts = append(parts, "before:"+window.To.AddDate(0, 0, 1).Format("2006-01-02"))
		}
	}
	return strings.Join(parts, " ")
}

// apiEnvelope is the JSON response shape. Providers name their result list
// either items or articles.
type apiEnvelope struct {
	Items    []map[string]any `json:"items"`
	Articles []map[string]any `json:"articles"`
	Status   string           `json:"status"`
	Message  string           `json:"message"`
}

func (c *APIConnector) fetchPage(ctx context.Context, query string, offset int) ([]map[string]any, int, time.Duration, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("page_size", strconv.Itoa(c.pageSize))
	params.Set("offset", strconv.Itoa(offset))
	fullURL := c.source.Endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to create API request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to execute API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, elapsed, fmt.Errorf("API %s returned status %d", c.source.ID, resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, resp.StatusCode, elapsed, fmt.Errorf("failed to parse API response: %w", err)
	}
	if envelope.Status != "" && envelope.Status != "ok" {
		return nil, resp.StatusCode, elapsed, fmt.Errorf("API %s error: %s", c.source.ID, envelope.Message)
	}

	items := envelope.Items
	if len(items) == 0 {
		items = envelope.Articles
	}
	return items, resp.StatusCode, elapsed, nil
}

// stringifyItem flattens one provider item into the opaque payload bag,
// mapping the provider's field aliases onto canonical keys.
func stringifyItem(item map[string]any) map[string]string {
	payload := make(map[string]string, len(item))
	for key, value := range item {
		switch v := value.(type) {
		case string:
			payload[strings.ToLower(key)] = v
		case float64:
			if v == float64(int64(v)) {
				payload[strings.ToLower(key)] = strconv.FormatInt(int64(v), 10)
			} else {
				payload[strings.ToLower(key)] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		case bool:
			payload[strings.ToLower(key)] = strconv.FormatBool(v)
		case nil:
			// skip
		default:
			if b, err := json.Marshal(v); err == nil {
				payload[strings.ToLower(key)] = string(b)
			}
		}
	}

	aliases := map[string][]string{
		"link":        {"url"},
		"description": {"snippet", "summary", "excerpt"},
		"published":   {"published_at", "publishedat", "pubdate", "date"},
		"content":     {"body", "full_text"},
		"author":      {"byline", "creator"},
	}
	for canonical, alts := range aliases {
		if payload[canonical] != "" {
			continue
		}
		for _, alt := range alts {
			if payload[alt] != "" {
				payload[canonical] = payload[alt]
				break
			}
		}
	}
	return payload
}
