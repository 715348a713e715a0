// Package scrape fetches full article bodies for records whose provider
// returned only a summary. Scraping is opt-in: the pipeline never scrapes
// as a mandatory step, and the scraper never writes to the registry.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"newscollector/internal/logger"
)

// Result is the outcome of one scrape. A failed scrape reports its error
// in Err; the caller decides whether to keep the un-enriched record.
type Result struct {
	Success  bool
	FullBody string
	Title    string
	Images   []string
	Err      string
	Latency  time.Duration
}

// RedirectDecoder resolves a provider-wrapped redirect URL to the real
// article URL. It returns the decoded URL and whether decoding applied.
type RedirectDecoder func(rawURL string) (string, bool)

// Options configures a Scraper.
type Options struct {
	RequestsPerSecond float64       // Per-host token bucket rate, default 2
	CacheTTL          time.Duration // Per-URL result cache, default 1h
	MaxRetries        int           // Additional attempts after the first, default 2
	Timeout           time.Duration // Per-request timeout, default 15s
	UserAgent         string
	MinImageWidth     int // Images below either dimension are rejected
	MinImageHeight    int
	Decoder           RedirectDecoder // Optional redirect decoding
}

// Scraper fetches and cleans article pages. Its per-host limiters and URL
// cache are process-wide and safe for concurrent use.
type Scraper struct {
	client    *http.Client
	userAgent string
	retries   int
	perHost   float64
	minWidth  int
	minHeight int
	decoder   RedirectDecoder

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cache    map[string]cacheEntry
	cacheTTL time.Duration
	hits     int
	misses   int
}

type cacheEntry struct {
	result  Result
	expires time.Time
}

// New creates a Scraper.
func New(opts Options) *Scraper {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "NewsCollector/1.0"
	}
	if opts.MinImageWidth <= 0 {
		opts.MinImageWidth = 200
	}
	if opts.MinImageHeight <= 0 {
		opts.MinImageHeight = 150
	}
	return &Scraper{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		retries:   opts.MaxRetries,
		perHost:   opts.RequestsPerSecond,
		minWidth:  opts.MinImageWidth,
		minHeight: opts.MinImageHeight,
		decoder:   opts.Decoder,
		limiters:  make(map[string]*rate.Limiter),
		cache:     make(map[string]cacheEntry),
		cacheTTL:  opts.CacheTTL,
	}
}

// Scrape fetches the article at rawURL and returns its cleaned body,
// title and content images. Results are cached per URL; repeated calls
// within the TTL are idempotent and free.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) Result {
	target := rawURL
	if s.decoder != nil {
		if decoded, ok := s.decoder(rawURL); ok {
			target = decoded
		}
	}

	if cached, ok := s.cached(target); ok {
		return cached
	}

	start := time.Now()
	body, err := s.fetchWithRetry(ctx, target)
	latency := time.Since(start)
	if err != nil {
		result := Result{Err: err.Error(), Latency: latency}
		s.store(target, result)
		return result
	}

	result := s.extract(body)
	result.Latency = latency
	s.store(target, result)
	return result
}

// CacheStats returns cache hit and miss counts since process start.
func (s *Scraper) CacheStats() (hits, misses int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

func (s *Scraper) cached(target string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[target]
	if ok && time.Now().Before(entry.expires) {
		s.hits++
		return entry.result, true
	}
	s.misses++
	return Result{}, false
}

func (s *Scraper) store(target string, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[target] = cacheEntry{result: result, expires: time.Now().Add(s.cacheTTL)}
}

func (s *Scraper) limiter(host string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.perHost), 1)
		s.limiters[host] = limiter
	}
	return limiter
}

func (s *Scraper) fetchWithRetry(ctx context.Context, target string) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid URL %s: %w", target, err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if err := s.limiter(parsed.Host).Wait(ctx); err != nil {
			return "", err
		}

		body, err := s.fetch(ctx, target)
		if err == nil {
			return body, nil
		}
		lastErr = err
		logger.Debug("Scrape attempt failed", "url", target, "attempt", attempt+1, "error", err.Error())
	}
	return "", lastErr
}

func (s *Scraper) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create scrape request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", target, err)
	}
	return string(body), nil
}

// mainContentSelectors are tried in order when locating the article body.
var mainContentSelectors = []string{
	"article", "main", ".article-body", ".entry-content", ".post-content",
	"[role='main']", "#content", ".content",
}

func (s *Scraper) extract(htmlBody string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return Result{Err: fmt.Sprintf("failed to parse HTML: %v", err)}
	}

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, .ad, .advertisement, .related-articles").Remove()

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title, _ = doc.Find("meta[property='og:title']").Attr("content")
		title = strings.TrimSpace(title)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	var builder strings.Builder
	var content *goquery.Selection
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		content = doc.Find("body")
	}
	content.Find("p, h2, h3, li, blockquote").Each(func(_ int, item *goquery.Selection) {
		text := strings.TrimSpace(item.Text())
		if text != "" {
			builder.WriteString(text)
			builder.WriteString("\n\n")
		}
	})

	fullBody := stripBoilerplate(builder.String())
	images := s.contentImages(content)

	if fullBody == "" {
		return Result{Err: "no article content found", Title: title, Images: images}
	}
	return Result{Success: true, FullBody: fullBody, Title: title, Images: images}
}

var (
	bylineRegex    = regexp.MustCompile(`(?im)^(by\s+[A-Z][\w.\s-]{1,40}|[\w.-]+@[\w.-]+\.\w{2,}|기자\s*[\w.-]*@?[\w.-]*)$`)
	relatedRegex   = regexp.MustCompile(`(?im)^(related articles?:?|read more:?|관련\s*기사).*$`)
	copyrightRegex = regexp.MustCompile(`(?im)^(©|\(c\)|copyright\b|무단\s*전재).*$`)
	blankRunsRegex = regexp.MustCompile(`\n{3,}`)
)

// stripBoilerplate removes bylines, related-article lists and copyright
// footers, then collapses runs of blank lines.
func stripBoilerplate(body string) string {
	body = bylineRegex.ReplaceAllString(body, "")
	body = relatedRegex.ReplaceAllString(body, "")
	body = copyrightRegex.ReplaceAllString(body, "")
	body = blankRunsRegex.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}

var adImageRegex = regexp.MustCompile(`(?i)(banner|sprite|icon|logo|pixel|ad[sv]?[_/.-]|doubleclick|1x1)`)

// contentImages collects <img> sources from the content area, rejecting
// ad/icon patterns and images below the minimum resolution.
func (s *Scraper) contentImages(content *goquery.Selection) []string {
	seen := make(map[string]bool)
	var images []string
	content.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || seen[src] || adImageRegex.MatchString(src) {
			return
		}
		if w, ok := dimension(img, "width"); ok && w < s.minWidth {
			return
		}
		if h, ok := dimension(img, "height"); ok && h < s.minHeight {
			return
		}
		seen[src] = true
		images = append(images, src)
	})
	return images
}

func dimension(img *goquery.Selection, attr string) (int, bool) {
	raw, ok := img.Attr(attr)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(raw), "px"))
	if err != nil {
		return 0, false
	}
	return v, true
}
