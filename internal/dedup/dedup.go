// Package dedup removes duplicate articles and clusters near-duplicates
// by title similarity, keeping one representative per cluster.
package dedup

import (
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"newscollector/internal/core"
	"newscollector/internal/logger"
)

// DefaultSimilarityThreshold is the title Jaccard similarity above which
// two articles belong to the same cluster.
const DefaultSimilarityThreshold = 0.55

// Engine runs the three-pass dedup cascade: URL canonicalization, title
// hash collapse, then similarity clustering.
type Engine struct {
	threshold float64
}

// NewEngine creates an Engine. A non-positive threshold selects the
// default.
func NewEngine(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Engine{threshold: threshold}
}

// Result is the outcome of one dedup run.
type Result struct {
	Articles        []core.Article // Cluster representatives, in input order of their seeds
	URLDuplicates   int
	TitleDuplicates int
	Clusters        int // Clusters with more than one member
}

// Deduplicate removes URL and title duplicates, clusters the remainder by
// title similarity and returns one representative per cluster. Removing
// any input article never increases the output length.
func (e *Engine) Deduplicate(articles []core.Article) Result {
	result := Result{}
	if len(articles) == 0 {
		return result
	}

	// Pass 1: first record per canonical URL wins.
	seenURL := make(map[string]bool, len(articles))
	var afterURL []core.Article
	for _, article := range articles {
		key := CanonicalURL(article.URL)
		if seenURL[key] {
			result.URLDuplicates++
			continue
		}
		seenURL[key] = true
		afterURL = append(afterURL, article)
	}

	// Pass 2: first record per normalized title hash wins.
	seenTitle := make(map[uint64]bool, len(afterURL))
	var afterTitle []core.Article
	for _, article := range afterURL {
		key := TitleHash(article.Title)
		if seenTitle[key] {
			result.TitleDuplicates++
			continue
		}
		seenTitle[key] = true
		afterTitle = append(afterTitle, article)
	}

	// Pass 3: greedy similarity clustering in input order.
	assigned := make([]bool, len(afterTitle))
	for i := range afterTitle {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []int{i}
		seedWords := titleWords(afterTitle[i].Title)
		for j := i + 1; j < len(afterTitle); j++ {
			if assigned[j] {
				continue
			}
			if jaccardSets(seedWords, titleWords(afterTitle[j].Title)) >= e.threshold {
				assigned[j] = true
				members = append(members, j)
			}
		}

		// Representative: the member with the longest body.
		rep := members[0]
		for _, m := range members[1:] {
			if len(afterTitle[m].Body) > len(afterTitle[rep].Body) {
				rep = m
			}
		}
		representative := afterTitle[rep]
		if len(members) > 1 {
			representative.ClusterID = uuid.NewString()
			result.Clusters++
		}
		result.Articles = append(result.Articles, representative)
	}

	logger.Debug("Deduplicated batch",
		"in", len(articles),
		"out", len(result.Articles),
		"url_duplicates", result.URLDuplicates,
		"title_duplicates", result.TitleDuplicates,
		"clusters", result.Clusters,
	)
	return result
}

// CanonicalURL lowercases the URL, drops query string and fragment and
// strips the trailing slash. The operation is idempotent.
func CanonicalURL(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	parsed, err := url.Parse(lowered)
	if err != nil {
		return strings.TrimSuffix(lowered, "/")
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimSuffix(parsed.String(), "/")
}

// TitleHash hashes the lowercased, trimmed title.
func TitleHash(title string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	return h.Sum64()
}

// Jaccard computes word-level Jaccard similarity between two titles.
// Identical word sets score 1.0, disjoint sets 0.0, and an empty title on
// either side scores 0.0.
func Jaccard(a, b string) float64 {
	return jaccardSets(titleWords(a), titleWords(b))
}

func jaccardSets(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for word := range a {
		if b[word] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func titleWords(title string) map[string]bool {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(title)) {
		words[word] = true
	}
	return words
}
