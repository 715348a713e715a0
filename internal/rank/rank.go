// Package rank combines per-axis scores under a preset, applies the policy
// filter and the source-diversity cap, and emits the final ordered Top-N.
package rank

import (
	"math"
	"sort"

	"newscollector/internal/core"
	"newscollector/internal/logger"
)

// FlagSuspiciousCredibility marks articles kept despite low credibility.
const FlagSuspiciousCredibility = "suspicious_credibility"

// spamDropThreshold drops an article outright regardless of its composite
// integrity.
const spamDropThreshold = 0.7

// Weights is one preset's axis weight tuple. The four weights sum to 1.
type Weights struct {
	Popularity  float64
	Relevance   float64
	Quality     float64
	Credibility float64
}

// presetWeights maps each preset to its weights. An unknown or empty
// preset gets the balanced default.
var presetWeights = map[core.Preset]Weights{
	core.PresetQuality:  {Popularity: 0.15, Relevance: 0.30, Quality: 0.40, Credibility: 0.15},
	core.PresetTrending: {Popularity: 0.50, Relevance: 0.10, Quality: 0.20, Credibility: 0.20},
	core.PresetCredible: {Popularity: 0.10, Relevance: 0.20, Quality: 0.20, Credibility: 0.50},
	core.PresetLatest:   {Popularity: 0.10, Relevance: 0.20, Quality: 0.30, Credibility: 0.40},
}

var defaultWeights = Weights{Popularity: 0.25, Relevance: 0.25, Quality: 0.25, Credibility: 0.25}

// WeightsFor returns the weight tuple of a preset.
func WeightsFor(preset core.Preset) Weights {
	if w, ok := presetWeights[preset]; ok {
		return w
	}
	return defaultWeights
}

// FinalScore combines the four axis scores under the preset's weights into
// a 0-100 score rounded to one decimal.
func FinalScore(article core.ScoredArticle, weights Weights) float64 {
	raw := weights.Popularity*article.PopularityScore +
		weights.Relevance*article.RelevanceScore +
		weights.Quality*article.QualityScore +
		weights.Credibility*article.CredibilityScore
	return math.Round(raw*1000) / 10
}

// Options configures a Ranker.
type Options struct {
	IntegrityThreshold   float64 // Articles below are dropped, default 0.5
	CredibilityThreshold float64 // Articles below are flagged, default 0.6
	MaxSameSourceInTopN  int     // Diversity cap per source, default 3
}

// Ranker applies the final pipeline stage.
type Ranker struct {
	integrityThreshold   float64
	credibilityThreshold float64
	maxPerSource         int
}

// New creates a Ranker, filling unset options with defaults.
func New(opts Options) *Ranker {
	if opts.IntegrityThreshold <= 0 {
		opts.IntegrityThreshold = 0.5
	}
	if opts.CredibilityThreshold <= 0 {
		opts.CredibilityThreshold = 0.6
	}
	if opts.MaxSameSourceInTopN <= 0 {
		opts.MaxSameSourceInTopN = 3
	}
	return &Ranker{
		integrityThreshold:   opts.IntegrityThreshold,
		credibilityThreshold: opts.CredibilityThreshold,
		maxPerSource:         opts.MaxSameSourceInTopN,
	}
}

// Rank computes final scores under the request's preset, drops articles
// failing policy, orders the survivors, applies the diversity cap and the
// offset, and returns the Top-N with rank positions assigned.
func (r *Ranker) Rank(articles []core.ScoredArticle, req core.Request) []core.ScoredArticle {
	if len(articles) == 0 {
		return nil
	}

	weights := WeightsFor(req.Preset)

	// Policy filter plus final-score computation.
	kept := make([]core.ScoredArticle, 0, len(articles))
	dropped := 0
	for _, article := range articles {
		if article.IntegrityScore < r.integrityThreshold {
			dropped++
			continue
		}
		if article.SpamScore > spamDropThreshold {
			dropped++
			continue
		}
		if article.CredibilityScore < r.credibilityThreshold {
			article.PolicyFlags = append(article.PolicyFlags, FlagSuspiciousCredibility)
		}
		article.FinalScore = FinalScore(article, weights)
		kept = append(kept, article)
	}
	if dropped > 0 {
		logger.Debug("Policy filter dropped articles", "dropped", dropped, "kept", len(kept))
	}

	r.order(kept, req.Preset)

	if req.Diversity {
		kept = r.applyDiversityCap(kept)
	}

	if req.Offset > 0 {
		if req.Offset >= len(kept) {
			return nil
		}
		kept = kept[req.Offset:]
	}
	if req.Limit > 0 && len(kept) > req.Limit {
		kept = kept[:req.Limit]
	}

	for i := range kept {
		kept[i].RankPosition = i + 1
	}
	return kept
}

// order sorts in place: for the latest preset strictly by publish time
// descending with zero timestamps last; otherwise by final score
// descending with ties broken by publish time descending then id.
func (r *Ranker) order(articles []core.ScoredArticle, preset core.Preset) {
	if preset == core.PresetLatest {
		sort.SliceStable(articles, func(i, j int) bool {
			pi, pj := articles[i].PublishedAt, articles[j].PublishedAt
			if pi.IsZero() != pj.IsZero() {
				return !pi.IsZero()
			}
			return pi.After(pj)
		})
		return
	}

	sort.SliceStable(articles, func(i, j int) bool {
		if articles[i].FinalScore != articles[j].FinalScore {
			return articles[i].FinalScore > articles[j].FinalScore
		}
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		}
		return articles[i].ID < articles[j].ID
	})
}

// applyDiversityCap walks the sorted list admitting at most maxPerSource
// articles per source key. The key is the source id; when every article
// shares a single source id (e.g. one aggregator), the source name is the
// key instead.
func (r *Ranker) applyDiversityCap(articles []core.ScoredArticle) []core.ScoredArticle {
	if len(articles) == 0 {
		return articles
	}

	keyOf := func(a core.ScoredArticle) string { return a.SourceID }
	singleID := true
	for _, article := range articles[1:] {
		if article.SourceID != articles[0].SourceID {
			singleID = false
			break
		}
	}
	if singleID {
		keyOf = func(a core.ScoredArticle) string { return a.SourceName }
	}

	counts := make(map[string]int)
	admitted := make([]core.ScoredArticle, 0, len(articles))
	for _, article := range articles {
		key := keyOf(article)
		if counts[key] >= r.maxPerSource {
			continue
		}
		counts[key]++
		admitted = append(admitted, article)
	}
	return admitted
}

// Group is one bucket of a grouped result list.
type Group struct {
	Key      string
	Articles []core.ScoredArticle
}

// GroupResults buckets a ranked list by the request's grouping: by publish
// day (UTC, most recent first in encounter order) or by source name. With
// grouping none, one unnamed group holds the whole list.
func GroupResults(articles []core.ScoredArticle, grouping core.Grouping) []Group {
	if grouping == core.GroupNone || grouping == "" {
		return []Group{{Articles: articles}}
	}

	keyOf := func(a core.ScoredArticle) string {
		if grouping == core.GroupDay {
			if a.PublishedAt.IsZero() {
				return "unknown"
			}
			return a.PublishedAt.UTC().Format("2006-01-02")
		}
		return a.SourceName
	}

	index := make(map[string]int)
	var groups []Group
	for _, article := range articles {
		key := keyOf(article)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Articles = append(groups[i].Articles, article)
	}
	return groups
}
