// Package pipeline composes the full analysis flow: request validation,
// source selection, concurrent ingestion, normalization, deduplication,
// scoring and ranking.
package pipeline

import (
	"context"
	"strings"
	"time"

	"newscollector/internal/config"
	"newscollector/internal/connector"
	"newscollector/internal/core"
	"newscollector/internal/credibility"
	"newscollector/internal/dedup"
	"newscollector/internal/ingest"
	"newscollector/internal/integrity"
	"newscollector/internal/logger"
	"newscollector/internal/normalize"
	"newscollector/internal/popularity"
	"newscollector/internal/rank"
	"newscollector/internal/registry"
	"newscollector/internal/relevance"
	"newscollector/internal/request"
)

// ConnectorFactory builds a connector for one source. Swappable so tests
// can run the pipeline against mock connectors.
type ConnectorFactory func(source core.Source) connector.Connector

// Pipeline wires every stage together. Construct once, run many times;
// concurrent Analyze calls are safe.
type Pipeline struct {
	cfg      *config.Config
	registry *registry.Registry
	clock    core.Clock
	factory  ConnectorFactory
}

// Options configures a Pipeline.
type Options struct {
	Config   *config.Config
	Registry *registry.Registry
	Clock    core.Clock       // Defaults to the real clock
	Factory  ConnectorFactory // Defaults to kind-based connector construction
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Config == nil {
		opts.Config = config.Get()
	}
	if opts.Clock == nil {
		opts.Clock = core.RealClock{}
	}
	p := &Pipeline{
		cfg:      opts.Config,
		registry: opts.Registry,
		clock:    opts.Clock,
		factory:  opts.Factory,
	}
	if p.factory == nil {
		p.factory = p.defaultFactory
	}
	return p
}

// Stats counts what happened at each stage of one run.
type Stats struct {
	SourcesSelected  int           `json:"sources_selected"`
	SourcesSucceeded int           `json:"sources_succeeded"`
	SourcesFailed    int           `json:"sources_failed"`
	SourcesExhausted int           `json:"sources_exhausted"`
	RawRecords       int           `json:"raw_records"`
	Normalized       int           `json:"normalized"`
	VideoFiltered    int           `json:"video_filtered"`
	DateFiltered     int           `json:"date_filtered"`
	Malformed        int           `json:"malformed"`
	ExcludeFiltered  int           `json:"exclude_filtered"`
	URLDuplicates    int           `json:"url_duplicates"`
	TitleDuplicates  int           `json:"title_duplicates"`
	Clusters         int           `json:"clusters"`
	Scored           int           `json:"scored"`
	Ranked           int           `json:"ranked"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Analysis is the output of one pipeline run.
type Analysis struct {
	Articles []core.ScoredArticle `json:"articles"`
	Groups   []rank.Group         `json:"groups,omitempty"`
	Stats    Stats                `json:"stats"`
}

// Analyze runs the seven-stage flow for one request. Fetch failures and
// per-record rejections degrade the result instead of failing it; only an
// invalid request yields an error. When the context deadline expires
// mid-run, the stages already completed determine the result and the
// remaining stages see empty input.
func (p *Pipeline) Analyze(ctx context.Context, req core.Request) (*Analysis, error) {
	started := p.clock.Now()

	request.ApplyDefaults(&req, p.cfg)
	if err := request.Validate(req); err != nil {
		return nil, err
	}

	analysis := &Analysis{}

	// Stage 2: source selection.
	sources := p.registry.Select(registry.SelectOptions{
		Categories:   req.Categories,
		Locale:       req.Locale(),
		VerifiedOnly: req.VerifiedOnly,
	})
	analysis.Stats.SourcesSelected = len(sources)
	if len(sources) == 0 {
		logger.Warn("No sources matched the request", "locale", req.Locale(), "categories", req.Categories)
		analysis.Stats.Elapsed = p.clock.Now().Sub(started)
		return analysis, nil
	}

	// Stage 3: concurrent ingestion.
	connectors := make([]connector.Connector, 0, len(sources))
	for _, source := range sources {
		connectors = append(connectors, p.factory(source))
	}
	var window *connector.TimeWindow
	if req.From != nil || req.To != nil {
		window = &connector.TimeWindow{}
		if req.From != nil {
			window.From = *req.From
		}
		if req.To != nil {
			window.To = *req.To
		}
	}

	orchestrator := ingest.New(p.registry, 0)
	gathered := orchestrator.Gather(ctx, connectors, req.Keywords, perSourceLimit(req.Limit), window)
	analysis.Stats.SourcesSucceeded = gathered.Succeeded
	analysis.Stats.SourcesFailed = gathered.Failed
	analysis.Stats.SourcesExhausted = gathered.Exhausted
	analysis.Stats.RawRecords = len(gathered.Records)

	// Stage 4: normalization. Past the deadline the batch is empty and the
	// run completes with whatever earlier stages produced.
	records := gathered.Records
	if p.deadlineExpired(ctx) {
		logger.Warn("Deadline expired before normalization, finishing with partial results")
		records = nil
	}
	normalizer := normalize.New(normalize.Options{
		Clock:    p.clock,
		Timezone: p.cfg.Defaults.Timezone,
		Lookup:   p.registry.Lookup,
	})
	batch := normalizer.NormalizeBatch(records, normalize.BatchOptions{})
	analysis.Stats.Normalized = len(batch.Articles)
	analysis.Stats.VideoFiltered = batch.VideoFiltered
	analysis.Stats.DateFiltered = batch.DateFiltered
	analysis.Stats.Malformed = batch.Malformed

	articles := filterWindow(batch.Articles, req)
	articles, excluded := filterExcluded(articles, req.ExcludeKeywords)
	analysis.Stats.ExcludeFiltered = excluded

	// Stage 5: deduplication.
	deduped := dedup.NewEngine(p.cfg.Dedup.SimilarityThreshold).Deduplicate(articles)
	analysis.Stats.URLDuplicates = deduped.URLDuplicates
	analysis.Stats.TitleDuplicates = deduped.TitleDuplicates
	analysis.Stats.Clusters = deduped.Clusters
	articles = deduped.Articles

	// Stage 6: scoring. Batch aggregates first, then independent per-article
	// passes over the snapshot.
	if p.deadlineExpired(ctx) {
		logger.Warn("Deadline expired before scoring, finishing with partial results")
		articles = nil
	}
	scored := p.score(articles, req)
	analysis.Stats.Scored = len(scored)

	// Stage 7: ranking, policy filter, diversity cap, grouping.
	ranker := rank.New(rank.Options{
		IntegrityThreshold:   p.cfg.Scoring.IntegrityThreshold,
		CredibilityThreshold: p.cfg.Scoring.CredibilityThreshold,
		MaxSameSourceInTopN:  p.cfg.Scoring.SourceDiversity.MaxSameSourceInTopN,
	})
	analysis.Articles = ranker.Rank(scored, req)
	analysis.Stats.Ranked = len(analysis.Articles)
	if req.GroupBy != "" && req.GroupBy != core.GroupNone {
		analysis.Groups = rank.GroupResults(analysis.Articles, req.GroupBy)
	}

	analysis.Stats.Elapsed = p.clock.Now().Sub(started)
	logger.Info("Analysis completed",
		"ranked", analysis.Stats.Ranked,
		"scored", analysis.Stats.Scored,
		"raw", analysis.Stats.RawRecords,
		"elapsed", analysis.Stats.Elapsed.String(),
	)
	return analysis, nil
}

// score runs the batch pre-passes and the four per-article axis scorers.
func (p *Pipeline) score(articles []core.Article, req core.Request) []core.ScoredArticle {
	if len(articles) == 0 {
		return nil
	}

	corroborators := credibility.CorroborationCounts(articles)
	engagementMax := popularity.MaxEngagement(articles)

	credScorer := credibility.NewScorer(p.registry.Lookup)
	popScorer := popularity.NewScorer(p.clock, 0)

	scored := make([]core.ScoredArticle, 0, len(articles))
	for i, article := range articles {
		s := core.ScoredArticle{Article: article}

		integ := integrity.Check(article)
		s.IntegrityScore = integ.Integrity
		s.TitleBodyConsistency = integ.Consistency
		s.ContaminationScore = integ.Contamination
		s.SpamScore = integ.Spam
		s.IntegrityFlags = integ.Flags

		cred := credScorer.Score(article, corroborators[i])
		s.CredibilityScore = cred.Credibility
		s.QualityScore = cred.Quality
		s.EvidenceScore = cred.Evidence
		s.SensationalismPenalty = cred.Sensationalism

		pop := popScorer.Score(article, engagementMax)
		s.PopularityScore = pop.Popularity
		s.TrendingVelocity = pop.TrendingVelocity

		s.RelevanceScore = relevance.Score(article, req.Keywords)

		scored = append(scored, s)
	}
	return scored
}

// filterWindow drops articles published outside the request's inclusive
// time window. Comparison happens on the UTC timeline.
func filterWindow(articles []core.Article, req core.Request) []core.Article {
	if req.From == nil && req.To == nil {
		return articles
	}
	kept := articles[:0]
	for _, article := range articles {
		at := article.PublishedAt.UTC()
		if req.From != nil && at.Before(req.From.UTC()) {
			continue
		}
		if req.To != nil && at.After(req.To.UTC()) {
			continue
		}
		kept = append(kept, article)
	}
	return kept
}

// filterExcluded drops articles whose title or body contains any exclude
// keyword, case-insensitively.
func filterExcluded(articles []core.Article, exclude []string) ([]core.Article, int) {
	if len(exclude) == 0 {
		return articles, 0
	}
	dropped := 0
	kept := articles[:0]
	for _, article := range articles {
		haystack := strings.ToLower(article.Title + " " + article.Body)
		hit := false
		for _, kw := range exclude {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(haystack, kw) {
				hit = true
				break
			}
		}
		if hit {
			dropped++
			continue
		}
		kept = append(kept, article)
	}
	return kept, dropped
}

// defaultFactory builds the connector matching the source's ingestion
// kind. Web-crawl sources go through the RSS connector path, which also
// handles plain XML endpoints.
func (p *Pipeline) defaultFactory(source core.Source) connector.Connector {
	timeout, err := time.ParseDuration(p.cfg.Connectors.Timeout)
	if err != nil {
		timeout = 15 * time.Second
	}

	switch source.Kind {
	case core.KindAPI:
		return connector.NewAPIConnector(source, connector.APIOptions{
			UserAgent: p.cfg.Connectors.UserAgent,
			Timeout:   timeout,
			Clock:     p.clock,
		})
	default:
		return connector.NewRSSConnector(source, connector.RSSOptions{
			UserAgent: p.cfg.Connectors.UserAgent,
			Timeout:   timeout,
		})
	}
}

// perSourceLimit oversamples each source relative to the requested Top-N
// so that dedup and the policy filter still leave enough candidates.
func perSourceLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	oversampled := limit * 3
	if oversampled > 100 {
		oversampled = 100
	}
	return oversampled
}

func (p *Pipeline) deadlineExpired(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return false
	}
	return !p.clock.Now().Before(deadline)
}
