package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"newscollector/internal/config"
	"newscollector/internal/connector"
	"newscollector/internal/core"
	"newscollector/internal/registry"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

const testManifest = `
tiers:
  tier1:
    base_credibility: 85
  tier2:
    base_credibility: 65
sources:
  wire-a:
    name: Wire A
    kind: rss
    endpoint: https://wire-a.example.com/feed
    tier: tier1
    categories: [economy, politics]
  wire-b:
    name: Wire B
    kind: rss
    endpoint: https://wire-b.example.com/feed
    tier: tier2
`

func testConfig() *config.Config {
	return &config.Config{
		Defaults: config.Defaults{
			Language:  "en",
			Country:   "US",
			Timezone:  "UTC",
			Limit:     20,
			GroupBy:   "none",
			Diversity: true,
		},
		Scoring: config.Scoring{
			IntegrityThreshold:   0.5,
			CredibilityThreshold: 0.6,
			SourceDiversity:      config.SourceDiversity{MaxSameSourceInTopN: 3},
		},
		Dedup: config.Dedup{SimilarityThreshold: 0.55},
	}
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	manifest, err := registry.ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("manifest parse failed: %v", err)
	}
	return registry.New(manifest, registry.Options{Clock: fakeClock{testNow}})
}

// wireRecord builds a raw record whose body repeats the title's content
// words, so the integrity stage sees a consistent article.
func wireRecord(sourceID, url, title, body string) core.RawRecord {
	return core.RawRecord{
		SourceID:     sourceID,
		SourceName:   sourceID,
		URL:          url,
		Payload:      map[string]string{"title": title, "published": testNow.Add(-2 * time.Hour).Format(time.RFC3339)},
		Text:         body,
		FetchedAt:    testNow.Add(-time.Hour),
		LanguageHint: "en-US",
	}
}

const bankBody = "The central bank cut its benchmark rate by a quarter point to support growth. " +
	"Officials said the benchmark rate cut should support growth through the second half. " +
	"Economists expect the central bank to hold the benchmark rate steady after this cut."

const chipBody = "The chipmaker opened a new fabrication plant to expand chip production capacity. " +
	"Analysts said the plant expands the chipmaker's production capacity by a third. " +
	"The chipmaker expects the new plant to reach full chip production next year."

func mockFactory(records map[string][]core.RawRecord, errs map[string]error) ConnectorFactory {
	return func(source core.Source) connector.Connector {
		return &connector.MockConnector{
			ID:      source.ID,
			Records: records[source.ID],
			Err:     errs[source.ID],
		}
	}
}

func newTestPipeline(t *testing.T, records map[string][]core.RawRecord, errs map[string]error) *Pipeline {
	t.Helper()
	return New(Options{
		Config:   testConfig(),
		Registry: testRegistry(t),
		Clock:    fakeClock{testNow},
		Factory:  mockFactory(records, errs),
	})
}

func TestAnalyzeHappyPath(t *testing.T) {
	records := map[string][]core.RawRecord{
		"wire-a": {
			wireRecord("wire-a", "https://wire-a.example.com/1", "Central bank cuts benchmark rate", bankBody),
			wireRecord("wire-a", "https://wire-a.example.com/2", "Chipmaker opens new fabrication plant", chipBody),
		},
		"wire-b": {
			wireRecord("wire-b", "https://wire-b.example.com/1", "Chipmaker plant expands production capacity", chipBody),
		},
	}

	pipeline := newTestPipeline(t, records, nil)
	analysis, err := pipeline.Analyze(context.Background(), core.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := analysis.Stats
	if stats.SourcesSelected != 2 || stats.SourcesSucceeded != 2 || stats.SourcesFailed != 0 {
		t.Errorf("source stats wrong: %+v", stats)
	}
	if stats.RawRecords != 3 {
		t.Errorf("raw records = %d, want 3", stats.RawRecords)
	}
	if len(analysis.Articles) == 0 {
		t.Fatal("expected ranked articles")
	}

	for i, article := range analysis.Articles {
		if article.RankPosition != i+1 {
			t.Errorf("rank position at %d = %d", i, article.RankPosition)
		}
		if i > 0 && article.FinalScore > analysis.Articles[i-1].FinalScore {
			t.Errorf("articles not sorted by final score at %d", i)
		}
		if article.FinalScore < 0 || article.FinalScore > 100 {
			t.Errorf("final score out of range: %g", article.FinalScore)
		}
	}
}

func TestAnalyzeDeduplicatesSharedStory(t *testing.T) {
	// Both wires carry the same story under near-identical titles; only one
	// survives into the ranking.
	records := map[string][]core.RawRecord{
		"wire-a": {
			wireRecord("wire-a", "https://wire-a.example.com/1", "Central bank cuts benchmark rate to support growth", bankBody),
		},
		"wire-b": {
			wireRecord("wire-b", "https://wire-b.example.com/1", "Central bank cuts benchmark rate to support growth today", bankBody),
		},
	}

	pipeline := newTestPipeline(t, records, nil)
	analysis, err := pipeline.Analyze(context.Background(), core.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Stats.Clusters != 1 {
		t.Errorf("clusters = %d, want 1", analysis.Stats.Clusters)
	}
	if len(analysis.Articles) != 1 {
		t.Errorf("expected 1 ranked article, got %d", len(analysis.Articles))
	}
}

func TestAnalyzeExcludeKeywords(t *testing.T) {
	records := map[string][]core.RawRecord{
		"wire-a": {
			wireRecord("wire-a", "https://wire-a.example.com/1", "Central bank cuts benchmark rate", bankBody),
			wireRecord("wire-a", "https://wire-a.example.com/2", "Crypto exchange halts withdrawals", "The crypto exchange halted withdrawals citing liquidity. The exchange said crypto withdrawals resume after the liquidity review."),
		},
	}

	pipeline := newTestPipeline(t, records, nil)
	analysis, err := pipeline.Analyze(context.Background(), core.Request{ExcludeKeywords: []string{"crypto"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Stats.ExcludeFiltered != 1 {
		t.Errorf("exclude filtered = %d, want 1", analysis.Stats.ExcludeFiltered)
	}
	for _, article := range analysis.Articles {
		if article.URL == "https://wire-a.example.com/2" {
			t.Error("excluded article survived into the ranking")
		}
	}
}

func TestAnalyzeIsolatesFailingSource(t *testing.T) {
	records := map[string][]core.RawRecord{
		"wire-a": {
			wireRecord("wire-a", "https://wire-a.example.com/1", "Central bank cuts benchmark rate", bankBody),
		},
	}
	errs := map[string]error{"wire-b": errors.New("connection refused")}

	pipeline := newTestPipeline(t, records, errs)
	analysis, err := pipeline.Analyze(context.Background(), core.Request{})
	if err != nil {
		t.Fatalf("a failing source must not fail the run: %v", err)
	}
	if analysis.Stats.SourcesSucceeded != 1 || analysis.Stats.SourcesFailed != 1 {
		t.Errorf("source stats wrong: %+v", analysis.Stats)
	}
	if len(analysis.Articles) != 1 {
		t.Errorf("healthy source's article lost: %d", len(analysis.Articles))
	}
}

func TestAnalyzeNoMatchingSources(t *testing.T) {
	pipeline := newTestPipeline(t, nil, nil)
	analysis, err := pipeline.Analyze(context.Background(), core.Request{Categories: []string{"sports"}, VerifiedOnly: true})
	if err != nil {
		t.Fatalf("empty selection must not error: %v", err)
	}
	// wire-a is tier1 but carries no sports category; wire-b is
	// category-agnostic but not verified.
	if analysis.Stats.SourcesSelected != 0 {
		t.Errorf("sources selected = %d, want 0", analysis.Stats.SourcesSelected)
	}
	if len(analysis.Articles) != 0 {
		t.Errorf("expected no articles, got %d", len(analysis.Articles))
	}
}

func TestAnalyzeDefaultRequestHonoursDiversityCap(t *testing.T) {
	stories := []struct{ title, body string }{
		{"Central bank cuts benchmark rate", bankBody},
		{"Chipmaker opens new fabrication plant", chipBody},
		{"Parliament passes budget amendment", "Parliament passes the budget amendment after debate. Lawmakers said the budget amendment passes with broad support. The amendment parliament passes funds regional programs."},
		{"Drought hits regional wheat harvest", "Drought hits the regional wheat harvest this season. Farmers said the drought cut the wheat harvest sharply. The regional wheat harvest faces drought losses."},
		{"Airline resumes transatlantic routes", "The airline resumes transatlantic routes next month. The airline said the transatlantic routes resume with daily flights. Travelers welcomed the resumed transatlantic routes."},
		{"Museum unveils restored mural", "The museum unveils a restored mural downtown. Curators said the museum restored the mural over several years. Crowds gathered as the museum unveils the mural."},
	}

	var batch []core.RawRecord
	for i, story := range stories {
		batch = append(batch, wireRecord("wire-a",
			fmt.Sprintf("https://wire-a.example.com/%d", i+1), story.title, story.body))
	}
	records := map[string][]core.RawRecord{"wire-a": batch}

	// A request with no fields set picks up diversity from the defaults;
	// the cap must hold without the caller opting in.
	pipeline := newTestPipeline(t, records, nil)
	analysis, err := pipeline.Analyze(context.Background(), core.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analysis.Articles) != 3 {
		t.Errorf("expected the cap of 3 same-source articles, got %d", len(analysis.Articles))
	}

	perSource := make(map[string]int)
	for _, article := range analysis.Articles {
		perSource[article.SourceID]++
	}
	for id, n := range perSource {
		if n > 3 {
			t.Errorf("source %s holds %d slots, cap is 3", id, n)
		}
	}
}

func TestAnalyzeDeadlineUsesInjectedClock(t *testing.T) {
	records := map[string][]core.RawRecord{
		"wire-a": {
			wireRecord("wire-a", "https://wire-a.example.com/1", "Central bank cuts benchmark rate", bankBody),
		},
	}

	// The context deadline lies in the real future, so fetching proceeds,
	// but the injected clock already sits past it: the stages after
	// ingestion must see an empty batch.
	deadline := time.Now().Add(time.Hour)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	pipeline := New(Options{
		Config:   testConfig(),
		Registry: testRegistry(t),
		Clock:    fakeClock{deadline.Add(time.Minute)},
		Factory:  mockFactory(records, nil),
	})
	analysis, err := pipeline.Analyze(ctx, core.Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.Stats.RawRecords != 1 {
		t.Errorf("raw records = %d, want 1", analysis.Stats.RawRecords)
	}
	if analysis.Stats.Normalized != 0 || len(analysis.Articles) != 0 {
		t.Errorf("expired deadline must short-circuit: normalized=%d ranked=%d",
			analysis.Stats.Normalized, len(analysis.Articles))
	}
}

func TestAnalyzeInvalidRequest(t *testing.T) {
	pipeline := newTestPipeline(t, nil, nil)
	_, err := pipeline.Analyze(context.Background(), core.Request{Limit: 500})
	if err == nil {
		t.Fatal("invalid request must be rejected")
	}
}

func TestAnalyzeGrouping(t *testing.T) {
	records := map[string][]core.RawRecord{
		"wire-a": {
			wireRecord("wire-a", "https://wire-a.example.com/1", "Central bank cuts benchmark rate", bankBody),
			wireRecord("wire-a", "https://wire-a.example.com/2", "Chipmaker opens new fabrication plant", chipBody),
		},
	}

	pipeline := newTestPipeline(t, records, nil)
	analysis, err := pipeline.Analyze(context.Background(), core.Request{GroupBy: core.GroupSource})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analysis.Articles) == 0 {
		t.Fatal("expected ranked articles")
	}
	if len(analysis.Groups) != 1 {
		t.Errorf("expected 1 source group, got %d", len(analysis.Groups))
	}
}

func TestPerSourceLimit(t *testing.T) {
	tests := []struct {
		limit, expected int
	}{
		{0, 50},
		{10, 30},
		{40, 100},
	}
	for _, tt := range tests {
		if got := perSourceLimit(tt.limit); got != tt.expected {
			t.Errorf("perSourceLimit(%d) = %d, want %d", tt.limit, got, tt.expected)
		}
	}
}
