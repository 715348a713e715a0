package dedup

import (
	"testing"

	"newscollector/internal/core"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "query string dropped",
			raw:      "https://example.com/article?utm_source=twitter",
			expected: "https://example.com/article",
		},
		{
			name:     "fragment dropped",
			raw:      "https://example.com/article#comments",
			expected: "https://example.com/article",
		},
		{
			name:     "trailing slash stripped",
			raw:      "https://example.com/article/",
			expected: "https://example.com/article",
		},
		{
			name:     "lowercased",
			raw:      "HTTPS://Example.COM/Article",
			expected: "https://example.com/article",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalURL(tt.raw)
			if got != tt.expected {
				t.Errorf("CanonicalURL(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
			// Canonicalizing twice must not change the result.
			if again := CanonicalURL(got); again != got {
				t.Errorf("CanonicalURL not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{name: "identical titles", a: "stocks rally on rate cut", b: "stocks rally on rate cut", expected: 1.0},
		{name: "disjoint titles", a: "stocks rally today", b: "weather cold tomorrow", expected: 0.0},
		{name: "empty left side", a: "", b: "stocks rally", expected: 0.0},
		{name: "empty right side", a: "stocks rally", b: "", expected: 0.0},
		{name: "half overlap", a: "alpha beta", b: "beta gamma", expected: 1.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if got != tt.expected {
				t.Errorf("Jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
			if sym := Jaccard(tt.b, tt.a); sym != got {
				t.Errorf("Jaccard not symmetric: %v vs %v", got, sym)
			}
		})
	}
}

func article(id, title, url, body string) core.Article {
	return core.Article{ID: id, SourceID: "s-" + id, Title: title, URL: url, Body: body}
}

func TestDeduplicateURLPass(t *testing.T) {
	engine := NewEngine(0)
	in := []core.Article{
		article("1", "first story here today", "https://example.com/a?ref=home", "short"),
		article("2", "completely different story", "https://example.com/a", "longer body text"),
	}

	result := engine.Deduplicate(in)
	if result.URLDuplicates != 1 {
		t.Errorf("expected 1 URL duplicate, got %d", result.URLDuplicates)
	}
	if len(result.Articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(result.Articles))
	}
	// First record per canonical URL wins.
	if result.Articles[0].ID != "1" {
		t.Errorf("expected first record to win, got id %s", result.Articles[0].ID)
	}
}

func TestDeduplicateTitlePass(t *testing.T) {
	engine := NewEngine(0)
	in := []core.Article{
		article("1", "Rate Cut Announced", "https://a.example.com/x", "a"),
		article("2", "  rate cut announced  ", "https://b.example.com/y", "b"),
	}

	result := engine.Deduplicate(in)
	if result.TitleDuplicates != 1 {
		t.Errorf("expected 1 title duplicate, got %d", result.TitleDuplicates)
	}
	if len(result.Articles) != 1 {
		t.Errorf("expected 1 article, got %d", len(result.Articles))
	}
}

func TestDeduplicateClustering(t *testing.T) {
	engine := NewEngine(0.55)
	in := []core.Article{
		article("1", "central bank cuts interest rate today", "https://a.example.com/1", "short body"),
		article("2", "central bank cuts interest rate sharply today", "https://b.example.com/2", "a much longer body with detail"),
		article("3", "local team wins championship final", "https://c.example.com/3", "sports body"),
	}

	result := engine.Deduplicate(in)
	if len(result.Articles) != 2 {
		t.Fatalf("expected 2 articles after clustering, got %d", len(result.Articles))
	}
	if result.Clusters != 1 {
		t.Errorf("expected 1 multi-member cluster, got %d", result.Clusters)
	}

	// Representative is the member with the longest body.
	rep := result.Articles[0]
	if rep.ID != "2" {
		t.Errorf("expected longest-body member as representative, got id %s", rep.ID)
	}
	if rep.ClusterID == "" {
		t.Error("expected cluster representative to carry a cluster id")
	}
	if result.Articles[1].ClusterID != "" {
		t.Error("singleton must not carry a cluster id")
	}
}

func TestDeduplicateMonotone(t *testing.T) {
	engine := NewEngine(0)
	full := []core.Article{
		article("1", "central bank cuts interest rate today", "https://a.example.com/1", "x"),
		article("2", "central bank cuts interest rate sharply today", "https://b.example.com/2", "y"),
		article("3", "local team wins championship final", "https://c.example.com/3", "z"),
		article("4", "new phone released this week", "https://d.example.com/4", "w"),
	}

	fullLen := len(engine.Deduplicate(full).Articles)
	for drop := range full {
		reduced := make([]core.Article, 0, len(full)-1)
		for i, a := range full {
			if i != drop {
				reduced = append(reduced, a)
			}
		}
		if got := len(engine.Deduplicate(reduced).Articles); got > fullLen {
			t.Errorf("removing input %d increased output from %d to %d", drop, fullLen, got)
		}
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	result := NewEngine(0).Deduplicate(nil)
	if len(result.Articles) != 0 {
		t.Errorf("expected empty result, got %d articles", len(result.Articles))
	}
}
