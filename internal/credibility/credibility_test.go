package credibility

import (
	"math"
	"testing"

	"newscollector/internal/core"
)

func TestCorroborationCounts(t *testing.T) {
	articles := []core.Article{
		{SourceID: "s1", Title: "central bank cuts interest rate"},
		{SourceID: "s2", Title: "central bank cuts interest rate today"},
		{SourceID: "s1", Title: "central bank cuts interest rate again"}, // same source as first
		{SourceID: "s3", Title: "local team wins final"},
		{SourceID: "s4", Title: "hi"}, // too short for corroboration
	}

	counts := CorroborationCounts(articles)

	// First and second corroborate each other (different sources, similar
	// titles). Third shares a source with the first, so it only counts the
	// second. The short title earns nothing.
	if counts[0] < 1 {
		t.Errorf("article 0 should have at least 1 corroborator, got %d", counts[0])
	}
	if counts[3] != 0 {
		t.Errorf("unrelated article should have 0 corroborators, got %d", counts[3])
	}
	if counts[4] != 0 {
		t.Errorf("short title should have 0 corroborators, got %d", counts[4])
	}
}

func TestScoreTierTrust(t *testing.T) {
	scorer := NewScorer(nil)

	tests := []struct {
		tier     core.Tier
		expected float64
	}{
		{core.TierWhitelist, 0.95},
		{core.Tier1, 0.85},
		{core.Tier2, 0.65},
		{core.Tier3, 0.40},
		{core.TierBlacklist, 0.0},
		{core.Tier("unknown"), 0.5},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			result := scorer.Score(core.Article{SourceTier: tt.tier}, 0)
			if result.Trust != tt.expected {
				t.Errorf("tier %s trust = %v, want %v", tt.tier, result.Trust, tt.expected)
			}
		})
	}
}

func TestScoreLookupOverridesTier(t *testing.T) {
	scorer := NewScorer(func(id string) (core.Source, bool) {
		if id == "s1" {
			return core.Source{ID: "s1", BaseCredibility: 72}, true
		}
		return core.Source{}, false
	})

	result := scorer.Score(core.Article{SourceID: "s1", SourceTier: core.Tier3}, 0)
	if math.Abs(result.Trust-0.72) > 1e-9 {
		t.Errorf("expected base credibility 0.72 to win over tier, got %v", result.Trust)
	}

	// Unknown id falls back to the tier.
	result = scorer.Score(core.Article{SourceID: "s2", SourceTier: core.Tier3}, 0)
	if result.Trust != 0.40 {
		t.Errorf("expected tier fallback 0.40, got %v", result.Trust)
	}
}

func TestCrossBonusSteps(t *testing.T) {
	scorer := NewScorer(nil)
	article := core.Article{SourceTier: core.Tier2}

	tests := []struct {
		corroborators int
		bonus         float64
	}{
		{0, 0.0},
		{1, 0.05},
		{2, 0.05},
		{3, 0.15},
		{10, 0.15},
	}

	for _, tt := range tests {
		result := scorer.Score(article, tt.corroborators)
		if result.CrossBonus != tt.bonus {
			t.Errorf("%d corroborators: bonus = %v, want %v", tt.corroborators, result.CrossBonus, tt.bonus)
		}
	}
}

func TestCredibilityCapped(t *testing.T) {
	scorer := NewScorer(nil)
	result := scorer.Score(core.Article{SourceTier: core.TierWhitelist}, 5)
	if result.Credibility != 1.0 {
		t.Errorf("0.95 + 0.15 must cap at 1.0, got %v", result.Credibility)
	}
}

func TestEvidenceScore(t *testing.T) {
	scorer := NewScorer(nil)

	empty := scorer.Score(core.Article{SourceTier: core.Tier2, Body: ""}, 0)
	if empty.Evidence != 0.3 {
		t.Errorf("empty body evidence = %v, want 0.3", empty.Evidence)
	}

	rich := scorer.Score(core.Article{
		SourceTier: core.Tier2,
		Body: `Inflation fell 3.2% according to a study released today. ` +
			`"We expected this outcome for months now," a spokesperson said in a statement. ` +
			`Details at https://stats.example.org/report`,
	}, 0)
	if rich.Evidence <= empty.Evidence {
		t.Errorf("evidence-rich body (%v) should outscore empty body (%v)", rich.Evidence, empty.Evidence)
	}
	if rich.Quality <= 0 {
		t.Errorf("quality should be positive for clean evidence-rich body, got %v", rich.Quality)
	}
}

func TestSensationalismPenalty(t *testing.T) {
	scorer := NewScorer(nil)

	calm := scorer.Score(core.Article{SourceTier: core.Tier2, Title: "Rates held steady", Body: "The bank held rates."}, 0)
	hyped := scorer.Score(core.Article{
		SourceTier: core.Tier2,
		Title:      "SHOCKING!!! Unbelievable rate decision?!?!",
		Body:       "This insane, explosive move is mind-blowing!!!",
	}, 0)

	if hyped.Sensationalism <= calm.Sensationalism {
		t.Errorf("hyped text penalty (%v) should exceed calm text (%v)", hyped.Sensationalism, calm.Sensationalism)
	}
	if hyped.Quality >= calm.Quality {
		t.Errorf("hyped quality (%v) should be below calm quality (%v)", hyped.Quality, calm.Quality)
	}
}
