// Package credibility scores source trust and content quality: tier-based
// trust raised by cross-source corroboration, evidence signals in the body,
// and a sensationalism penalty.
package credibility

import (
	"math"
	"regexp"
	"strings"

	"newscollector/internal/core"
	"newscollector/internal/dedup"
)

// corroborationThreshold is the title similarity above which two articles
// from different sources corroborate each other. It is owned by this
// package and independent of the dedup clustering threshold.
const corroborationThreshold = 0.5

// tierTrust maps a tier to its base trust. Unknown tiers score 0.5.
var tierTrust = map[core.Tier]float64{
	core.TierWhitelist: 0.95,
	core.Tier1:         0.85,
	core.Tier2:         0.65,
	core.Tier3:         0.40,
	core.TierBlacklist: 0.0,
}

// evidencePatterns is the fixed evidence signal set. The evidence score is
// the fraction of these patterns found in the body.
var evidencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+(\.\d+)?%`),                 // Percentage statistics
	regexp.MustCompile(`\d+(억|조|만)`),                  // Korean large-number statistics
	regexp.MustCompile(`"[^"]{5,}"|“[^”]{5,}”`),        // Direct quotes of 5+ characters
	regexp.MustCompile(`(?i)(spokes(man|woman|person)|said in a statement|according to a statement)|대변인|성명`),
	regexp.MustCompile(`(?i)(report|research result|study (finds|shows)|according to a (study|survey))|보고서|연구 결과|조사 결과`),
	regexp.MustCompile(`https?://[^\s]+`),              // Source links
}

// sensationalWords penalise hyped language in title and body.
var sensationalWords = []string{
	"shocking", "unbelievable", "incredible", "insane", "explosive",
	"mind-blowing", "outrageous",
	"충격", "경악", "발칵", "소름", "미쳤다",
}

var runOnPunctuation = regexp.MustCompile(`[!?]{2,}`)

// SourceLookup resolves a source id to its descriptor for fine-grained
// base credibility.
type SourceLookup func(id string) (core.Source, bool)

// Scorer computes credibility and quality for articles.
type Scorer struct {
	lookup SourceLookup
}

// NewScorer creates a Scorer. The lookup is optional; without it trust
// falls back to the article's tier.
func NewScorer(lookup SourceLookup) *Scorer {
	return &Scorer{lookup: lookup}
}

// Result carries the credibility and quality scores with their components.
type Result struct {
	Credibility    float64 // min(1, trust + cross-source bonus)
	Quality        float64 // clamp(evidence - sensationalism, 0, 1)
	Trust          float64
	CrossBonus     float64
	Evidence       float64
	Sensationalism float64
}

// CorroborationCounts is the batch pre-pass: for each article it counts
// the other articles whose title similarity is at least the corroboration
// threshold and whose source id differs. Titles with fewer than 3 words
// earn no corroborators. The counts snapshot lets per-article scoring run
// independently afterwards.
func CorroborationCounts(articles []core.Article) []int {
	counts := make([]int, len(articles))
	for i := range articles {
		if len(strings.Fields(articles[i].Title)) < 3 {
			continue
		}
		for j := range articles {
			if i == j || articles[i].SourceID == articles[j].SourceID {
				continue
			}
			if len(strings.Fields(articles[j].Title)) < 3 {
				continue
			}
			if dedup.Jaccard(articles[i].Title, articles[j].Title) >= corroborationThreshold {
				counts[i]++
			}
		}
	}
	return counts
}

// Score evaluates one article given its corroborator count from the batch
// pre-pass.
func (s *Scorer) Score(article core.Article, corroborators int) Result {
	result := Result{}
	result.Trust = s.sourceTrust(article)
	result.CrossBonus = crossBonus(corroborators)
	result.Credibility = math.Min(1.0, result.Trust+result.CrossBonus)

	result.Evidence = evidenceScore(article.Body)
	result.Sensationalism = sensationalismPenalty(article.Title, article.Body)
	result.Quality = clamp01(result.Evidence - result.Sensationalism)
	return result
}

// sourceTrust prefers the registry's fine-grained base credibility over
// the coarse tier mapping.
func (s *Scorer) sourceTrust(article core.Article) float64 {
	if s.lookup != nil {
		if source, ok := s.lookup(article.SourceID); ok && source.BaseCredibility > 0 {
			return float64(source.BaseCredibility) / 100.0
		}
	}
	if trust, ok := tierTrust[article.SourceTier]; ok {
		return trust
	}
	return 0.5
}

func crossBonus(corroborators int) float64 {
	switch {
	case corroborators >= 3:
		return 0.15
	case corroborators >= 1:
		return 0.05
	default:
		return 0.0
	}
}

// evidenceScore is the fraction of evidence patterns present in the body
// plus a length bonus of up to 0.2. An empty body scores 0.3.
func evidenceScore(body string) float64 {
	if strings.TrimSpace(body) == "" {
		return 0.3
	}
	found := 0
	for _, pattern := range evidencePatterns {
		if pattern.MatchString(body) {
			found++
		}
	}
	score := float64(found) / float64(len(evidencePatterns))
	score += math.Min(0.2, float64(len(body))/5000.0)
	return score
}

// sensationalismPenalty combines hyped-word counts with run-on punctuation.
func sensationalismPenalty(title, body string) float64 {
	text := strings.ToLower(title + " " + body)
	wordCount := 0
	for _, word := range sensationalWords {
		wordCount += strings.Count(text, word)
	}
	punctCount := len(runOnPunctuation.FindAllString(title+" "+body, -1))

	penalty := math.Min(0.5, 0.15*float64(wordCount)) + math.Min(0.2, 0.1*float64(punctCount))
	return math.Min(penalty, 1.0)
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
