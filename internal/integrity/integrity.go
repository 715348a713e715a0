// Package integrity evaluates content integrity per article: whether the
// body delivers what the title promises, whether the text stays on topic,
// and whether spam signals are present.
package integrity

import (
	"hash/fnv"
	"math"
	"strings"

	"newscollector/internal/core"
)

// Flag names attached to articles by the checker.
const (
	FlagUnrelatedTopics     = "unrelated_topics"
	FlagInconsistentTopics  = "inconsistent_topics"
	FlagRepetitiveContent   = "repetitive_content"
	FlagAdKeywords          = "ad_keywords"
	FlagIllegalKeywords     = "illegal_keywords"
	FlagLowLexicalDensity   = "low_lexical_density"
	FlagSensationalTitle    = "sensational_title"
)

// Result carries the composite integrity score, its three sub-scores and
// the qualitative flags that contributed.
type Result struct {
	Integrity     float64  // 0.4*consistency + 0.3*(1-contamination) + 0.3*(1-spam), clamped to [0,1]
	Consistency   float64  // Title-body consistency
	Contamination float64  // Topic-drift penalty, higher is worse
	Spam          float64  // Spam signal accumulation, higher is worse
	Flags         []string
}

// Check evaluates one article. It is pure: the result depends only on the
// article's title and body.
func Check(article core.Article) Result {
	result := Result{}
	result.Consistency = titleBodyConsistency(article.Title, article.Body)

	var contaminationFlags, spamFlags []string
	result.Contamination, contaminationFlags = contamination(article.Body)
	result.Spam, spamFlags = spam(article.Title, article.Body)
	result.Flags = append(contaminationFlags, spamFlags...)

	composite := 0.4*result.Consistency + 0.3*(1-result.Contamination) + 0.3*(1-result.Spam)
	result.Integrity = clamp01(composite)
	return result
}

// titleBodyConsistency measures how well the body covers the title's
// entities, discounted when the title words concentrate in one paragraph.
func titleBodyConsistency(title, body string) float64 {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(body) == "" {
		return 0.5
	}

	entities := titleEntities(title)
	if len(entities) == 0 {
		return 1.0
	}

	lowerBody := strings.ToLower(body)
	covered := 0
	for _, entity := range entities {
		if strings.Contains(lowerBody, entity) {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(entities))

	// Distribution over the first up to 5 paragraphs.
	paragraphs := paragraphsOf(body)
	if len(paragraphs) > 5 {
		paragraphs = paragraphs[:5]
	}
	total := 0
	maxCount := 0
	for _, paragraph := range paragraphs {
		lower := strings.ToLower(paragraph)
		count := 0
		for _, entity := range entities {
			count += strings.Count(lower, entity)
		}
		total += count
		if count > maxCount {
			maxCount = count
		}
	}

	if total == 0 || maxCount == 0 {
		return coverage
	}
	maxConc := float64(maxCount) / float64(total)
	return coverage * (1 - 0.2*maxConc)
}

// contamination detects topic drift by comparing adjacent paragraphs over
// content words. Higher values mean more drift.
func contamination(body string) (float64, []string) {
	paragraphs := paragraphsOf(body)
	if len(paragraphs) > 10 {
		paragraphs = paragraphs[:10]
	}
	if len(paragraphs) < 2 {
		return 0.0, nil
	}

	var sum float64
	lowCount := 0
	pairs := len(paragraphs) - 1
	for i := 0; i < pairs; i++ {
		similarity := contentWordJaccard(paragraphs[i], paragraphs[i+1])
		sum += similarity
		if similarity < 0.2 {
			lowCount++
		}
	}
	avg := sum / float64(pairs)

	switch {
	case avg < 0.3:
		return 0.7, []string{FlagUnrelatedTopics}
	case lowCount*2 > pairs:
		return 0.5, []string{FlagInconsistentTopics}
	default:
		return 0.0, nil
	}
}

// spam accumulates independent spam signals, capped at 1.0.
func spam(title, body string) (float64, []string) {
	score := 0.0
	var flags []string
	lowerBody := strings.ToLower(body)

	if repetitiveSentences(body) {
		score += 0.3
		flags = append(flags, FlagRepetitiveContent)
	}

	adHits := 0
	for _, keyword := range adKeywords {
		if strings.Contains(lowerBody, keyword) {
			adHits++
		}
	}
	if adHits > 0 {
		// Each distinct ad phrase accumulates; heavy promotional copy must
		// be able to cross the policy-drop threshold on its own.
		score += 0.3 * float64(adHits)
		flags = append(flags, FlagAdKeywords)
	}

	for _, keyword := range illegalKeywords {
		if strings.Contains(lowerBody, keyword) {
			score += 0.5
			flags = append(flags, FlagIllegalKeywords)
			break
		}
	}

	if density := lexicalDensity(body); density > 0 && density < 0.4 {
		score += 0.2
		flags = append(flags, FlagLowLexicalDensity)
	}

	for _, pattern := range sensationalTitlePatterns {
		if pattern.MatchString(title) {
			score += 0.1
			flags = append(flags, FlagSensationalTitle)
			break
		}
	}

	return math.Min(score, 1.0), flags
}

// repetitiveSentences reports whether the body repeats itself: among
// sentences split on '.', a unique-hash ratio below 0.7 with at least 3
// sentences.
func repetitiveSentences(body string) bool {
	var sentences []string
	for _, sentence := range strings.Split(body, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
	if len(sentences) < 3 {
		return false
	}

	unique := make(map[uint64]bool, len(sentences))
	for _, sentence := range sentences {
		h := fnv.New64a()
		_, _ = h.Write([]byte(strings.ToLower(sentence)))
		unique[h.Sum64()] = true
	}
	ratio := float64(len(unique)) / float64(len(sentences))
	return ratio < 0.7
}

// lexicalDensity is the fraction of tokens that are content words: not
// function words and longer than one character. Zero tokens yields 0.
func lexicalDensity(body string) float64 {
	tokens := strings.Fields(strings.ToLower(body))
	if len(tokens) == 0 {
		return 0.0
	}
	content := 0
	for _, token := range tokens {
		if len([]rune(token)) > 1 && !stopwords[token] {
			content++
		}
	}
	return float64(content) / float64(len(tokens))
}

// titleEntities extracts the multi-character word tokens of a title,
// lowercased.
func titleEntities(title string) []string {
	var entities []string
	for _, token := range strings.Fields(strings.ToLower(title)) {
		token = strings.Trim(token, `.,:;!?"'()[]`)
		if len([]rune(token)) > 1 {
			entities = append(entities, token)
		}
	}
	return entities
}

// contentWordJaccard computes Jaccard similarity over the content words of
// two paragraphs.
func contentWordJaccard(a, b string) float64 {
	setA := contentWords(a)
	setB := contentWords(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	intersection := 0
	for word := range setA {
		if setB[word] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func contentWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, `.,:;!?"'()[]`)
		if len([]rune(token)) > 1 && !stopwords[token] {
			words[token] = true
		}
	}
	return words
}

// paragraphsOf splits a body into its non-empty paragraphs.
func paragraphsOf(body string) []string {
	var paragraphs []string
	for _, paragraph := range strings.Split(body, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph != "" {
			paragraphs = append(paragraphs, paragraph)
		}
	}
	return paragraphs
}

func clamp01(v float64) float64 {
	return math.Max(0.0, math.Min(1.0, v))
}
