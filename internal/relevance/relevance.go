// Package relevance scores how well an article matches the request's
// include keywords, with static synonym expansion.
package relevance

import (
	"math"
	"strings"

	"newscollector/internal/core"
)

// Score evaluates one article against the request keywords. Without
// keywords a category/body-length heuristic applies. With keywords, each
// keyword contributes the best score across itself and its synonyms, and
// the article earns a one-time bonus when its category overlaps a keyword.
func Score(article core.Article, keywords []string) float64 {
	if len(keywords) == 0 {
		return heuristicScore(article)
	}

	title := strings.ToLower(article.Title)
	body := strings.ToLower(article.Body)
	category := strings.ToLower(article.Category)

	var sum float64
	categoryBonus := 0.0
	counted := 0
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		counted++

		best := 0.0
		for _, term := range expand(keyword) {
			term = strings.ToLower(term)
			score := 0.0
			if strings.Contains(title, term) {
				score += 0.6
			}
			if count := strings.Count(body, term); count > 0 {
				score += 0.3
				score += math.Min(0.3, 0.05*float64(count))
			}
			if score > best {
				best = score
			}
		}
		sum += best

		if category != "" && (strings.Contains(category, keyword) || strings.Contains(keyword, category)) {
			categoryBonus = 0.1
		}
	}

	if counted == 0 {
		return heuristicScore(article)
	}
	score := sum/float64(counted) + categoryBonus
	return math.Min(1.0, score)
}

// heuristicScore estimates relevance when the request carries no keywords:
// everything is somewhat relevant, with bonuses for structure.
func heuristicScore(article core.Article) float64 {
	score := 0.5
	if article.Category != "" {
		score += 0.2
	}
	if len(article.Tags) > 0 {
		score += 0.1
	}
	if len(article.Body) > 100 {
		score += 0.1
	}
	return math.Min(1.0, score)
}
