// Package popularity scores engagement against the batch maximum, with an
// age-based freshness fallback when a provider reports no engagement.
package popularity

import (
	"math"
	"time"

	"newscollector/internal/core"
)

// DefaultHalfLife is the freshness decay half-life.
const DefaultHalfLife = 24 * time.Hour

// velocityScale is the engagement-per-hour rate that maps to a trending
// velocity of 1.0.
const velocityScale = 10000.0

// BatchMax is the engagement maxima across one batch, computed in a
// pre-pass so per-article scoring stays independent.
type BatchMax struct {
	Views    int64
	Shares   int64
	Comments int64
}

// MaxEngagement computes the batch engagement maxima.
func MaxEngagement(articles []core.Article) BatchMax {
	max := BatchMax{}
	for _, article := range articles {
		if v := article.Engagement.Views; v != nil && *v > max.Views {
			max.Views = *v
		}
		if v := article.Engagement.Shares; v != nil && *v > max.Shares {
			max.Shares = *v
		}
		if v := article.Engagement.Comments; v != nil && *v > max.Comments {
			max.Comments = *v
		}
	}
	return max
}

// Scorer computes popularity and trending velocity.
type Scorer struct {
	clock    core.Clock
	halfLife time.Duration
}

// NewScorer creates a Scorer. A non-positive halfLife selects the default.
func NewScorer(clock core.Clock, halfLife time.Duration) *Scorer {
	if clock == nil {
		clock = core.RealClock{}
	}
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return &Scorer{clock: clock, halfLife: halfLife}
}

// Result carries the popularity score and trending velocity.
type Result struct {
	Popularity       float64
	TrendingVelocity float64
}

// Score evaluates one article against the batch maxima. Articles without
// any engagement metric fall back to freshness decay.
func (s *Scorer) Score(article core.Article, max BatchMax) Result {
	return Result{
		Popularity:       s.popularity(article, max),
		TrendingVelocity: s.velocity(article),
	}
}

func (s *Scorer) popularity(article core.Article, max BatchMax) float64 {
	// The fallback keys on the three weighted counts; likes alone carry no
	// weight here and must not suppress the freshness path.
	e := article.Engagement
	if e.Views == nil && e.Shares == nil && e.Comments == nil {
		return s.freshness(article.PublishedAt)
	}
	return 0.40*normalize(article.Engagement.Views, max.Views) +
		0.35*normalize(article.Engagement.Shares, max.Shares) +
		0.25*normalize(article.Engagement.Comments, max.Comments)
}

// freshness is the engagement fallback: exponential decay from the publish
// instant. A missing timestamp scores 0.3.
func (s *Scorer) freshness(publishedAt time.Time) float64 {
	if publishedAt.IsZero() {
		return 0.3
	}
	hours := s.clock.Now().Sub(publishedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Pow(0.5, hours/s.halfLife.Hours())
}

// velocity is weighted engagement per hour since publication, scaled so
// that 10000/h maps to 1.0.
func (s *Scorer) velocity(article core.Article) float64 {
	if article.PublishedAt.IsZero() {
		return 0.0
	}
	engagement := value(article.Engagement.Views) +
		3*value(article.Engagement.Shares) +
		2*value(article.Engagement.Comments)
	if engagement == 0 {
		return 0.0
	}
	hours := math.Max(1.0, s.clock.Now().Sub(article.PublishedAt).Hours())
	return math.Min(1.0, float64(engagement)/hours/velocityScale)
}

func normalize(v *int64, max int64) float64 {
	if v == nil || max <= 0 {
		return 0.0
	}
	return float64(*v) / float64(max)
}

func value(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
