// Package connector provides per-provider fetch adapters. Every connector
// obeys one contract: given keywords, a limit and an optional time window
// it returns raw article records. Connectors are independent of each other;
// one connector's failure never fails another.
package connector

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"newscollector/internal/core"
)

// ErrRateLimited signals that a connector exhausted its daily quota. The
// records returned alongside it are still valid partial results.
var ErrRateLimited = errors.New("connector rate limit exhausted")

// TimeWindow bounds a fetch to articles published inside [From, To], both
// inclusive from the caller's point of view.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Connector fetches raw article records from one provider. Implementations
// must tolerate empty keywords, which means "no keyword filter".
type Connector interface {
	// SourceID returns the id of the source this connector serves.
	SourceID() string

	// Fetch returns up to limit raw records matching the keywords and the
	// optional time window. Cancellation of ctx aborts in-flight reads.
	Fetch(ctx context.Context, keywords []string, limit int, window *TimeWindow) ([]core.RawRecord, error)
}

// RecordID derives the stable content identity of a raw record from its
// source id and URL.
func RecordID(sourceID, url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceID+url)).String()
}

// matchesKeywords reports whether any keyword occurs, case-insensitively,
// in the given text fields. Empty keywords match everything.
func matchesKeywords(keywords []string, fields ...string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		for _, field := range fields {
			if containsFold(field, kw) {
				return true
			}
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
