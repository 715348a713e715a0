package connector

import (
	"context"

	"newscollector/internal/core"
)

// MockConnector returns canned records. It serves tests and offline runs.
type MockConnector struct {
	ID      string
	Records []core.RawRecord
	Err     error
}

// SourceID returns the mock source id.
func (m *MockConnector) SourceID() string {
	return m.ID
}

// Fetch returns the canned records, honouring the keyword filter and limit
// the way a real connector would.
func (m *MockConnector) Fetch(ctx context.Context, keywords []string, limit int, window *TimeWindow) ([]core.RawRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []core.RawRecord
	for _, rec := range m.Records {
		if !matchesKeywords(keywords, rec.Payload["title"], rec.Payload["description"]) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
