package connector

import (
	"context"
	"errors"
	"testing"

	"newscollector/internal/core"
)

func TestRecordIDDeterministic(t *testing.T) {
	a := RecordID("source-1", "https://example.com/article")
	b := RecordID("source-1", "https://example.com/article")
	c := RecordID("source-2", "https://example.com/article")

	if a != b {
		t.Errorf("same inputs must produce the same id: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different sources must produce different ids")
	}
}

func TestMatchesKeywords(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		fields   []string
		expected bool
	}{
		{name: "empty keywords match everything", keywords: nil, fields: []string{"anything"}, expected: true},
		{name: "case-insensitive title match", keywords: []string{"Chip"}, fields: []string{"chipmaker expands", ""}, expected: true},
		{name: "match in second field", keywords: []string{"rates"}, fields: []string{"headline", "about interest rates"}, expected: true},
		{name: "no match", keywords: []string{"sports"}, fields: []string{"economy news", "markets"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesKeywords(tt.keywords, tt.fields...); got != tt.expected {
				t.Errorf("matchesKeywords = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMockConnector(t *testing.T) {
	mock := &MockConnector{
		ID: "mock-1",
		Records: []core.RawRecord{
			{SourceID: "mock-1", URL: "https://example.com/1", Payload: map[string]string{"title": "Chip exports rise"}},
			{SourceID: "mock-1", URL: "https://example.com/2", Payload: map[string]string{"title": "Weather update"}},
			{SourceID: "mock-1", URL: "https://example.com/3", Payload: map[string]string{"title": "Chip plant opens"}},
		},
	}

	records, err := mock.Fetch(context.Background(), []string{"chip"}, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("keyword filter: expected 2 records, got %d", len(records))
	}

	records, err = mock.Fetch(context.Background(), nil, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("limit: expected 2 records, got %d", len(records))
	}

	mock.Err = errors.New("boom")
	if _, err := mock.Fetch(context.Background(), nil, 0, nil); err == nil {
		t.Error("expected canned error")
	}
}

func TestMockConnectorHonoursCancellation(t *testing.T) {
	mock := &MockConnector{ID: "mock-1"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mock.Fetch(ctx, nil, 0, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
