package pricing

import (
	"context"

	"AmazonTracker/internal/model"
)

// Fetcher defines the interface for looking up current item data.
// Implementations return a map keyed by ASIN; ASINs the backend could not
// resolve are simply absent from the result.
type Fetcher interface {
	FetchItems(ctx context.Context, asins []string) (map[string]model.ItemInfo, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Items map[string]model.ItemInfo
	Err   error
	Calls [][]string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchItems(_ context.Context, asins []string) (map[string]model.ItemInfo, error) {
	m.Calls = append(m.Calls, asins)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]model.ItemInfo, len(asins))
	for _, asin := range asins {
		if item, ok := m.Items[asin]; ok {
			out[asin] = item
		}
	}
	return out, nil
}
