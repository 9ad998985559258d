package irexplorer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	responseJSON string
	err          error
}

func (p fakeProvider) ModelName() string    { return "fake-model" }
func (p fakeProvider) ProviderName() string { return "fake" }
func (p fakeProvider) SupportsVision() bool { return false }

func (p fakeProvider) InvokeStructured(ctx context.Context, prompt string, schema map[string]interface{}, out interface{}) error {
	if p.err != nil {
		return p.err
	}
	return json.Unmarshal([]byte(p.responseJSON), out)
}

func (p fakeProvider) InvokeVision(ctx context.Context, textPrompt string, imageBytes []byte, mimeType string) (string, error) {
	return "", nil
}

func TestExplore_ResolvesLinksAndDates(t *testing.T) {
	provider := fakeProvider{responseJSON: `{
		"links": [
			{"title": "FY2024 Q4", "url": "/docs/fy2024q4.pdf", "category": "earnings", "published_date": "2024-06-30", "confidence": 0.9},
			{"title": "Unknown date item", "url": "/news/item.html", "category": "news", "published_date": "", "confidence": 0.5}
		]
	}`}
	explorer := NewExplorer(provider, 15000, 10, nil)

	docs, err := explorer.Explore(context.Background(), discoverFetcher{html: "<p>placeholder page content that is long enough</p>"}, "https://example.com/ir/")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "https://example.com/docs/fy2024q4.pdf", docs[0].URL)
	require.NotNil(t, docs[0].PublishedDate)
	assert.Equal(t, 2024, docs[0].PublishedDate.Year())
	assert.Nil(t, docs[1].PublishedDate)
}

func TestExplore_TruncatesToMaxLinks(t *testing.T) {
	provider := fakeProvider{responseJSON: `{
		"links": [
			{"title": "a", "url": "/a.pdf", "category": "earnings", "published_date": "", "confidence": 0.9},
			{"title": "b", "url": "/b.pdf", "category": "earnings", "published_date": "", "confidence": 0.9},
			{"title": "c", "url": "/c.pdf", "category": "earnings", "published_date": "", "confidence": 0.9}
		]
	}`}
	explorer := NewExplorer(provider, 15000, 2, nil)

	docs, err := explorer.Explore(context.Background(), discoverFetcher{html: "<p>content</p>"}, "https://example.com/ir/")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestExplore_UnknownCategoryDefaultsToDisclosures(t *testing.T) {
	provider := fakeProvider{responseJSON: `{
		"links": [{"title": "a", "url": "/a.pdf", "category": "mystery", "published_date": "", "confidence": 0.9}]
	}`}
	explorer := NewExplorer(provider, 15000, 10, nil)

	docs, err := explorer.Explore(context.Background(), discoverFetcher{html: "<p>content</p>"}, "https://example.com/ir/")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "disclosures", string(docs[0].Category))
}
