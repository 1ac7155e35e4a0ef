package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/apod-cache/internal/apod"
	"github.com/leonardcser/apod-cache/internal/cache"
)

type fakePictures struct {
	lastDate  string
	lastStart string
	lastEnd   string
	lastQuery string
	lastLimit int
	err       error
}

var orion = apod.Picture{
	Date:        "2024-01-02",
	Title:       "The Orion Nebula",
	Explanation: "A stellar nursery.",
	URL:         "https://apod.nasa.gov/apod/image/2401/orion.jpg",
	HDURL:       "https://apod.nasa.gov/apod/image/2401/orion_big.jpg",
	MediaType:   "image",
	Copyright:   "\nJane Doe\n",
}

func (f *fakePictures) Today(context.Context) (*apod.Picture, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := orion
	return &p, nil
}

func (f *fakePictures) ByDate(_ context.Context, date string) (*apod.Picture, error) {
	f.lastDate = date
	if f.err != nil {
		return nil, f.err
	}
	p := orion
	p.Date = date
	return &p, nil
}

func (f *fakePictures) Range(_ context.Context, start, end string) ([]apod.Picture, error) {
	f.lastStart, f.lastEnd = start, end
	if f.err != nil {
		return nil, f.err
	}
	a, b := orion, orion
	a.Date, b.Date = start, end
	return []apod.Picture{a, b}, nil
}

func (f *fakePictures) Random(ctx context.Context) (*apod.Picture, error) {
	return f.Today(ctx)
}

func (f *fakePictures) Search(_ context.Context, query string, limit int) ([]apod.ArchiveEntry, error) {
	f.lastQuery, f.lastLimit = query, limit
	if f.err != nil {
		return nil, f.err
	}
	return []apod.ArchiveEntry{
		{Date: "2024-01-02", Title: "The Orion Nebula", URL: "https://apod.nasa.gov/apod/ap240102.html"},
	}, nil
}

type fakeAdmin struct {
	cleared string
}

func (f *fakeAdmin) Stats() cache.Report {
	s := cache.Stats{Hits: 3, Misses: 1, Size: 2, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return cache.Report{Stats: s, HitRate: s.HitRate()}
}

func (f *fakeAdmin) Clear(prefix string) int {
	f.cleared = prefix
	return 2
}

func call(t *testing.T, h handler, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return res, text.Text
}

func TestTodayHandler(t *testing.T) {
	res, text := call(t, TodayHandler(&fakePictures{}), nil)
	assert.False(t, res.IsError)
	assert.Contains(t, text, "# The Orion Nebula")
	assert.Contains(t, text, "Date: 2024-01-02")
	assert.Contains(t, text, "HD URL: https://apod.nasa.gov/apod/image/2401/orion_big.jpg")
	assert.Contains(t, text, "Copyright: Jane Doe\n")
	assert.Contains(t, text, "A stellar nursery.")
}

func TestDateHandler(t *testing.T) {
	f := &fakePictures{}
	res, text := call(t, DateHandler(f), map[string]any{"date": " 2023-05-01 "})
	assert.False(t, res.IsError)
	assert.Equal(t, "2023-05-01", f.lastDate)
	assert.Contains(t, text, "Date: 2023-05-01")

	res, _ = call(t, DateHandler(f), map[string]any{})
	assert.True(t, res.IsError)
}

func TestHandlerReportsServiceErrors(t *testing.T) {
	f := &fakePictures{err: apod.ErrRateLimited}
	for name, h := range map[string]handler{
		"today":  TodayHandler(f),
		"random": RandomHandler(f),
	} {
		t.Run(name, func(t *testing.T) {
			res, text := call(t, h, nil)
			assert.True(t, res.IsError)
			assert.Contains(t, text, "rate limit")
		})
	}
}

func TestRangeHandler(t *testing.T) {
	f := &fakePictures{}
	res, text := call(t, RangeHandler(f), map[string]any{"start_date": "2024-01-01", "end_date": "2024-01-03"})
	assert.False(t, res.IsError)
	assert.Equal(t, "2024-01-01", f.lastStart)
	assert.Equal(t, "2024-01-03", f.lastEnd)
	assert.Contains(t, text, "Date: 2024-01-01")
	assert.Contains(t, text, "---")
	assert.Contains(t, text, "Date: 2024-01-03")

	res, _ = call(t, RangeHandler(f), map[string]any{"start_date": "2024-01-01"})
	assert.True(t, res.IsError)
}

func TestSearchHandler(t *testing.T) {
	f := &fakePictures{}
	res, text := call(t, SearchHandler(f), map[string]any{"query": "orion", "limit": 3})
	assert.False(t, res.IsError)
	assert.Equal(t, "orion", f.lastQuery)
	assert.Equal(t, 3, f.lastLimit)
	assert.Equal(t, "1. The Orion Nebula (2024-01-02)\n   https://apod.nasa.gov/apod/ap240102.html", text)

	_, _ = call(t, SearchHandler(f), map[string]any{"query": "moon"})
	assert.Equal(t, apod.DefaultSearchLimit, f.lastLimit)

	res, _ = call(t, SearchHandler(f), map[string]any{"query": "  "})
	assert.True(t, res.IsError)
}

func TestStatsHandler(t *testing.T) {
	res, text := call(t, StatsHandler(&fakeAdmin{}), nil)
	assert.False(t, res.IsError)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.EqualValues(t, 3, got["hits"])
	assert.EqualValues(t, 1, got["misses"])
	assert.EqualValues(t, 2, got["size"])
	assert.Equal(t, "75.00%", got["hitRate"])
	assert.Equal(t, "2024-01-01T00:00:00Z", got["createdAt"])
}

func TestClearHandler(t *testing.T) {
	a := &fakeAdmin{}
	_, text := call(t, ClearHandler(a), map[string]any{"prefix": "apod:date:"})
	assert.Equal(t, "apod:date:", a.cleared)
	assert.Equal(t, `Cleared 2 entries with prefix "apod:date:".`, text)

	_, text = call(t, ClearHandler(a), nil)
	assert.Equal(t, "", a.cleared)
	assert.Equal(t, "Cleared 2 entries.", text)
}
