package apod

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archivePage = `<html><body><b>
2024 January 03:  <a href="ap240103.html">Moon Dance</a><br>
2024 January 02:  <a href="ap240102.html">The Orion
Nebula</a><br>
1995 June 16:  <a href="ap950616.html">Neutron Star Earth</a><br>
</b>
<a href="archivepix.html">Archive</a>
<a href="ap240102.html">The Orion Nebula</a>
<a href="ap231399.html">Bad date</a>
</body></html>`

func TestArchiveIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/apod/archivepix.html", r.URL.Path)
		_, _ = w.Write([]byte(archivePage))
	}))
	defer srv.Close()

	a, err := NewArchive(srv.URL + "/apod/")
	require.NoError(t, err)
	entries, err := a.Index(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, ArchiveEntry{Date: "2024-01-03", Title: "Moon Dance", URL: srv.URL + "/apod/ap240103.html"}, entries[0])
	assert.Equal(t, "The Orion Nebula", entries[1].Title)
	assert.Equal(t, "1995-06-16", entries[2].Date)
}

func TestArchiveIndexStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a, err := NewArchive(srv.URL)
	require.NoError(t, err)
	_, err = a.Index(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestFilter(t *testing.T) {
	entries := []ArchiveEntry{
		{Date: "2024-01-03", Title: "Moon Dance"},
		{Date: "2024-01-02", Title: "The Orion Nebula"},
		{Date: "2023-12-01", Title: "Horsehead Nebula in Orion"},
		{Date: "2023-11-01", Title: "Crab Nebula"},
	}

	got := Filter(entries, "orion nebula", 0)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-02", got[0].Date)
	assert.Equal(t, "2023-12-01", got[1].Date)

	assert.Len(t, Filter(entries, "NEBULA", 1), 1)
	assert.Empty(t, Filter(entries, "galaxy", 10))
	assert.Len(t, Filter(entries, "", 10), 4)
}

func TestFilterLimitBounds(t *testing.T) {
	var entries []ArchiveEntry
	for i := 0; i < 100; i++ {
		entries = append(entries, ArchiveEntry{Title: fmt.Sprintf("Picture %d", i)})
	}
	assert.Len(t, Filter(entries, "picture", -1), DefaultSearchLimit)
	assert.Len(t, Filter(entries, "picture", MaxSearchLimit+1), DefaultSearchLimit)
	assert.Len(t, Filter(entries, "picture", MaxSearchLimit), MaxSearchLimit)
}
