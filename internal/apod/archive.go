package apod

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ArchiveEntry is one line of the archive index page.
type ArchiveEntry struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// Archive reads archivepix.html, the list of every published picture.
type Archive struct {
	client *http.Client
	base   *url.URL
}

func NewArchive(baseURL string) (*Archive, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("archive url must start with http:// or https://")
	}
	return &Archive{
		client: &http.Client{Timeout: RequestTimeout},
		base:   base,
	}, nil
}

// Index fetches and parses the full archive listing, newest first.
func (a *Archive) Index(ctx context.Context) ([]ArchiveEntry, error) {
	endpoint := a.base.ResolveReference(&url.URL{Path: "archivepix.html"}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(endpoint, resp.StatusCode, nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "parse archive", Err: err}
	}
	return parseArchive(doc, a.base), nil
}

var archiveLinkPattern = regexp.MustCompile(`^ap(\d{2})(\d{2})(\d{2})\.html$`)

func parseArchive(doc *goquery.Document, base *url.URL) []ArchiveEntry {
	seen := make(map[string]bool)
	var out []ArchiveEntry
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		m := archiveLinkPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		// Two-digit years: the archive starts in 1995.
		century := "20"
		if m[1] >= "95" {
			century = "19"
		}
		date := century + m[1] + "-" + m[2] + "-" + m[3]
		if _, err := time.Parse(DateLayout, date); err != nil || seen[date] {
			return
		}
		seen[date] = true
		ref, _ := url.Parse(href)
		out = append(out, ArchiveEntry{
			Date:  date,
			Title: singleLine(s.Text()),
			URL:   base.ResolveReference(ref).String(),
		})
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// Filter returns entries whose title contains every word of query, ignoring
// case. limit falls back to DefaultSearchLimit when out of range.
func Filter(entries []ArchiveEntry, query string, limit int) []ArchiveEntry {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = DefaultSearchLimit
	}
	words := strings.Fields(strings.ToLower(query))
	out := make([]ArchiveEntry, 0, limit)
	for _, e := range entries {
		title := strings.ToLower(e.Title)
		match := true
		for _, w := range words {
			if !strings.Contains(title, w) {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
