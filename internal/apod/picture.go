// Package apod fetches Astronomy Picture of the Day entries and serves them
// through the response cache.
package apod

import (
	"fmt"
	"time"
)

// Picture is one APOD entry in the shape the NASA API returns it.
type Picture struct {
	Date           string `json:"date"`
	Title          string `json:"title"`
	Explanation    string `json:"explanation"`
	URL            string `json:"url"`
	HDURL          string `json:"hdurl,omitempty"`
	MediaType      string `json:"media_type"`
	Copyright      string `json:"copyright,omitempty"`
	ServiceVersion string `json:"service_version,omitempty"`
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
}

// DateLayout is the YYYY-MM-DD form used in requests and cache keys.
const DateLayout = "2006-01-02"

// FirstDate is the day the first APOD was published.
var FirstDate = time.Date(1995, 6, 16, 0, 0, 0, 0, time.UTC)

// pageName returns the archive page for day, e.g. ap240101.html.
func pageName(day time.Time) string {
	return fmt.Sprintf("ap%02d%02d%02d.html", day.Year()%100, int(day.Month()), day.Day())
}
