package apod

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Scraper reads pictures from the HTML archive at apod.nasa.gov. It needs no
// API key, which makes it the fallback source.
type Scraper struct {
	c    *colly.Collector
	base *url.URL
	now  func() time.Time
}

// NewScraper returns a scraper for the archive rooted at baseURL
// (e.g. https://apod.nasa.gov/apod/).
func NewScraper(baseURL string) (*Scraper, error) {
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
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		colly.UserAgent(UserAgent),
	)
	c.SetRequestTimeout(RequestTimeout)
	return &Scraper{c: c, base: base, now: time.Now}, nil
}

// Today reads astropix.html, the page for the latest picture.
func (s *Scraper) Today(ctx context.Context) (*Picture, error) {
	return s.page(ctx, "astropix.html", "")
}

func (s *Scraper) ByDate(ctx context.Context, date string) (*Picture, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return s.page(ctx, pageName(day), date)
}

// Range reads each day in [start, end]. Days without a page are skipped.
func (s *Scraper) Range(ctx context.Context, start, end string) ([]Picture, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, ErrInvalidDate
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, ErrInvalidDate
	}
	var out []Picture
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		p, err := s.ByDate(ctx, day.Format(DateLayout))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *Scraper) page(ctx context.Context, name, date string) (*Picture, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	pageURL := s.base.ResolveReference(&url.URL{Path: name})

	var body []byte
	var finalURL *url.URL
	var status int

	// A clone shares the transport but not the callbacks, so concurrent
	// page reads do not see each other's responses.
	c := s.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		finalURL = r.Request.URL
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(pageURL.String()); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		switch status {
		case http.StatusNotFound:
			return nil, &APIError{Endpoint: pageURL.String(), StatusCode: status, Message: "no archive page", Err: ErrNotFound}
		case http.StatusForbidden, http.StatusTooManyRequests:
			return nil, &APIError{Endpoint: pageURL.String(), StatusCode: status, Message: err.Error(), Err: ErrRateLimited}
		}
		return nil, &APIError{Endpoint: pageURL.String(), StatusCode: status, Message: "fetch failed", Err: err}
	}
	if len(body) == 0 {
		return nil, &APIError{Endpoint: pageURL.String(), StatusCode: status, Message: "empty response body"}
	}
	if len(body) > MaxResponseSize {
		body = body[:MaxResponseSize]
	}
	if finalURL == nil {
		finalURL = pageURL
	}

	p, err := parsePage(body, finalURL)
	if err != nil {
		return nil, err
	}
	if date != "" {
		p.Date = date
	}
	if p.Date == "" {
		p.Date = s.now().UTC().Format(DateLayout)
	}
	return p, nil
}

var pageDatePattern = regexp.MustCompile(`\d{4} (January|February|March|April|May|June|July|August|September|October|November|December) \d{1,2}`)

// parsePage extracts a Picture from an archive page. Relative media links are
// resolved against base.
func parsePage(htmlBody []byte, base *url.URL) (*Picture, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}
	resolve := func(ref string) string {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return ""
		}
		u, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return base.ResolveReference(u).String()
	}

	p := &Picture{}
	centers := doc.Find("center")
	head := centers.First()

	if m := pageDatePattern.FindString(head.Text()); m != "" {
		if d, err := time.Parse("2006 January 2", m); err == nil {
			p.Date = d.Format(DateLayout)
		}
	}

	if img := head.Find("img").First(); img.Length() > 0 {
		p.MediaType = "image"
		p.URL = resolve(img.AttrOr("src", ""))
		if href, ok := img.Closest("a").Attr("href"); ok {
			p.HDURL = resolve(href)
		}
	} else if frame := head.Find("iframe").First(); frame.Length() > 0 {
		p.MediaType = "video"
		p.URL = resolve(frame.AttrOr("src", ""))
	} else {
		p.MediaType = "other"
	}

	caption := centers.Eq(1)
	p.Title = singleLine(caption.Find("b").First().Text())
	if p.Title == "" {
		title := singleLine(doc.Find("head > title").First().Text())
		if i := strings.Index(title, " - "); i >= 0 {
			title = strings.TrimSpace(title[i+3:])
		}
		p.Title = title
	}
	if text := singleLine(caption.Text()); strings.Contains(text, "Credit") {
		credit := text[strings.Index(text, "Credit"):]
		if i := strings.Index(credit, ":"); i >= 0 {
			p.Copyright = strings.TrimSpace(credit[i+1:])
		}
	}

	p.Explanation = explanation(doc)
	if p.Title == "" && p.Explanation == "" {
		return nil, errors.New("apod: page has no picture content")
	}
	return p, nil
}

// explanation converts the paragraph led by "Explanation:" to markdown,
// falling back to its plain text.
func explanation(doc *goquery.Document) string {
	var para *goquery.Selection
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.HasPrefix(singleLine(s.Find("b").First().Text()), "Explanation") {
			para = s
			return false
		}
		return true
	})
	if para == nil {
		return ""
	}
	para = para.Clone()
	para.Find("b").First().Remove()
	plain := singleLine(para.Text())

	htmlStr, err := para.Html()
	if err != nil {
		return plain
	}
	markdown, err := htmltomarkdown.ConvertString(htmlStr)
	if err != nil {
		return plain
	}
	return singleLine(markdown)
}
