package apod

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	RequestTimeout  = 15 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
	UserAgent       = "apod-cache/0.1"
)

// Source fetches pictures from upstream. Dates are YYYY-MM-DD.
type Source interface {
	Today(ctx context.Context) (*Picture, error)
	ByDate(ctx context.Context, date string) (*Picture, error)
	Range(ctx context.Context, start, end string) ([]Picture, error)
}

// Client talks to the NASA APOD JSON API.
type Client struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		client:   &http.Client{Timeout: RequestTimeout},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (c *Client) Today(ctx context.Context) (*Picture, error) {
	var p Picture
	if err := c.get(ctx, url.Values{}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ByDate(ctx context.Context, date string) (*Picture, error) {
	var p Picture
	if err := c.get(ctx, url.Values{"date": {date}}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Range(ctx context.Context, start, end string) ([]Picture, error) {
	var out []Picture
	if err := c.get(ctx, url.Values{"start_date": {start}, "end_date": {end}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, values url.Values, out any) error {
	values.Set("api_key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Endpoint: c.endpoint, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return &APIError{Endpoint: c.endpoint, StatusCode: resp.StatusCode, Message: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(c.endpoint, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{Endpoint: c.endpoint, StatusCode: resp.StatusCode, Message: "decode body", Err: err}
	}
	return nil
}

// statusError wraps the package error matching status, keeping the upstream
// message when it sent one.
func statusError(endpoint string, status int, body []byte) error {
	var payload struct {
		Msg   string `json:"msg"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Msg
	if msg == "" {
		msg = payload.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	var sentinel error
	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests:
		sentinel = ErrRateLimited
	case http.StatusBadRequest:
		sentinel = ErrInvalidDate
	case http.StatusNotFound:
		sentinel = ErrNotFound
	}
	return &APIError{Endpoint: endpoint, StatusCode: status, Message: msg, Err: sentinel}
}
