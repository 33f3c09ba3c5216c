package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	appLog "github.com/larshallqvist-cell/mattebo-calendar/internal/log"
	"github.com/larshallqvist-cell/mattebo-calendar/internal/model"
)

// Client fetches raw calendar text for one grade from the calendar
// gateway. The gateway applies its own short-lived cache and CORS
// handling; this client only consumes it as a data source.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewClient creates a gateway client. The gateway normally answers from
// its fast-path cache, but a request timeout is set defensively anyway.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Fetch performs GET <endpoint>?grade=<grade> and returns the raw
// text/calendar body.
//
// A network error, a non-200 status and a 200 with an empty body are all
// fetch failures, with distinct messages so operators can tell transport
// failure from an empty response.
func (c *Client) Fetch(ctx context.Context, grade int) ([]byte, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway endpoint: %w", err)
	}
	q := u.Query()
	q.Set("grade", strconv.Itoa(grade))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	req.Header.Set("Accept", "text/calendar")

	appLog.Info("calendar fetch start", "grade", grade, "url", redactURL(c.endpoint))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar gateway status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("calendar gateway: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("calendar gateway returned empty body")
	}

	appLog.Info("calendar fetch success", "grade", grade, "bytes", len(body))
	return body, nil
}

// Loader composes fetch, decode and expansion into the load function the
// event store invokes on a cache miss. Fetch failures propagate as
// errors; a calendar that fails to decode is logged and treated as zero
// events so the caller can distinguish "empty" from "failed".
func Loader(client *Client, opts ExpandOptions) func(ctx context.Context, grade int) ([]model.CalendarEvent, error) {
	return func(ctx context.Context, grade int) ([]model.CalendarEvent, error) {
		body, err := client.Fetch(ctx, grade)
		if err != nil {
			return nil, err
		}

		entries, err := Decode(body)
		if err != nil {
			appLog.Error("calendar decode failed, treating as empty", err, "grade", grade)
			return []model.CalendarEvent{}, nil
		}

		return Expand(entries, time.Now(), opts), nil
	}
}

// redactURL hides path and query of the gateway URL for logging.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "...(redacted)"
	}

	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redactedSuffix
}
