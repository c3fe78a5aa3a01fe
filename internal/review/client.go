// Package review talks to the homework-review API: one GET per poll cycle,
// structural validation of the answer, and mapping of review statuses to the
// fixed human-readable verdicts.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	logx "hwbot/pkg/logx"
)

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds one API call (default 30s).
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func NewClient(cfg Config, log logx.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Fetch requests review entries updated since the given cursor (epoch
// seconds). The decoded body is returned as-is; shape validation is the
// caller's job (CheckResponse).
func (c *Client) Fetch(ctx context.Context, from int64) (any, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)

	c.log.Debug("fetching review statuses", logx.Int64("from_date", from))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	dec := json.NewDecoder(resp.Body)
	// Keep integer cursors exact.
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, &ShapeError{Reason: fmt.Sprintf("body is not valid JSON: %v", err)}
	}

	c.log.Debug("review api answered")
	return body, nil
}
