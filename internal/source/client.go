package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/pheld/f1load/internal/model"
)

// ErrUnavailable marks transport-level failures: DNS, connect, TLS, timeout.
// Callers treat it as job-fatal.
var ErrUnavailable = errors.New("source unavailable")

// StatusError is returned when the remote answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("source rejected %s: status %d", e.Endpoint, e.Code)
}

// Client fetches records from a paginated read-only REST API. One Fetch call
// performs a full page cycle for an endpoint and returns the concatenated
// records in arrival order.
type Client struct {
	baseURL  string
	pageSize int
	timeout  time.Duration
	hc       *http.Client
	log      zerolog.Logger
}

const defaultPageSize = 1000

// NewClient builds a Client. pageSize <= 0 selects the default; timeout <= 0
// means requests are bounded only by the caller's context.
func NewClient(baseURL string, pageSize int, timeout time.Duration, log zerolog.Logger) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		baseURL:  baseURL,
		pageSize: pageSize,
		timeout:  timeout,
		hc:       &http.Client{},
		log:      log,
	}
}

// Fetch retrieves every record the endpoint reports for the given filter
// params. A remote that matches nothing yields an empty slice and nil error.
// Cancellation is honored between pages; an in-flight request is aborted by
// its own context.
func (c *Client) Fetch(ctx context.Context, endpoint string, params map[string]string) ([]model.Record, error) {
	var all []model.Record
	offset := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.fetchPage(ctx, endpoint, params, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		c.log.Debug().
			Str("endpoint", endpoint).
			Int("offset", offset).
			Int("page_records", len(page)).
			Msg("page fetched")

		// Only an empty page is terminal. A remote may clamp limit below the
		// requested page size, so a short page can still have successors.
		if len(page) == 0 {
			break
		}
		offset += len(page)
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, params map[string]string, offset int) ([]model.Record, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "f1load")

	resp, err := c.hc.Do(req)
	if err != nil {
		// Caller cancellation and per-request deadline surface as context
		// errors, not as source unavailability.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	var page []model.Record
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return page, nil
}
