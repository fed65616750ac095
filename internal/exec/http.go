package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxResponseBytes caps the body read from an HTTP query.
const MaxResponseBytes = 10 << 20

// ErrHTTPStatus is returned for non-2xx responses.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// Doer performs HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient performs timeout-bounded GET requests for URL descriptors.
type HTTPClient struct {
	doer Doer
}

// NewHTTPClient wraps doer. A nil doer uses http.DefaultClient.
func NewHTTPClient(doer Doer) *HTTPClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &HTTPClient{doer: doer}
}

// Get fetches url and returns the response body.
func (c *HTTPClient) Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	return body, nil
}
