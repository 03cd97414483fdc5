package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/bookhaven/storefront-backend/pkg/config"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

// ErrIndeterminate marks verification attempts that produced no verdict:
// the endpoint was unreachable, errored, or answered with something other
// than JSON. Callers must not treat it as "payment failed"; the gateway
// already reported success by the time verification runs.
var ErrIndeterminate = errors.New("payment verification indeterminate")

// Result is the verifier's explicit verdict.
type Result struct {
	Verified bool            `json:"verified"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Client posts payment references to the optional verification endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient builds a verification client. With an empty URL the client is
// disabled and the flow trusts the gateway callback directly.
func NewClient(cfg config.VerifyConfig, logg *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(cfg.URL),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}
}

// Enabled reports whether a verification endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Verify posts {reference, orderId} and returns the endpoint's verdict.
// Transport failures, non-2xx statuses, and non-JSON responses return an
// error wrapping ErrIndeterminate.
func (c *Client) Verify(ctx context.Context, reference, orderID string) (Result, error) {
	if !c.Enabled() {
		return Result{}, errors.New("verification endpoint not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"reference": reference,
		"orderId":   orderID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode request: %v", ErrIndeterminate, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("%w: build request: %v", ErrIndeterminate, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.warn(ctx, "verification request failed", err)
		return Result{}, fmt.Errorf("%w: %v", ErrIndeterminate, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.warn(ctx, "verification endpoint returned non-2xx", fmt.Errorf("status %d", resp.StatusCode))
		return Result{}, fmt.Errorf("%w: status %d", ErrIndeterminate, resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		c.warn(ctx, "verification endpoint returned non-JSON", fmt.Errorf("content type %q", resp.Header.Get("Content-Type")))
		return Result{}, fmt.Errorf("%w: content type %q", ErrIndeterminate, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %v", ErrIndeterminate, err)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrIndeterminate, err)
	}
	return result, nil
}

func (c *Client) warn(ctx context.Context, msg string, err error) {
	if c.logger == nil {
		return
	}
	ctx = c.logger.WithField(ctx, "error", err.Error())
	c.logger.Warn(ctx, msg)
}
