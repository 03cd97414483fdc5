package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bookhaven/storefront-backend/pkg/config"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

// Client talks to a hosted PostgREST-style document API. Rows go over the
// wire as JSON; filters ride in the query string ("id=eq.<value>").
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	serviceKey string
	logger     *logger.Logger
}

// NewClient validates the hosted store credentials and builds a client.
func NewClient(cfg config.DocstoreConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "docstore URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "docstore API key is required")
	}
	serviceKey := strings.TrimSpace(cfg.ServiceKey)
	if serviceKey == "" {
		serviceKey = strings.TrimSpace(cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		serviceKey: serviceKey,
		logger:     logg,
	}, nil
}

// Insert posts a row and decodes the representation the API returns.
func (c *Client) Insert(ctx context.Context, table string, record any, out any) error {
	return c.do(ctx, http.MethodPost, c.tableURL(table, nil), record, out)
}

// UpdateByID patches the row whose id column equals id.
func (c *Client) UpdateByID(ctx context.Context, table, id string, patch any, out any) error {
	filter := url.Values{"id": []string{"eq." + id}}
	return c.do(ctx, http.MethodPatch, c.tableURL(table, filter), patch, out)
}

// GetByID fetches the row whose id column equals id.
func (c *Client) GetByID(ctx context.Context, table, id string, out any) error {
	filter := url.Values{"id": []string{"eq." + id}, "limit": []string{"1"}}
	return c.do(ctx, http.MethodGet, c.tableURL(table, filter), nil, out)
}

func (c *Client) tableURL(table string, filter url.Values) string {
	u := c.baseURL + "/rest/v1/" + url.PathEscape(table)
	if len(filter) > 0 {
		u += "?" + filter.Encode()
	}
	return u
}

// do issues the request and decodes the first row of the returned array
// into out. A 2xx with an empty array maps to CodeNotFound when the caller
// expected a row back.
func (c *Client) do(ctx context.Context, method, reqURL string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode docstore payload")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build docstore request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Prefer", "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "docstore request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read docstore response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logFailure(ctx, method, reqURL, resp.StatusCode, raw)
		return pkgerrors.New(codeForStatus(resp.StatusCode), fmt.Sprintf("docstore %s returned %d", method, resp.StatusCode))
	}

	if out == nil {
		return nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode docstore response")
	}
	if len(rows) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "docstore row not found")
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode docstore row")
	}
	return nil
}

func (c *Client) logFailure(ctx context.Context, method, reqURL string, status int, body []byte) {
	if c.logger == nil {
		return
	}
	const maxBody = 512
	snippet := string(body)
	if len(snippet) > maxBody {
		snippet = snippet[:maxBody]
	}
	ctx = c.logger.WithFields(ctx, map[string]any{
		"method": method,
		"url":    reqURL,
		"status": status,
		"body":   snippet,
	})
	c.logger.Warn(ctx, "docstore request rejected")
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeDependency
	}
}
