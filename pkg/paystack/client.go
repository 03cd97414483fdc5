package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
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

var (
	errPublicKeyRequired = errors.New("paystack public key is required")
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errLoggerRequired    = errors.New("paystack logger is required")
)

// Client exposes the Paystack REST primitives with centralized auth,
// logging, and error mapping.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	publicKey     string
	secretKey     string
	webhookSecret string
	logger        *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	publicKey := strings.TrimSpace(cfg.PublicKey)
	if publicKey == "" {
		return nil, errPublicKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		// Paystack signs webhooks with the account secret key.
		webhookSecret = strings.TrimSpace(cfg.SecretKey)
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		publicKey:     publicKey,
		secretKey:     strings.TrimSpace(cfg.SecretKey),
		webhookSecret: webhookSecret,
		logger:        logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// PublicKey returns the key handed to the inline widget.
func (c *Client) PublicKey() string {
	if c == nil {
		return ""
	}
	return c.publicKey
}

// Transaction is the subset of Paystack's verify payload the storefront uses.
type Transaction struct {
	Reference     string
	Status        string
	Channel       string
	AmountMinor   int64
	PaidAt        *time.Time
	CustomerEmail string
}

// Success reports whether the gateway settled the charge.
func (t *Transaction) Success() bool {
	return t != nil && t.Status == "success"
}

// VerifyTransaction re-queries the gateway for the authoritative state of a
// payment reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	if c.secretKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, errSecretKeyRequired.Error())
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": reference})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack verify failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paystack response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log(ctx, "error", "verify_transaction", map[string]any{"status": resp.StatusCode})
		return nil, pkgerrors.New(domainCodeForStatus(resp.StatusCode), fmt.Sprintf("paystack verify returned %d", resp.StatusCode))
	}

	var payload struct {
		Status bool   `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Channel   string `json:"channel"`
			Amount    int64  `json:"amount"`
			PaidAt    string `json:"paid_at"`
			Customer  struct {
				Email string `json:"email"`
			} `json:"customer"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
	}
	if !payload.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack rejected verify: %s", payload.Msg))
	}

	tx := &Transaction{
		Reference:     payload.Data.Reference,
		Status:        payload.Data.Status,
		Channel:       payload.Data.Channel,
		AmountMinor:   payload.Data.Amount,
		CustomerEmail: payload.Data.Customer.Email,
	}
	if payload.Data.PaidAt != "" {
		if paidAt, parseErr := time.Parse(time.RFC3339, payload.Data.PaidAt); parseErr == nil {
			tx.PaidAt = &paidAt
		}
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": tx.Reference,
		"status":    tx.Status,
	})
	return tx, nil
}

// VerifySignature checks the x-paystack-signature header against the raw
// webhook body (HMAC-SHA512 keyed with the webhook secret).
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "email", "phone", "authorization"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
