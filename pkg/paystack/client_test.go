package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bookhaven/storefront-backend/pkg/config"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), config.PaystackConfig{
		PublicKey: "pk_test_abc",
		SecretKey: "sk_test_abc",
		BaseURL:   baseURL,
		Timeout:   2 * time.Second,
	}, testLogger())
	require.NoError(t, err)
	return client
}

func TestVerifyTransactionSuccess(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"reference": "order_abc_1700000000000",
				"status": "success",
				"channel": "card",
				"amount": 300000,
				"paid_at": "2026-01-02T10:00:00Z",
				"customer": {"email": "reader@example.com"}
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	tx, err := client.VerifyTransaction(context.Background(), "order_abc_1700000000000")
	require.NoError(t, err)

	assert.Equal(t, "/transaction/verify/order_abc_1700000000000", gotPath)
	assert.Equal(t, "Bearer sk_test_abc", gotAuth)
	assert.True(t, tx.Success())
	assert.Equal(t, "card", tx.Channel)
	assert.Equal(t, int64(300000), tx.AmountMinor)
	require.NotNil(t, tx.PaidAt)
	assert.Equal(t, "reader@example.com", tx.CustomerEmail)
}

func TestVerifyTransactionFailedCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": true, "message": "ok", "data": {"reference": "ref", "status": "failed"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	tx, err := client.VerifyTransaction(context.Background(), "ref")
	require.NoError(t, err)
	assert.False(t, tx.Success())
}

func TestVerifyTransactionHTTPErrorsMapToDomainCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.VerifyTransaction(context.Background(), "ref")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestVerifyTransactionRequiresReference(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	_, err := client.VerifyTransaction(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestVerifySignature(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	body := []byte(`{"event":"charge.success"}`)

	mac := hmac.New(sha512.New, []byte("sk_test_abc"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, client.VerifySignature(body, signature))
	assert.False(t, client.VerifySignature(body, "deadbeef"))
	assert.False(t, client.VerifySignature(body, ""))
	assert.False(t, client.VerifySignature([]byte("tampered"), signature))
}
