package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	verificationsvc "github.com/bookhaven/storefront-backend/internal/verification"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/paystack"
)

type stubVerificationService struct {
	result *verificationsvc.Result
	err    error

	gotReference string
	gotOrderID   uuid.UUID
}

func (s *stubVerificationService) Confirm(ctx context.Context, reference string, orderID uuid.UUID) (*verificationsvc.Result, error) {
	s.gotReference = reference
	s.gotOrderID = orderID
	return s.result, s.err
}

func TestPaymentVerifyConfirmsReference(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	svc := &stubVerificationService{result: &verificationsvc.Result{
		Verified:    true,
		Transaction: &paystack.Transaction{Reference: "order_abc_1", Status: "success", Channel: "card"},
	}}

	payload := `{"reference":"order_abc_1","orderId":"` + orderID.String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	PaymentVerify(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.gotReference != "order_abc_1" || svc.gotOrderID != orderID {
		t.Fatalf("expected reference and order id forwarded, got %q %s", svc.gotReference, svc.gotOrderID)
	}

	var envelope struct {
		Data verificationsvc.Result `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Verified {
		t.Fatal("expected verified verdict")
	}
}

func TestPaymentVerifyRejectsBadOrderID(t *testing.T) {
	t.Parallel()

	payload := `{"reference":"order_abc_1","orderId":"not-a-uuid"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	PaymentVerify(&stubVerificationService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPaymentVerifyRequiresPayloadFields(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(`{"reference":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	PaymentVerify(&stubVerificationService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPaymentVerifySurfacesGatewayOutage(t *testing.T) {
	t.Parallel()

	svc := &stubVerificationService{err: pkgerrors.New(pkgerrors.CodeDependency, "paystack verify failed")}
	payload := `{"reference":"order_abc_1","orderId":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/verify", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	PaymentVerify(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
