package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iwanyu/marketplace-backend/api/middleware"
	internalpayments "github.com/iwanyu/marketplace-backend/internal/payments"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/flutterwave"
)

type stubPaymentsService struct {
	checkout  *internalpayments.CheckoutDTO
	verify    *internalpayments.VerifyDTO
	webhook   *internalpayments.WebhookResult
	err       error
	lastInit  internalpayments.InitializeInput
	lastRetry *internalpayments.RetryInput
	lastTx    string
	lastBody  []byte
	lastSig   string
}

func (s *stubPaymentsService) Initialize(_ context.Context, _ uuid.UUID, input internalpayments.InitializeInput) (*internalpayments.CheckoutDTO, error) {
	s.lastInit = input
	return s.checkout, s.err
}

func (s *stubPaymentsService) Verify(_ context.Context, _ uuid.UUID, transactionID string) (*internalpayments.VerifyDTO, error) {
	s.lastTx = transactionID
	return s.verify, s.err
}

func (s *stubPaymentsService) HandleWebhook(_ context.Context, body []byte, signature string) (*internalpayments.WebhookResult, error) {
	s.lastBody, s.lastSig = body, signature
	return s.webhook, s.err
}

func (s *stubPaymentsService) Retry(_ context.Context, _, _ uuid.UUID, input internalpayments.RetryInput) (*internalpayments.CheckoutDTO, error) {
	s.lastRetry = &input
	return s.checkout, s.err
}

func (s *stubPaymentsService) Status(context.Context, uuid.UUID, uuid.UUID) (*internalpayments.StatusDTO, error) {
	return &internalpayments.StatusDTO{}, s.err
}

func authed(req *http.Request) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func withParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestInitialize(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentsService{checkout: &internalpayments.CheckoutDTO{PaymentLink: "https://checkout.flutterwave.com/v3/hosted/pay/abc", Reference: "iwanyu_x_1"}}

	body := `{"order_id":"` + orderID.String() + `"}`
	resp := httptest.NewRecorder()
	Initialize(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodPost, "/api/payments/initialize", strings.NewReader(body))))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, orderID, svc.lastInit.OrderID)
	var envelope struct {
		Data internalpayments.CheckoutDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "iwanyu_x_1", envelope.Data.Reference)
}

func TestInitializeRejectsBadRedirect(t *testing.T) {
	body := `{"order_id":"` + uuid.NewString() + `","redirect_url":"not a url"}`
	resp := httptest.NewRecorder()
	Initialize(&stubPaymentsService{}, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodPost, "/api/payments/initialize", strings.NewReader(body))))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestVerifyReportsUnverifiedAsSuccess(t *testing.T) {
	svc := &stubPaymentsService{verify: &internalpayments.VerifyDTO{Verified: false, Status: enums.PaymentStatusFailed, Message: "payment was not successful"}}
	req := authed(httptest.NewRequest(http.MethodGet, "/api/payments/verify/123456", nil))
	resp := httptest.NewRecorder()
	Verify(svc, nil).ServeHTTP(resp, withParam(req, "transactionId", "123456"))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "123456", svc.lastTx)
	assert.Contains(t, resp.Body.String(), `"verified":false`)
}

func TestRetryAcceptsEmptyBody(t *testing.T) {
	orderID := uuid.New()
	svc := &stubPaymentsService{checkout: &internalpayments.CheckoutDTO{}}
	req := authed(httptest.NewRequest(http.MethodPost, "/api/payments/retry/"+orderID.String(), nil))
	resp := httptest.NewRecorder()
	Retry(svc, nil).ServeHTTP(resp, withParam(req, "orderId", orderID.String()))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NotNil(t, svc.lastRetry)
	assert.Nil(t, svc.lastRetry.RedirectURL)
}

func TestStatusNotFound(t *testing.T) {
	svc := &stubPaymentsService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	orderID := uuid.NewString()
	req := authed(httptest.NewRequest(http.MethodGet, "/api/payments/status/"+orderID, nil))
	resp := httptest.NewRecorder()
	Status(svc, nil).ServeHTTP(resp, withParam(req, "orderId", orderID))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestFlutterwaveWebhook(t *testing.T) {
	body := `{"event":"charge.completed","data":{"id":1,"tx_ref":"iwanyu_x_1","status":"successful"}}`

	t.Run("forwards raw body and signature", func(t *testing.T) {
		svc := &stubPaymentsService{webhook: &internalpayments.WebhookResult{Processed: true}}
		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/flutterwave", strings.NewReader(body))
		req.Header.Set(flutterwave.SignatureHeader, "abc123")
		resp := httptest.NewRecorder()
		FlutterwaveWebhook(svc, nil).ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, body, string(svc.lastBody))
		assert.Equal(t, "abc123", svc.lastSig)
	})

	t.Run("missing signature", func(t *testing.T) {
		svc := &stubPaymentsService{}
		resp := httptest.NewRecorder()
		FlutterwaveWebhook(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/payments/webhook/flutterwave", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Nil(t, svc.lastBody)
	})

	t.Run("rejected signature", func(t *testing.T) {
		svc := &stubPaymentsService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")}
		req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/flutterwave", strings.NewReader(body))
		req.Header.Set(flutterwave.SignatureHeader, "forged")
		resp := httptest.NewRecorder()
		FlutterwaveWebhook(svc, nil).ServeHTTP(resp, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
