package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iwanyu/marketplace-backend/pkg/config"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.flutterwave.com/v3"
	defaultTimeout              = 15 * time.Second
	responseBodyReadLimit int64 = 1024

	// StatusSuccessful is the transaction status reported for a settled charge.
	StatusSuccessful = "successful"
	// StatusFailed is the transaction status reported for a declined charge.
	StatusFailed = "failed"
	// EventChargeCompleted is the webhook event sent when a charge settles.
	EventChargeCompleted = "charge.completed"
)

var errSecretKeyRequired = errors.New("flutterwave secret key is required")

// Client wraps the Flutterwave v3 REST endpoints used for hosted checkout.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds a client authenticated with the merchant secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig builds a client from the Flutterwave config section.
func NewFromConfig(cfg config.FlutterwaveConfig) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClient(cfg.SecretKey,
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

// Customer is the payer contact sent with a payment request.
type Customer struct {
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phonenumber,omitempty"`
}

// PaymentRequest describes a hosted checkout session.
type PaymentRequest struct {
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	RedirectURL string
	Customer    Customer
	Meta        map[string]string
	Title       string
}

// PaymentLink is the normalized initialize response.
type PaymentLink struct {
	Link string
	Raw  map[string]any
}

// Transaction is the normalized verify response.
type Transaction struct {
	ID       int64
	TxRef    string
	FlwRef   string
	Status   string
	Amount   decimal.Decimal
	Currency string
	Raw      map[string]any
}

// Successful reports whether the gateway settled the charge.
func (t *Transaction) Successful() bool {
	return t != nil && strings.EqualFold(t.Status, StatusSuccessful)
}

// AmountCents converts the major-unit amount back to minor units. Fractions of
// a cent are dropped so a short payment never rounds up to the amount due.
func (t *Transaction) AmountCents() int64 {
	if t == nil {
		return 0
	}
	return minorUnits(t.Amount)
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Floor().IntPart()
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializePayment creates a hosted payment link.
func (c *Client) InitializePayment(ctx context.Context, req PaymentRequest) (*PaymentLink, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave client not configured")
	}
	if strings.TrimSpace(req.TxRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx_ref is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	body := map[string]any{
		"tx_ref":       req.TxRef,
		"amount":       req.Amount.StringFixed(2),
		"currency":     req.Currency,
		"redirect_url": req.RedirectURL,
		"customer":     req.Customer,
	}
	if len(req.Meta) > 0 {
		body["meta"] = req.Meta
	}
	if req.Title != "" {
		body["customizations"] = map[string]string{"title": req.Title}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal payment request")
	}

	env, raw, err := c.do(ctx, http.MethodPost, c.buildURL("payments"), payload, "initialize payment")
	if err != nil {
		return nil, err
	}

	var data struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment link")
	}
	if data.Link == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment link missing from gateway response")
	}
	return &PaymentLink{Link: data.Link, Raw: raw}, nil
}

// VerifyTransaction fetches the authoritative state of a transaction id.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave client not configured")
	}
	trimmed := strings.TrimSpace(transactionID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	endpoint := c.buildURL(fmt.Sprintf("transactions/%s/verify", url.PathEscape(trimmed)))
	env, raw, err := c.do(ctx, http.MethodGet, endpoint, nil, "verify transaction")
	if err != nil {
		return nil, err
	}

	var data struct {
		ID       int64           `json:"id"`
		TxRef    string          `json:"tx_ref"`
		FlwRef   string          `json:"flw_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode transaction")
	}
	return &Transaction{
		ID:       data.ID,
		TxRef:    data.TxRef,
		FlwRef:   data.FlwRef,
		Status:   data.Status,
		Amount:   data.Amount,
		Currency: data.Currency,
		Raw:      raw,
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, op string) (*envelope, map[string]any, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+op+" request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+op+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), op+" request failed")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read "+op+" response")
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	if !strings.EqualFold(env.Status, "success") {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("gateway status %q: %s", env.Status, env.Message), op+" rejected")
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	return &env, raw, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
