package flutterwave

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "verif-hash"

// WebhookEvent is the subset of a gateway callback the marketplace acts on.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID       json.Number     `json:"id"`
		TxRef    string          `json:"tx_ref"`
		FlwRef   string          `json:"flw_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a raw callback body.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var evt WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &evt, nil
}

// EventID identifies a delivery for dedupe; it falls back to the reference
// when the gateway omits a transaction id.
func (e *WebhookEvent) EventID() string {
	if e == nil {
		return ""
	}
	if id, err := strconv.ParseInt(e.Data.ID.String(), 10, 64); err == nil && id > 0 {
		return fmt.Sprintf("%s:%d:%s", e.Event, id, e.Data.Status)
	}
	if e.Data.TxRef != "" {
		return fmt.Sprintf("%s:%s:%s", e.Event, e.Data.TxRef, e.Data.Status)
	}
	return ""
}

// AmountCents converts the reported major-unit amount to minor units.
func (e *WebhookEvent) AmountCents() int64 {
	if e == nil {
		return 0
	}
	return minorUnits(e.Data.Amount)
}
