// Package registry maps outbox event types to their broker topic and typed
// payload so the publisher can validate rows before sending them.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	"github.com/iwanyu/marketplace-backend/pkg/outbox"
	"github.com/iwanyu/marketplace-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload type.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a validated outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks rows that will never publish, however often they
// are retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable outbox event"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanentf(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// catalogue lists every event the services emit.
var catalogue = map[enums.OutboxEventType]struct {
	aggregate enums.OutboxAggregateType
	payload   func() any
}{
	enums.EventOrderCreated:         {enums.AggregateOrder, payloadOf[payloads.OrderCreatedEvent]()},
	enums.EventOrderCancelled:       {enums.AggregateOrder, payloadOf[payloads.OrderCancelledEvent]()},
	enums.EventOrderExpired:         {enums.AggregateOrder, payloadOf[payloads.OrderCancelledEvent]()},
	enums.EventOrderStatusChanged:   {enums.AggregateOrder, payloadOf[payloads.OrderStatusChangedEvent]()},
	enums.EventPaymentInitialized:   {enums.AggregatePayment, payloadOf[payloads.PaymentEvent]()},
	enums.EventPaymentCompleted:     {enums.AggregatePayment, payloadOf[payloads.PaymentEvent]()},
	enums.EventPaymentFailed:        {enums.AggregatePayment, payloadOf[payloads.PaymentEvent]()},
	enums.EventPaymentRefundDue:     {enums.AggregatePayment, payloadOf[payloads.PaymentEvent]()},
	enums.EventVendorApplied:        {enums.AggregateVendor, payloadOf[payloads.VendorEvent]()},
	enums.EventVendorStatusChanged:  {enums.AggregateVendor, payloadOf[payloads.VendorEvent]()},
	enums.EventProductStatusChanged: {enums.AggregateProduct, payloadOf[payloads.ProductStatusChangedEvent]()},
}

// NewEventRegistry routes every event to topic, the sink's single domain
// stream.
func NewEventRegistry(topic string) (*EventRegistry, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("registry: domain topic is required")
	}
	entries := make(map[enums.OutboxEventType]EventDescriptor, len(catalogue))
	for eventType, def := range catalogue {
		entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  def.aggregate,
			Topic:          topic,
			PayloadFactory: def.payload,
		}
	}
	return &EventRegistry{entries: entries}, nil
}

// Resolve checks the row against its descriptor and decodes the typed payload.
// Every failure is a NonRetryableError.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanentf("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanentf("%s belongs to %s, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanentf("%s row has no aggregate id", event.EventType)
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanentf("%s envelope has no data", event.EventType)
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, permanentf("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
