package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"
)

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(provider, eventID string) string
}

// Manager tracks processed gateway deliveries using Redis SETNX with a TTL.
// Keys follow the `iwanyu:webhook:<provider>:<event_id>` pattern.
type Manager struct {
	store store
	ttl   time.Duration
}

// NewManager builds a delivery guard that remembers events for the given TTL.
func NewManager(s store, ttl time.Duration) (*Manager, error) {
	if s == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: s, ttl: ttl}, nil
}

// CheckAndMarkProcessed returns true if the delivery was seen before and
// otherwise marks it as seen.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	key, err := m.key(provider, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Release forgets a delivery so a redelivery is processed again. Used when
// handling failed after the mark was taken.
func (m *Manager) Release(ctx context.Context, provider, eventID string) error {
	key, err := m.key(provider, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(provider, eventID string) (string, error) {
	if strings.TrimSpace(provider) == "" {
		return "", errors.New("provider is required")
	}
	if strings.TrimSpace(eventID) == "" {
		return "", errors.New("event id is required")
	}
	return m.store.WebhookEventKey(provider, eventID), nil
}
