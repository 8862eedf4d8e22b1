package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
)

var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteStale(ctx context.Context, expiredBefore time.Time) (int64, error)
}

// Manager persists access sessions so tokens can be revoked and expired
// server side.
type Manager struct {
	store sessionStore
	ttl   time.Duration
	now   func() time.Time
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Meta is request metadata recorded on the session row.
type Meta struct {
	UserAgent string
	IPAddress string
}

// NewManager constructs a session manager backed by the sessions table.
func NewManager(conn *gorm.DB, cfg config.JWTConfig) (*Manager, error) {
	if conn == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	return newManager(NewGormStore(conn), cfg.TokenTTL()), nil
}

func newManager(store sessionStore, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// Start opens a session for the user; its id becomes the token jti.
func (m *Manager) Start(ctx context.Context, userID uuid.UUID, meta Meta) (*models.Session, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	row := &models.Session{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: m.now().UTC().Add(m.ttl),
		UserAgent: optional(meta.UserAgent),
		IPAddress: optional(meta.IPAddress),
	}
	if err := m.store.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return row, nil
}

// HasSession reports whether the access id maps to an unrevoked, unexpired row.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	id, err := uuid.Parse(strings.TrimSpace(accessID))
	if err != nil {
		return false, nil
	}
	row, err := m.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	return row.Active(m.now().UTC()), nil
}

// Revoke marks the session revoked. Revoking an unknown session is a no-op.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	id, err := uuid.Parse(strings.TrimSpace(accessID))
	if err != nil {
		return fmt.Errorf("access id is invalid: %w", err)
	}
	return m.store.Revoke(ctx, id, m.now().UTC())
}

// Purge deletes sessions that expired or were revoked before now-retention.
func (m *Manager) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return m.store.DeleteStale(ctx, m.now().UTC().Add(-retention))
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
