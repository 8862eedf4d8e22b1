package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iwanyu/marketplace-backend/internal/users"
	pkgAuth "github.com/iwanyu/marketplace-backend/pkg/auth"
	"github.com/iwanyu/marketplace-backend/pkg/auth/session"
	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/db/dbtest"
	"github.com/iwanyu/marketplace-backend/pkg/db/models"
	"github.com/iwanyu/marketplace-backend/pkg/enums"
	pkgerrors "github.com/iwanyu/marketplace-backend/pkg/errors"
	"github.com/iwanyu/marketplace-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "iwanyu",
	ExpirationMinutes: 30,
}

type harness struct {
	conn     *gorm.DB
	svc      Service
	sessions *session.Manager
	users    *users.Repository
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t)
	sessions, err := session.NewManager(conn, testJWT)
	require.NoError(t, err)
	repo := users.NewRepository(conn)
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		Hasher: security.NewHasher(config.PasswordConfig{
			ArgonMemoryKB:    8192,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		}),
		JWTConfig: testJWT,
	})
	require.NoError(t, err)
	return harness{conn: conn, svc: svc, sessions: sessions, users: repo}
}

func register(t *testing.T, h harness, email string) *AuthResponse {
	t.Helper()
	resp, err := h.svc.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  "correct-horse",
		FirstName: "Eric",
		LastName:  "Mugisha",
	}, RequestMeta{UserAgent: "test", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesSessionBackedToken(t *testing.T) {
	h := newHarness(t)
	resp := register(t, h, "  Eric@Example.com ")

	require.Equal(t, "eric@example.com", resp.User.Email)
	require.Equal(t, enums.UserRoleCustomer, resp.User.Role)
	require.Equal(t, "Bearer", resp.TokenType)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)

	ok, err := h.sessions.HasSession(context.Background(), claims.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	h := newHarness(t)
	register(t, h, "dup@example.com")

	_, err := h.svc.Register(context.Background(), RegisterRequest{
		Email:     "DUP@example.com",
		Password:  "another-pass",
		FirstName: "X",
		LastName:  "Y",
	}, RequestMeta{})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	register(t, h, "login@example.com")

	_, err := h.svc.Login(context.Background(), LoginRequest{Email: "login@example.com", Password: "wrong-pass"}, RequestMeta{})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = h.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "correct-horse"}, RequestMeta{})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestLoginInactiveUserUnauthorized(t *testing.T) {
	h := newHarness(t)
	resp := register(t, h, "inactive@example.com")

	require.NoError(t, h.conn.Model(&models.User{}).Where("id = ?", resp.User.ID).Update("is_active", false).Error)

	_, err := h.svc.Login(context.Background(), LoginRequest{Email: "inactive@example.com", Password: "correct-horse"}, RequestMeta{})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestLoginLogoutRevokesSession(t *testing.T) {
	h := newHarness(t)
	register(t, h, "cycle@example.com")
	ctx := context.Background()

	resp, err := h.svc.Login(ctx, LoginRequest{Email: "CYCLE@example.com", Password: "correct-horse"}, RequestMeta{})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), resp.ExpiresAt, time.Minute)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, claims.ID))
	ok, err := h.sessions.HasSession(ctx, claims.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	resp := register(t, h, "me@example.com")

	me, err := h.svc.Me(context.Background(), resp.User.ID)
	require.NoError(t, err)
	require.Equal(t, "me@example.com", me.Email)

	_, err = h.svc.Me(context.Background(), uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
