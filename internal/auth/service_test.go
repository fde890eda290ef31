package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/denvolkov/playcart-backend/internal/users"
	pkgauth "github.com/denvolkov/playcart-backend/pkg/auth"
	"github.com/denvolkov/playcart-backend/pkg/config"
	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
	"github.com/denvolkov/playcart-backend/pkg/logger"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "playcart-test",
	ExpirationMinutes: 60,
	SessionTTLMinutes: 120,
}

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  balance NUMERIC NOT NULL DEFAULT 0,
  xp INTEGER NOT NULL DEFAULT 0,
  level INTEGER NOT NULL DEFAULT 1,
  wheel_spins_available INTEGER NOT NULL DEFAULT 0,
  claimed_rewards TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

type sessionManagerStub struct {
	mu      sync.Mutex
	opened  map[string]uuid.UUID
	revoked []string
}

func newSessionManagerStub() *sessionManagerStub {
	return &sessionManagerStub{opened: map[string]uuid.UUID{}}
}

func (s *sessionManagerStub) Open(_ context.Context, accessID string, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened[accessID] = userID
	return nil
}

func (s *sessionManagerStub) Revoke(_ context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = append(s.revoked, accessID)
	return nil
}

type authFixture struct {
	db       *gorm.DB
	svc      Service
	users    users.Repository
	sessions *sessionManagerStub
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := setupAuthTestDB(t)
	usersRepo := users.NewRepository(db)
	sessions := newSessionManagerStub()
	logg := logger.New(logger.Options{ServiceName: "auth-test"})

	svc, err := NewService(usersRepo, sessions, testJWTConfig, testPasswordConfig, logg)
	require.NoError(t, err)

	return &authFixture{db: db, svc: svc, users: usersRepo, sessions: sessions}
}

func TestRegisterCreatesAccountWithStarterSpin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Register(ctx, "newcomer", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "newcomer", result.User.Username)
	assert.Equal(t, enums.RoleUser, result.User.Role)
	assert.Equal(t, 1, result.User.Level)
	assert.Equal(t, 1, result.User.WheelSpinsAvailable)
	assert.NotEqual(t, "hunter22", result.User.PasswordHash)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, enums.RoleUser, claims.Role)

	f.sessions.mu.Lock()
	defer f.sessions.mu.Unlock()
	assert.Equal(t, result.User.ID, f.sessions.opened[claims.ID])
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "taken", "hunter22")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "taken", "another1")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestRegisterValidatesInput(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "ab", "hunter22")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = f.svc.Register(ctx, "valid", "short")
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestLoginVerifiesPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, "buyer", "hunter22")
	require.NoError(t, err)

	result, err := f.svc.Login(ctx, "buyer", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.NotNil(t, result.User.LastLoginAt)

	_, err = f.svc.Login(ctx, "buyer", "wrongpass")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())

	_, err = f.svc.Login(ctx, "ghost", "hunter22")
	appErr = pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, appErr.Code())
}

func TestLoginDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Register(ctx, "banned", "hunter22")
	require.NoError(t, err)
	require.NoError(t, f.users.Update(ctx, result.User.ID, map[string]any{"is_active": false}))

	_, err = f.svc.Login(ctx, "banned", "hunter22")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.Register(ctx, "leaver", "hunter22")
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, result.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims.ID))

	f.sessions.mu.Lock()
	defer f.sessions.mu.Unlock()
	require.Len(t, f.sessions.revoked, 1)
	assert.Equal(t, claims.ID, f.sessions.revoked[0])
}
