package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"rentory/internal/core/apperror"
	"rentory/internal/core/id"
	"rentory/internal/domain/ledger/ledgertest"
	"rentory/pkg/logger"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[id.ID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[id.ID]*User)}
}

func copyUser(u *User) *User {
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}

func (r *fakeUserRepo) Create(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		return copyUser(u), nil
	}
	return nil, apperror.NewNotFound("user", userID.String())
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *fakeUserRepo) Update(ctx context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return apperror.NewNotFound("user", user.ID.String())
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *fakeUserRepo) Exists(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) List(ctx context.Context, filter UserFilter) ([]User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		out = append(out, *copyUser(u))
	}
	return out, len(out), nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[id.ID]*RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[id.ID]*RefreshToken)}
}

func (r *fakeTokenRepo) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.ID] = &cp
	return nil
}

func (r *fakeTokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("refresh token", tokenHash)
}

func (r *fakeTokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[tokenID]
	if !ok {
		return apperror.NewNotFound("refresh token", tokenID.String())
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (r *fakeTokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (r *fakeTokenRepo) activeCount(userID id.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}

type fixture struct {
	service *Service
	users   *fakeUserRepo
	tokens  *fakeTokenRepo
	jwt     *JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	cfg := DefaultServiceConfig()
	cfg.MaxLoginAttempts = 3

	return &fixture{
		service: NewService(users, tokens, ledgertest.TxManager{}, jwtService, cfg, log),
		users:   users,
		tokens:  tokens,
		jwt:     jwtService,
	}
}

func (f *fixture) register(t *testing.T, email, password string, roles ...string) *User {
	t.Helper()
	user, err := f.service.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: password,
		Roles:    roles,
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("password is stored hashed", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "alice@example.com", "correct horse")

		assert.NotEqual(t, "correct horse", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
	})

	t.Run("roles are kept", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "bob@example.com", "long enough", "stock_manager")

		stored, err := f.service.GetUserByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"stock_manager"}, stored.Roles)
		assert.True(t, stored.HasRole("stock_manager"))
		assert.False(t, stored.HasRole("admin"))
	})

	t.Run("short password rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "short"})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})

	t.Run("duplicate email refused", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice@example.com", "correct horse")

		_, err := f.service.Register(ctx, RegisterRequest{Email: "alice@example.com", Password: "correct horse"})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeConflict, appErr.Code)
	})

	t.Run("email is required", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Register(ctx, RegisterRequest{Password: "correct horse"})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return a usable token pair", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice@example.com", "correct horse", "stock_manager")

		pair, user, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, "Bearer", pair.TokenType)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotNil(t, user.LastLoginAt)

		uc, err := f.jwt.ValidateToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), uc.UserID)
		assert.Equal(t, "alice@example.com", uc.Email)
		assert.Contains(t, uc.Roles, "stock_manager")
	})

	t.Run("wrong password rejected without leaking existence", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice@example.com", "correct horse")

		_, _, errWrong := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "battery staple"})
		_, _, errUnknown := f.service.Login(ctx, Credentials{Email: "nobody@example.com", Password: "battery staple"})

		for _, err := range []error{errWrong, errUnknown} {
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
		}
	})

	t.Run("account locks after repeated failures", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice@example.com", "correct horse")

		for i := 0; i < 3; i++ {
			_, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "wrong password"})
			require.Error(t, err)
		}

		_, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeForbidden, appErr.Code)
	})

	t.Run("successful login resets the failure counter", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice@example.com", "correct horse")

		_, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "wrong password"})
		require.Error(t, err)
		_, _, err = f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		require.NoError(t, err)

		stored, err := f.users.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Zero(t, stored.FailedLoginAttempts)
	})

	t.Run("disabled account refused", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "alice@example.com", "correct horse")
		user.IsActive = false
		require.NoError(t, f.users.Update(ctx, user))

		_, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeForbidden, appErr.Code)
	})
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("rotation revokes the old token", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice@example.com", "correct horse")
		pair, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		require.NoError(t, err)

		next, err := f.service.RefreshToken(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

		_, err = f.service.RefreshToken(ctx, pair.RefreshToken)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.RefreshToken(ctx, "not-a-token")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		f := newFixture(t)
		f.register(t, "alice@example.com", "correct horse")
		pair, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		require.NoError(t, err)

		f.tokens.mu.Lock()
		for _, tok := range f.tokens.tokens {
			tok.ExpiresAt = time.Now().Add(-time.Minute)
		}
		f.tokens.mu.Unlock()

		_, err = f.service.RefreshToken(ctx, pair.RefreshToken)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	user := f.register(t, "alice@example.com", "correct horse")
	pair, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.Equal(t, 1, f.tokens.activeCount(user.ID))

	require.NoError(t, f.service.Logout(ctx, user.ID))
	assert.Zero(t, f.tokens.activeCount(user.ID))

	_, err = f.service.RefreshToken(ctx, pair.RefreshToken)
	require.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("new password replaces the old one", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "alice@example.com", "correct horse")
		_, _, err := f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		require.NoError(t, err)

		require.NoError(t, f.service.ChangePassword(ctx, user.ID, "correct horse", "battery staple"))

		_, _, err = f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "correct horse"})
		require.Error(t, err)
		_, _, err = f.service.Login(ctx, Credentials{Email: "alice@example.com", Password: "battery staple"})
		require.NoError(t, err)

		// all sessions end with the old password
		assert.Equal(t, 1, f.tokens.activeCount(user.ID))
	})

	t.Run("wrong current password refused", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "alice@example.com", "correct horse")

		err := f.service.ChangePassword(ctx, user.ID, "battery staple", "another password")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)
	})

	t.Run("short new password refused", func(t *testing.T) {
		f := newFixture(t)
		user := f.register(t, "alice@example.com", "correct horse")

		err := f.service.ChangePassword(ctx, user.ID, "correct horse", "short")
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}
