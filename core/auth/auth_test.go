package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"TuneBox/cache"
	"TuneBox/config"
	"TuneBox/core/apperr"
	"TuneBox/internal/testutil"
	"TuneBox/model"
	"TuneBox/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

func newTestService(t *testing.T, limiter Limiter) (*Service, repository.UserRepository) {
	t.Helper()
	users := repository.NewGormUserRepository(testutil.OpenDB(t))
	tokens := NewTokenIssuer(testKey, "TuneBox", "TuneBoxClient", 6*time.Hour)
	return NewService(users, NewHasher(1000), tokens, limiter), users
}

func TestHasher(t *testing.T) {
	h := NewHasher(1000)

	hash, salt, err := h.HashPassword("correct horse")
	require.NoError(t, err)
	assert.Len(t, hash, 128)
	assert.Len(t, salt, 128)

	assert.True(t, h.CheckPasswordHash("correct horse", hash, salt))
	assert.False(t, h.CheckPasswordHash("Correct horse", hash, salt))
	assert.False(t, h.CheckPasswordHash("correct horse ", hash, salt))
	assert.False(t, h.CheckPasswordHash("correct horse", hash, "zz"))

	_, salt2, err := h.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, salt, salt2)
}

func TestHasherDefaultIterations(t *testing.T) {
	assert.Equal(t, 350000, NewHasher(0).Iterations())
	assert.Equal(t, config.DefaultPBKDF2Iterations, NewHasher(-1).Iterations())
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer(testKey, "TuneBox", "TuneBoxClient", 6*time.Hour)
	user := &model.User{ID: "user-1", Email: "a@x.com", Role: model.RoleAdmin}

	t.Run("Round Trip", func(t *testing.T) {
		token, err := issuer.GenerateToken(user)
		require.NoError(t, err)

		claims, err := issuer.ParseToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, "a@x.com", claims.Email)
		assert.True(t, claims.IsAdmin())
		assert.WithinDuration(t, time.Now().Add(6*time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := issuer.GenerateToken(user)
		require.NoError(t, err)

		later := NewTokenIssuer(testKey, "TuneBox", "TuneBoxClient", 6*time.Hour)
		later.now = func() time.Time { return time.Now().Add(7 * time.Hour) }
		_, err = later.ParseToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Wrong Key Or Audience", func(t *testing.T) {
		token, err := issuer.GenerateToken(user)
		require.NoError(t, err)

		_, err = NewTokenIssuer(strings.Repeat("x", 32), "TuneBox", "TuneBoxClient", time.Hour).ParseToken(token)
		assert.Error(t, err)
		_, err = NewTokenIssuer(testKey, "TuneBox", "Other", time.Hour).ParseToken(token)
		assert.Error(t, err)
		_, err = issuer.ParseToken("not-a-token")
		assert.Error(t, err)
	})
}

func TestRegisterAndSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("SignIn Returns Registered Identity", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		registered, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
		require.NoError(t, err)
		assert.Equal(t, "alice", registered.UserName)
		assert.NotEmpty(t, registered.Token)

		signedIn, err := svc.SignIn(ctx, "alice", "password1")
		require.NoError(t, err)
		assert.Equal(t, registered.UserID, signedIn.UserID)

		claims, err := svc.Tokens().ParseToken(signedIn.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.UserID, claims.UserID())
		assert.Equal(t, model.RoleUser, claims.Role)
	})

	t.Run("Password Must Match Exactly", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		_, err := svc.Register(ctx, "bob", "bob@example.com", "Password")
		require.NoError(t, err)

		_, err = svc.SignIn(ctx, "bob", "password")
		assert.ErrorIs(t, err, apperr.ErrAuth)
		_, err = svc.SignIn(ctx, "bob", "PASSWORD")
		assert.ErrorIs(t, err, apperr.ErrAuth)
		_, err = svc.SignIn(ctx, "bob", "Password")
		assert.NoError(t, err)
	})

	t.Run("Password Length Boundary", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		_, err := svc.Register(ctx, "carol", "carol@example.com", "1234567")
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, err = svc.Register(ctx, "carol", "carol@example.com", "12345678")
		assert.NoError(t, err)
	})

	t.Run("Duplicate Email Or Name", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		_, err := svc.Register(ctx, "dave", "dave@example.com", "password1")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "dave2", "dave@example.com", "password1")
		assert.ErrorIs(t, err, apperr.ErrConflict)
		_, err = svc.Register(ctx, "dave", "other@example.com", "password1")
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Validation", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		for _, email := range []string{"", "no-at-sign", "a@b", "a@b.toolongtld", "a b@c.com"} {
			_, err := svc.Register(ctx, "erin", email, "password1")
			assert.ErrorIs(t, err, apperr.ErrValidation, email)
		}
		_, err := svc.Register(ctx, "  ", "erin@example.com", "password1")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Unknown User", func(t *testing.T) {
		svc, _ := newTestService(t, nil)
		_, err := svc.SignIn(ctx, "nobody", "password1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestSignInThrottle(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejected", func(t *testing.T) {
		limiter := &stubLimiter{allow: false}
		svc, _ := newTestService(t, limiter)
		_, err := svc.SignIn(ctx, "alice", "password1")
		assert.ErrorIs(t, err, apperr.ErrRateLimited)
		assert.Equal(t, []string{"alice"}, limiter.keys)
	})

	t.Run("Keyed By Name And Client", func(t *testing.T) {
		limiter := &stubLimiter{allow: false}
		svc, _ := newTestService(t, limiter)
		_, err := svc.SignInFrom(ctx, "alice", "password1", "10.0.0.1")
		assert.ErrorIs(t, err, apperr.ErrRateLimited)
		assert.Equal(t, []string{"alice|10.0.0.1"}, limiter.keys)
	})

	t.Run("Other Clients Are Not Locked Out", func(t *testing.T) {
		svc, _ := newTestService(t, cache.NewLocalLimiter(1, time.Hour))
		_, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
		require.NoError(t, err)

		_, err = svc.SignInFrom(ctx, "alice", "wrong-password", "10.0.0.9")
		assert.ErrorIs(t, err, apperr.ErrAuth)
		_, err = svc.SignInFrom(ctx, "alice", "wrong-password", "10.0.0.9")
		assert.ErrorIs(t, err, apperr.ErrRateLimited)

		_, err = svc.SignInFrom(ctx, "alice", "password1", "10.0.0.1")
		assert.NoError(t, err)
	})

	t.Run("Limiter Errors Fail Open", func(t *testing.T) {
		limiter := &stubLimiter{err: errors.New("redis down")}
		svc, _ := newTestService(t, limiter)
		_, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
		require.NoError(t, err)

		_, err = svc.SignIn(ctx, "alice", "password1")
		assert.NoError(t, err)
	})
}

func TestPromoteToAdmin(t *testing.T) {
	ctx := context.Background()
	svc, users := newTestService(t, nil)

	registered, err := svc.Register(ctx, "alice", "alice@example.com", "password1")
	require.NoError(t, err)

	promoted, err := svc.PromoteToAdmin(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, promoted.IsAdmin())

	stored, err := users.GetByID(ctx, registered.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, stored.Role)

	signedIn, err := svc.SignIn(ctx, "alice", "password1")
	require.NoError(t, err)
	claims, err := svc.Tokens().ParseToken(signedIn.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())

	_, err = svc.PromoteToAdmin(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
