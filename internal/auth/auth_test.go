package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/anonto42/circles/backend/internal/apperr"
	"github.com/anonto42/circles/backend/internal/models"
	"github.com/anonto42/circles/backend/internal/repositories/memory"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingConnector struct {
	calls atomic.Int32
	err   error
}

func (c *countingConnector) Connect(context.Context) error {
	c.calls.Add(1)
	return c.err
}

type stubFirebase map[string]string

func (s stubFirebase) VerifyIDToken(_ context.Context, token string) (*fbauth.Token, error) {
	uid, ok := s[token]
	if !ok {
		return nil, errors.New("token expired")
	}
	return &fbauth.Token{UID: uid}, nil
}

func newUser(t *testing.T, store interface {
	CreateUser(context.Context, *models.User) error
}, id, name string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Username: name, Email: name + "@example.com"}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestJWTRoundTrip(t *testing.T) {
	store, _ := memory.NewStore()
	user := newUser(t, store.Users, "aaaaaaaaaaaaaaaaaaaaaaaa", "alice")
	issuer := NewIssuer("secret", time.Hour)

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	id, err := NewJWTVerifier(issuer, store.Users).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{ID: user.ID, Username: "alice", Email: "alice@example.com"}, id)
}

func TestJWTRejects(t *testing.T) {
	store, _ := memory.NewStore()
	user := newUser(t, store.Users, "aaaaaaaaaaaaaaaaaaaaaaaa", "alice")
	issuer := NewIssuer("secret", time.Hour)
	verifier := NewJWTVerifier(issuer, store.Users)
	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewIssuer("other", time.Hour).Issue(user)
		require.NoError(t, err)
		_, err = verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
	t.Run("expired", func(t *testing.T) {
		old := NewIssuer("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := old.Issue(user)
		require.NoError(t, err)
		_, err = verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
	t.Run("deleted user", func(t *testing.T) {
		ghost := &models.User{ID: "bbbbbbbbbbbbbbbbbbbbbbbb"}
		token, err := issuer.Issue(ghost)
		require.NoError(t, err)
		_, err = verifier.Verify(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestChainFallsBackToFirebase(t *testing.T) {
	store, _ := memory.NewStore()
	uid := "firebase-uid"
	user := &models.User{ID: "cccccccccccccccccccccccc", Username: "carol", Email: "carol@example.com", FirebaseUID: &uid}
	require.NoError(t, store.Users.CreateUser(context.Background(), user))

	chain := Chain{
		NewJWTVerifier(NewIssuer("secret", time.Hour), store.Users),
		NewFirebaseVerifier(stubFirebase{"id-token": uid}, store.Users),
	}
	id, err := chain.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "carol", id.Username)

	_, err = chain.Verify(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestGateRun(t *testing.T) {
	store, _ := memory.NewStore()
	user := newUser(t, store.Users, "aaaaaaaaaaaaaaaaaaaaaaaa", "alice")
	issuer := NewIssuer("secret", time.Hour)
	token, err := issuer.Issue(user)
	require.NoError(t, err)

	log, hook := test.NewNullLogger()
	conn := &countingConnector{}
	gate := NewGate(NewJWTVerifier(issuer, store.Users), conn, log)
	ctx := context.Background()

	t.Run("resolves identity", func(t *testing.T) {
		err := gate.Run(ctx, token, true, func(ctx context.Context, id *Identity) error {
			assert.Equal(t, user.ID, id.ID)
			assert.Equal(t, id, FromContext(ctx))
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("required without credential", func(t *testing.T) {
		called := false
		err := gate.Run(ctx, "", true, func(context.Context, *Identity) error {
			called = true
			return nil
		})
		assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
		assert.False(t, called)
	})

	t.Run("optional without credential", func(t *testing.T) {
		err := gate.Run(ctx, "bogus", false, func(_ context.Context, id *Identity) error {
			assert.Nil(t, id)
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		err := gate.Run(ctx, token, true, func(context.Context, *Identity) error {
			return apperr.Forbidden("not yours")
		})
		var e *apperr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, apperr.KindForbidden, e.Kind)
		assert.Equal(t, "not yours", e.Message)
	})

	t.Run("duplicate key becomes conflict", func(t *testing.T) {
		err := gate.Run(ctx, token, true, func(context.Context, *Identity) error {
			return gorm.ErrDuplicatedKey
		})
		assert.True(t, apperr.Is(err, apperr.KindConflict))
	})

	t.Run("unknown errors are hidden and logged", func(t *testing.T) {
		hook.Reset()
		err := gate.Run(ctx, token, true, func(context.Context, *Identity) error {
			return errors.New("dial tcp 10.0.0.1:5432: connection refused")
		})
		var e *apperr.Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, apperr.KindInternal, e.Kind)
		assert.NotContains(t, e.Message, "10.0.0.1")
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	})

	assert.GreaterOrEqual(t, conn.calls.Load(), int32(6))
}

func TestGateConnectFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	gate := NewGate(Chain{}, &countingConnector{err: errors.New("mongo down")}, log)
	err := gate.Run(context.Background(), "", false, func(context.Context, *Identity) error {
		t.Fatal("op must not run")
		return nil
	})
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer"))
	assert.Equal(t, "", BearerToken(""))
}
