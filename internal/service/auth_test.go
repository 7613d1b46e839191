package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/rbac_auth/internal/cache"
	"github.com/Skotchmaster/rbac_auth/internal/db"
	"github.com/Skotchmaster/rbac_auth/internal/events"
	"github.com/Skotchmaster/rbac_auth/internal/hash"
	"github.com/Skotchmaster/rbac_auth/internal/models"
	"github.com/Skotchmaster/rbac_auth/internal/repo"
	"github.com/Skotchmaster/rbac_auth/internal/rsakeys"
	"github.com/Skotchmaster/rbac_auth/internal/session"
	"github.com/Skotchmaster/rbac_auth/internal/tokens"
)

const (
	uaA = "Mozilla/5.0 (X11; Linux x86_64)"
	uaB = "curl/8.5.0"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.evs))
	for i, ev := range r.evs {
		out[i] = ev.Type
	}
	return out
}

type authEnv struct {
	svc    *AuthService
	repo   *repo.GormRepo
	mr     *miniredis.Miniredis
	events *recorder
	alice  *models.User
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(ctx, gdb))
	r := repo.New(gdb)

	pw, err := hash.HashPassword("correct horse")
	require.NoError(t, err)
	alice := &models.User{Name: "Alice", Email: "alice@example.com", Username: "alice", PasswordHash: pw, IsActive: true}
	require.NoError(t, r.CreateUserIfNotExists(ctx, alice))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tm := tokens.NewManager(tokens.Options{
		AccessKey:  []byte("access-key"),
		RefreshKey: []byte("refresh-key"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	rec := &recorder{}
	svc := &AuthService{
		Users:    r,
		Tokens:   tm,
		Sessions: session.NewStore(cache.NewRedisStore(client), tm.RefreshTTL()),
		Events:   rec,
	}
	return &authEnv{svc: svc, repo: r, mr: mr, events: rec, alice: alice}
}

func (env *authEnv) login(t *testing.T, ua string) *TokenPair {
	t.Helper()
	pair, err := env.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "correct horse", UserAgent: ua})
	require.NoError(t, err)
	return pair
}

func TestLogin_IssuesTokensAndSession(t *testing.T) {
	env := newAuthEnv(t)
	pair := env.login(t, uaA)

	access, err := env.svc.Tokens.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, env.alice.ID.String(), access.Subject)
	assert.Equal(t, "Alice", access.Name)

	refresh, err := env.svc.Tokens.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)

	key := session.Key(env.alice.ID, refresh.ID)
	require.True(t, env.mr.Exists(key))
	assert.Equal(t, pair.RefreshToken, env.mr.HGet(key, "refresh_token"))
	assert.Equal(t, uaA, env.mr.HGet(key, "user-agent"))
	assert.Equal(t, 24*time.Hour, env.mr.TTL(key))

	assert.Equal(t, []events.Type{events.TypeLogin}, env.events.types())
}

func TestLogin_Rejections(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Login(ctx, LoginInput{Username: "alice", Password: "nope", UserAgent: uaA})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, LoginInput{Username: "mallory", Password: "x", UserAgent: uaA})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.svc.Login(ctx, LoginInput{Username: " ", Password: "x"})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, env.repo.DB.Model(env.alice).Update("is_active", false).Error)
	_, err = env.svc.Login(ctx, LoginInput{Username: "alice", Password: "correct horse", UserAgent: uaA})
	require.ErrorIs(t, err, ErrForbidden)

	assert.Empty(t, env.mr.Keys())
	assert.Equal(t, []events.Type{events.TypeLoginFailed, events.TypeLoginFailed, events.TypeLoginFailed}, env.events.types())
}

func TestLogin_RSAEncryptedPassword(t *testing.T) {
	env := newAuthEnv(t)
	kp, err := rsakeys.Generate(1024)
	require.NoError(t, err)
	env.svc.RSA = kp

	enc, err := kp.Encrypt("correct horse")
	require.NoError(t, err)
	_, err = env.svc.Login(context.Background(), LoginInput{Username: "alice", Password: enc, UserAgent: uaA})
	require.NoError(t, err)

	_, err = env.svc.Login(context.Background(), LoginInput{Username: "alice", Password: "correct horse", UserAgent: uaA})
	require.ErrorIs(t, err, ErrValidation)

	pub, err := env.svc.PublicKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pub), "-----BEGIN PUBLIC KEY-----"))
}

func TestPublicKey_DisabledOutsideDebug(t *testing.T) {
	env := newAuthEnv(t)
	_, err := env.svc.PublicKey()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRefresh_RotatesAndIsSingleUse(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	first := env.login(t, uaA)

	second, err := env.svc.Refresh(ctx, first.RefreshToken, uaA)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	oldClaims, err := env.svc.Tokens.ParseRefresh(first.RefreshToken)
	require.NoError(t, err)
	newClaims, err := env.svc.Tokens.ParseRefresh(second.RefreshToken)
	require.NoError(t, err)
	assert.False(t, env.mr.Exists(session.Key(env.alice.ID, oldClaims.ID)))
	assert.True(t, env.mr.Exists(session.Key(env.alice.ID, newClaims.ID)))

	_, err = env.svc.Refresh(ctx, first.RefreshToken, uaA)
	require.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, []events.Type{events.TypeLogin, events.TypeRefresh}, env.events.types())
}

func TestRefresh_UserAgentMismatch(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	pair := env.login(t, uaA)

	_, err := env.svc.Refresh(ctx, pair.RefreshToken, uaB)
	require.ErrorIs(t, err, ErrSessionNotFound)

	// the rightful client can still refresh
	_, err = env.svc.Refresh(ctx, pair.RefreshToken, uaA)
	require.NoError(t, err)
}

func TestRefresh_ConcurrentSingleWinner(t *testing.T) {
	env := newAuthEnv(t)
	pair := env.login(t, uaA)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.Refresh(context.Background(), pair.RefreshToken, uaA); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
}

func TestRefresh_Rejections(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx, "", uaA)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = env.svc.Refresh(ctx, "not.a.jwt", uaA)
	require.ErrorIs(t, err, ErrUnauthorized)

	pair := env.login(t, uaA)
	_, err = env.svc.Refresh(ctx, pair.AccessToken, uaA)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.repo.DB.Model(env.alice).Update("is_active", false).Error)
	_, err = env.svc.Refresh(ctx, pair.RefreshToken, uaA)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRefresh_StoreDown(t *testing.T) {
	env := newAuthEnv(t)
	pair := env.login(t, uaA)
	env.mr.Close()

	_, err := env.svc.Refresh(context.Background(), pair.RefreshToken, uaA)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestLogout_Idempotent(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	pair := env.login(t, uaA)

	require.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, env.svc.Logout(ctx, pair.RefreshToken))
	require.NoError(t, env.svc.Logout(ctx, ""))
	assert.Empty(t, env.mr.Keys())

	_, err := env.svc.Refresh(ctx, pair.RefreshToken, uaA)
	require.ErrorIs(t, err, ErrSessionNotFound)

	err = env.svc.Logout(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_AcceptsExpiredToken(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	old := tokens.NewManager(tokens.Options{
		AccessKey: []byte("access-key"), RefreshKey: []byte("refresh-key"),
		AccessTTL: time.Minute, RefreshTTL: time.Hour,
		Now: func() time.Time { return past },
	})
	raw, claims, err := old.NewRefreshToken(env.alice.ID, uaA)
	require.NoError(t, err)
	require.NoError(t, env.svc.Sessions.Save(ctx, session.Session{
		UserID: env.alice.ID, JTI: claims.ID, CreatedAt: past, RefreshToken: raw, UserAgent: uaA,
	}))

	_, err = env.svc.Refresh(ctx, raw, uaA)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.svc.Logout(ctx, raw))
	assert.False(t, env.mr.Exists(session.Key(env.alice.ID, claims.ID)))
}

func TestUserInfo(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	u, err := env.svc.UserInfo(ctx, env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = env.svc.UserInfo(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
