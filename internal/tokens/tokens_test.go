package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newManager(c *clock) *Manager {
	return NewManager(Options{
		AccessKey:  []byte("access-secret"),
		RefreshKey: []byte("refresh-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "rbac-auth",
		Now:        c.now,
	})
}

func TestAccessToken_RoundTrip(t *testing.T) {
	c := &clock{t: time.Now()}
	m := newManager(c)
	uid := uuid.New()

	raw, err := m.NewAccessToken(uid, "alice")
	require.NoError(t, err)

	claims, err := m.ParseAccess(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Name)
	got, err := UserID(claims)
	require.NoError(t, err)
	assert.Equal(t, uid, got)
}

func TestAccessToken_Rejects(t *testing.T) {
	c := &clock{t: time.Now()}
	m := newManager(c)
	uid := uuid.New()

	raw, err := m.NewAccessToken(uid, "alice")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newManager(&clock{t: c.t.Add(16 * time.Minute)})
		_, err := later.ParseAccess(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(raw, ".")
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		_, err := m.ParseAccess(parts[0] + "." + parts[1] + "." + string(sig))
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token as access", func(t *testing.T) {
		refresh, _, err := m.NewRefreshToken(uid, "ua")
		require.NoError(t, err)
		_, err = m.ParseAccess(refresh)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewManager(Options{
			AccessKey: []byte("access-secret"), RefreshKey: []byte("refresh-secret"),
			AccessTTL: time.Minute, RefreshTTL: time.Hour, Issuer: "someone-else", Now: c.now,
		})
		_, err := other.ParseAccess(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefreshToken(t *testing.T) {
	c := &clock{t: time.Now()}
	m := newManager(c)
	uid := uuid.New()

	raw, issued, err := m.NewRefreshToken(uid, "Mozilla/5.0")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.Equal(t, Fingerprint("Mozilla/5.0"), issued.Fingerprint)

	claims, err := m.ParseRefresh(raw)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, claims.ID)

	_, second, err := m.NewRefreshToken(uid, "Mozilla/5.0")
	require.NoError(t, err)
	assert.NotEqual(t, issued.ID, second.ID)

	later := newManager(&clock{t: c.t.Add(25 * time.Hour)})
	_, err = later.ParseRefresh(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	claims, err = later.ParseRefreshIgnoringExpiry(raw)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, claims.ID)

	access, err := m.NewAccessToken(uid, "alice")
	require.NoError(t, err)
	_, err = m.ParseRefreshIgnoringExpiry(access)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestFingerprint(t *testing.T) {
	assert.Len(t, Fingerprint("x"), 64)
	assert.NotEqual(t, Fingerprint("a"), Fingerprint("b"))
}
