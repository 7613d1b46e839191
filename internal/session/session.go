// Package session persists refresh-token sessions in the cache.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/rbac_auth/internal/cache"
)

const (
	fieldCreatedAt    = "created_at"
	fieldRefreshToken = "refresh_token"
	fieldUserAgent    = "user-agent"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	UserID       uuid.UUID
	JTI          string
	CreatedAt    time.Time
	RefreshToken string
	UserAgent    string
}

// Key is the cache key of one refresh session.
func Key(userID uuid.UUID, jti string) string {
	return fmt.Sprintf("auth:refresh:<%s>:<%s>", userID, jti)
}

type Store struct {
	cache cache.Store
	ttl   time.Duration
}

func NewStore(c cache.Store, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func (s *Store) Save(ctx context.Context, sess Session) error {
	fields := map[string]string{
		fieldCreatedAt:    sess.CreatedAt.UTC().Format(time.RFC3339),
		fieldRefreshToken: sess.RefreshToken,
		fieldUserAgent:    sess.UserAgent,
	}
	if err := s.cache.SetHash(ctx, Key(sess.UserID, sess.JTI), fields, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Take removes the session and returns it, but only when it was created for
// userAgent. Absent sessions and foreign user agents both yield ErrNotFound.
func (s *Store) Take(ctx context.Context, userID uuid.UUID, jti, userAgent string) (*Session, error) {
	fields, err := s.cache.TakeHashIf(ctx, Key(userID, jti), fieldUserAgent, userAgent)
	if errors.Is(err, cache.ErrNotFound) || errors.Is(err, cache.ErrMismatch) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take session: %w", err)
	}
	return fromFields(userID, jti, fields), nil
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID, jti string) error {
	if err := s.cache.Delete(ctx, Key(userID, jti)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func fromFields(userID uuid.UUID, jti string, fields map[string]string) *Session {
	created, _ := time.Parse(time.RFC3339, fields[fieldCreatedAt])
	return &Session{
		UserID:       userID,
		JTI:          jti,
		CreatedAt:    created,
		RefreshToken: fields[fieldRefreshToken],
		UserAgent:    fields[fieldUserAgent],
	}
}
