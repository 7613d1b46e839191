package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/rbac_auth/internal/events"
	"github.com/Skotchmaster/rbac_auth/internal/hash"
	"github.com/Skotchmaster/rbac_auth/internal/logging"
	"github.com/Skotchmaster/rbac_auth/internal/models"
	"github.com/Skotchmaster/rbac_auth/internal/repo"
	"github.com/Skotchmaster/rbac_auth/internal/rsakeys"
	"github.com/Skotchmaster/rbac_auth/internal/session"
	"github.com/Skotchmaster/rbac_auth/internal/tokens"
)

type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserWithRoles(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type AuthService struct {
	Users    UserStore
	Tokens   *tokens.Manager
	Sessions *session.Store
	Events   events.Publisher
	// RSA decrypts login passwords; nil means passwords arrive in plain text.
	RSA *rsakeys.KeyPair
	Now func() time.Time
}

type LoginInput struct {
	Username  string
	Password  string
	UserAgent string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", in.Username)

	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	password := in.Password
	if s.RSA != nil {
		plain, err := s.RSA.Decrypt(in.Password)
		if err != nil {
			l.Warn("login_failed", "status", 400, "reason", "cannot decrypt password")
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		password = plain
	}

	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.loginFailed(ctx, username, in.UserAgent, "unknown user")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		s.loginFailed(ctx, username, in.UserAgent, "wrong password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.loginFailed(ctx, username, in.UserAgent, "user disabled")
		return nil, fmt.Errorf("%w: user is disabled", ErrForbidden)
	}

	pair, err := s.issue(ctx, user, in.UserAgent, events.TypeLogin)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	l.Info("login_success", "user_id", user.ID)
	return pair, nil
}

// Refresh rotates a refresh token. Once its session is taken the old token is
// spent, even if issuing the new pair fails.
func (s *AuthService) Refresh(ctx context.Context, raw, userAgent string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if raw == "" {
		return nil, fmt.Errorf("%w: refresh token is missing", ErrUnauthorized)
	}
	claims, err := s.Tokens.ParseRefresh(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	userID, err := tokens.UserID(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	l = l.With("user_id", userID, "jti", claims.ID)

	if claims.Fingerprint != tokens.Fingerprint(userAgent) {
		l.Warn("refresh_failed", "status", 401, "reason", "user agent fingerprint mismatch")
		return nil, fmt.Errorf("%w: user agent mismatch", ErrSessionNotFound)
	}

	stored, err := s.Sessions.Take(ctx, userID, claims.ID, userAgent)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "no live session")
			return nil, ErrSessionNotFound
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if subtle.ConstantTimeCompare([]byte(stored.RefreshToken), []byte(raw)) != 1 {
		l.Warn("refresh_failed", "status", 401, "reason", "stored token differs")
		return nil, ErrSessionNotFound
	}

	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		l.Warn("refresh_failed", "status", 403, "reason", "user disabled")
		return nil, fmt.Errorf("%w: user is disabled", ErrForbidden)
	}

	return s.issue(ctx, user, userAgent, events.TypeRefresh)
}

// Logout ends the session behind a refresh token. Expired tokens are accepted
// and an already ended session is not an error.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if raw == "" {
		return nil
	}
	claims, err := s.Tokens.ParseRefreshIgnoringExpiry(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	userID, err := tokens.UserID(claims)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if err := s.Sessions.Delete(ctx, userID, claims.ID); err != nil {
		l.Error("logout_failed", "status", 500, "error", err)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	ev := events.New(events.TypeLogout)
	ev.UserID = userID.String()
	ev.SessionID = claims.ID
	s.publish(ctx, ev)
	return nil
}

func (s *AuthService) UserInfo(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Users.GetUserWithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is disabled", ErrForbidden)
	}
	return user, nil
}

// PublicKey returns the PEM encoded login key, or ErrNotFound outside debug
// environments.
func (s *AuthService) PublicKey() ([]byte, error) {
	if s.RSA == nil {
		return nil, ErrNotFound
	}
	return s.RSA.PublicPEM()
}

func (s *AuthService) issue(ctx context.Context, user *models.User, userAgent string, typ events.Type) (*TokenPair, error) {
	access, err := s.Tokens.NewAccessToken(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	refresh, claims, err := s.Tokens.NewRefreshToken(user.ID, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.Sessions.Save(ctx, session.Session{
		UserID:       user.ID,
		JTI:          claims.ID,
		CreatedAt:    s.now(),
		RefreshToken: refresh,
		UserAgent:    userAgent,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	ev := events.New(typ)
	ev.UserID = user.ID.String()
	ev.Username = user.Username
	ev.UserAgent = userAgent
	ev.SessionID = claims.ID
	s.publish(ctx, ev)

	now := s.now()
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    now.Add(s.Tokens.AccessTTL()),
		RefreshExp:   claims.ExpiresAt.Time,
		User:         user,
	}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username, userAgent, reason string) {
	logging.FromContext(ctx).Warn("login_failed", "status", 401, "username", username, "reason", reason)
	ev := events.New(events.TypeLoginFailed)
	ev.Username = username
	ev.UserAgent = userAgent
	ev.Reason = reason
	s.publish(ctx, ev)
}

func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "type", ev.Type, "error", err)
	}
}
