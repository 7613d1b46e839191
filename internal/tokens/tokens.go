// Package tokens signs and verifies the access and refresh JWTs.
package tokens

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("unexpected token type")
)

type AccessClaims struct {
	Name string `json:"name"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Fingerprint string `json:"ua"`
	Type        string `json:"typ"`
	jwt.RegisteredClaims
}

type Options struct {
	AccessKey  []byte
	RefreshKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	// Now overrides the clock for signing and validation. Defaults to time.Now.
	Now func() time.Time
}

type Manager struct {
	opts Options
}

func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{opts: opts}
}

func (m *Manager) AccessTTL() time.Duration  { return m.opts.AccessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.opts.RefreshTTL }

// Fingerprint is the hex SHA-256 of a user agent string.
func Fingerprint(userAgent string) string {
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])
}

func (m *Manager) NewAccessToken(userID uuid.UUID, name string) (string, error) {
	now := m.opts.Now()
	claims := AccessClaims{
		Name: name,
		Type: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    m.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.AccessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.opts.AccessKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// NewRefreshToken returns the signed token together with its freshly generated jti.
func (m *Manager) NewRefreshToken(userID uuid.UUID, userAgent string) (string, *RefreshClaims, error) {
	now := m.opts.Now()
	claims := &RefreshClaims{
		Fingerprint: Fingerprint(userAgent),
		Type:        TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    m.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.opts.RefreshTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.opts.RefreshKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, claims, nil
}

func (m *Manager) parserOptions(extra ...jwt.ParserOption) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.opts.Now),
		jwt.WithExpirationRequired(),
	}
	if m.opts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.opts.Issuer))
	}
	return append(opts, extra...)
}

func keyFunc(key []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return key, nil }
}

func (m *Manager) ParseAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, keyFunc(m.opts.AccessKey), m.parserOptions()...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrWrongType)
	}
	return claims, nil
}

func (m *Manager) ParseRefresh(raw string) (*RefreshClaims, error) {
	return m.parseRefresh(raw, m.parserOptions()...)
}

// ParseRefreshIgnoringExpiry checks signature, algorithm and type but accepts
// expired tokens, so an expired session can still be logged out.
func (m *Manager) ParseRefreshIgnoringExpiry(raw string) (*RefreshClaims, error) {
	return m.parseRefresh(raw,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
}

func (m *Manager) parseRefresh(raw string, opts ...jwt.ParserOption) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, keyFunc(m.opts.RefreshKey), opts...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrWrongType)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub or jti", ErrInvalidToken)
	}
	return claims, nil
}

// UserID returns the subject as a uuid.
func UserID(c jwt.Claims) (uuid.UUID, error) {
	sub, err := c.GetSubject()
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
