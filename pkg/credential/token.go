package credential

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fastygo/taskflow/domain"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

type claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 session tokens carrying id, email and role.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the clock used for iat/exp when issuing tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer builds an issuer. The secret must be non-empty.
func NewTokenIssuer(secret, issuer string, ttl time.Duration, opts ...TokenOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	t := &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue signs a token for user valid for the configured window.
func (t *TokenIssuer) Issue(user *domain.User) (*domain.Session, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrInvalidPayload
	}
	now := t.now()
	expiresAt := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.Session{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate checks signature, algorithm and expiry and returns the actor the
// token was issued to. Every failure is reported as domain.ErrInvalidToken.
func (t *TokenIssuer) Validate(tokenString string) (domain.Actor, error) {
	if tokenString == "" {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, domain.WrapError(domain.ErrCodeForbidden, domain.ErrInvalidToken.Message, err)
	}
	if t.issuer != "" && !c.VerifyIssuer(t.issuer, true) {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	role := domain.Role(c.Role)
	if c.UserID == "" || !role.Valid() {
		return domain.Actor{}, domain.ErrInvalidToken
	}
	return domain.Actor{ID: c.UserID, Email: c.Email, Role: role}, nil
}
