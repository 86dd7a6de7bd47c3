package credential

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskflow/domain"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "s3cret" {
		t.Fatalf("hash must not equal the password")
	}
	if !h.Verify("s3cret", hash) {
		t.Fatalf("Verify() rejected the right password")
	}
	if h.Verify("wrong", hash) {
		t.Fatalf("Verify() accepted a wrong password")
	}
	if h.Verify("s3cret", "not-a-hash") {
		t.Fatalf("Verify() accepted a malformed hash")
	}
}

func TestHasherSaltsEachHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Fatalf("expected different salts")
	}
}

func TestHasherCostFallback(t *testing.T) {
	if h := NewHasher(0); h.cost != DefaultCost {
		t.Fatalf("cost = %d; want %d", h.cost, DefaultCost)
	}
	if _, err := NewHasher(bcrypt.MinCost).Hash(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func newIssuer(t *testing.T, opts ...TokenOption) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer("test-secret", "taskflow", 0, opts...)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	return issuer
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := newIssuer(t)
	user := &domain.User{ID: "u1", Email: "m@example.com", Role: domain.RoleManager}
	session, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := time.Until(session.ExpiresAt); got < DefaultTokenTTL-time.Minute || got > DefaultTokenTTL {
		t.Fatalf("unexpected validity window %v", got)
	}

	actor, err := issuer.Validate(session.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if actor.ID != "u1" || actor.Email != "m@example.com" || actor.Role != domain.RoleManager {
		t.Fatalf("unexpected actor %#v", actor)
	}
}

func TestTokenTampered(t *testing.T) {
	issuer := newIssuer(t)
	session, err := issuer.Issue(&domain.User{ID: "u1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parts := strings.Split(session.Token, ".")
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{UserID: "u1", Role: "admin"}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	forgedParts := strings.Split(forged, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	for _, token := range []string{tampered, forged, "garbage", ""} {
		if _, err := issuer.Validate(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("Validate(%q) error = %v; want ErrInvalidToken", token, err)
		}
	}
}

func TestTokenExpired(t *testing.T) {
	past := time.Now().Add(-8 * 24 * time.Hour)
	issuer := newIssuer(t, WithClock(func() time.Time { return past }))
	session, err := issuer.Issue(&domain.User{ID: "u1", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := issuer.Validate(session.Token); !domain.IsDomainError(err, domain.ErrCodeForbidden) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	issuer := newIssuer(t)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{UserID: "u1", Role: "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := issuer.Validate(unsigned); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", "x", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
