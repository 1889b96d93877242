package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shieldops/auth/internal/domain"
	"github.com/shieldops/auth/internal/ports"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

func newTestIssuer(t *testing.T) *HSTokenIssuer {
	t.Helper()
	issuer, err := NewHSTokenIssuer(testAccessSecret, testRefreshSecret)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func TestNewHSTokenIssuerRejectsBadSecrets(t *testing.T) {
	t.Parallel()

	if _, err := NewHSTokenIssuer("", "refresh"); err == nil {
		t.Fatal("expected error for empty access secret")
	}
	if _, err := NewHSTokenIssuer("same", "same"); err == nil {
		t.Fatal("expected error for equal secrets")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	now := time.Now().UTC().Truncate(time.Second)
	in := ports.AccessClaims{
		UserID:    uuid.New(),
		SessionID: "session-abc",
		JTI:       "jti-123",
		IssuedAt:  now,
		ExpiresAt: now.Add(15 * time.Minute),
	}

	raw, err := issuer.SignAccess(in)
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	out, err := issuer.ParseAccess(raw)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if out.UserID != in.UserID || out.SessionID != in.SessionID || out.JTI != in.JTI {
		t.Fatalf("claims mismatch: got %+v want %+v", out, in)
	}
	if !out.ExpiresAt.Equal(in.ExpiresAt) {
		t.Fatalf("expiry mismatch: got %v want %v", out.ExpiresAt, in.ExpiresAt)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	now := time.Now().UTC().Truncate(time.Second)
	in := ports.RefreshClaims{
		UserID:    uuid.New(),
		SessionID: "session-abc",
		IssuedAt:  now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}

	raw, err := issuer.SignRefresh(in)
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}
	out, err := issuer.ParseRefresh(raw)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if out.UserID != in.UserID || out.SessionID != in.SessionID {
		t.Fatalf("claims mismatch: got %+v want %+v", out, in)
	}
}

func TestExpiredAccessToken(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	now := time.Now().UTC()
	raw, err := issuer.SignAccess(ports.AccessClaims{
		UserID:    uuid.New(),
		SessionID: "session-abc",
		JTI:       "jti-123",
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}
	if _, err := issuer.ParseAccess(raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	now := time.Now().UTC()
	raw, err := issuer.SignAccess(ports.AccessClaims{
		UserID:    uuid.New(),
		SessionID: "session-abc",
		JTI:       "jti-123",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign access: %v", err)
	}

	tampered := raw[:len(raw)-3] + "xxx"
	if _, err := issuer.ParseAccess(tampered); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestCrossFamilyTokenRejected(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	now := time.Now().UTC()

	refresh, err := issuer.SignRefresh(ports.RefreshClaims{
		UserID:    uuid.New(),
		SessionID: "session-abc",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("sign refresh: %v", err)
	}

	// Signature fails first since each family has its own secret.
	if _, err := issuer.ParseAccess(refresh); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestTypeMismatchDetected(t *testing.T) {
	t.Parallel()

	issuer := newTestIssuer(t)
	now := time.Now().UTC()

	// Correctly signed with the access secret but declaring the wrong type.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionTokenClaims{
		SessionID: "session-abc",
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	raw, err := forged.SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	if _, err := issuer.ParseAccess(raw); !errors.Is(err, domain.ErrTokenTypeMismatch) {
		t.Fatalf("expected ErrTokenTypeMismatch, got %v", err)
	}
}
