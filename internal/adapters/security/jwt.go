package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shieldops/auth/internal/domain"
	"github.com/shieldops/auth/internal/ports"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// HSTokenIssuer implements HS256 signing/parsing with one secret per token
// family. Compromise of the access secret cannot forge refresh tokens and
// vice versa, and an access token presented on the refresh path fails the
// signature check before anything else.
type HSTokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewHSTokenIssuer builds an issuer from the two configured secrets.
// Equal secrets collapse the two token families into one and are rejected.
func NewHSTokenIssuer(accessSecret, refreshSecret string) (*HSTokenIssuer, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	return &HSTokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}, nil
}

type sessionTokenClaims struct {
	SessionID string `json:"session_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func (i *HSTokenIssuer) SignAccess(claims ports.AccessClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionTokenClaims{
		SessionID: claims.SessionID,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID.String(),
			ID:        claims.JTI,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(i.accessSecret)
}

func (i *HSTokenIssuer) SignRefresh(claims ports.RefreshClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionTokenClaims{
		SessionID: claims.SessionID,
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	return token.SignedString(i.refreshSecret)
}

func (i *HSTokenIssuer) ParseAccess(raw string) (ports.AccessClaims, error) {
	claims, err := i.parse(raw, i.accessSecret, tokenTypeAccess)
	if err != nil {
		return ports.AccessClaims{}, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("%w: bad subject", domain.ErrTokenInvalid)
	}
	return ports.AccessClaims{
		UserID:    userID,
		SessionID: claims.SessionID,
		JTI:       claims.ID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

func (i *HSTokenIssuer) ParseRefresh(raw string) (ports.RefreshClaims, error) {
	claims, err := i.parse(raw, i.refreshSecret, tokenTypeRefresh)
	if err != nil {
		return ports.RefreshClaims{}, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.RefreshClaims{}, fmt.Errorf("%w: bad subject", domain.ErrTokenInvalid)
	}
	return ports.RefreshClaims{
		UserID:    userID,
		SessionID: claims.SessionID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

func (i *HSTokenIssuer) parse(raw string, secret []byte, wantType string) (*sessionTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &sessionTokenClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*sessionTokenClaims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, domain.ErrTokenTypeMismatch
	}
	if claims.SessionID == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
