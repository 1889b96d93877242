package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shieldops/auth/internal/domain"
	"github.com/shieldops/auth/internal/ports"
)

type Service struct {
	cfg         Config
	users       ports.UserRepository
	sessions    ports.SessionRepository
	revocations ports.SessionRevocationStore
	hasher      ports.PasswordHasher
	tokens      ports.TokenIssuer
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Users       ports.UserRepository
	Sessions    ports.SessionRepository
	Revocations ports.SessionRevocationStore
	Hasher      ports.PasswordHasher
	Tokens      ports.TokenIssuer
	// Now overrides the clock; tests pin it, production leaves it nil.
	Now func() time.Time
}

func NewService(deps Dependencies) *Service {
	nowFn := deps.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:         deps.Config,
		users:       deps.Users,
		sessions:    deps.Sessions,
		revocations: deps.Revocations,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		nowFn:       nowFn,
	}
}

// Signup creates a local account. Email uniqueness rides on the DB unique
// index; the adapter maps the violation to domain.ErrDuplicateEmail.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (UserInfo, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserInfo{}, err
	}
	if err := domain.ValidatePassword(req.Password); err != nil {
		return UserInfo{}, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return UserInfo{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, ports.CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     strings.TrimSpace(req.FullName),
		CreatedAtUTC: s.nowFn(),
	})
	if err != nil {
		return UserInfo{}, err
	}
	return toUserInfo(user), nil
}

// Login verifies credentials and starts the single live session for this
// account. The session transaction deactivates every prior session; displaced
// ids get advisory revocation markers so other services drop them immediately.
func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenPair, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return TokenPair{}, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, domain.ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return TokenPair{}, domain.ErrInvalidCredentials
	}
	// Inactive is only reported once the password checked out, so the flag
	// leaks nothing to a guesser.
	if !user.IsActive {
		return TokenPair{}, domain.ErrAccountInactive
	}

	now := s.nowFn()
	sessionID, err := randomToken()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate session id: %w", err)
	}
	jti, err := randomToken()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate jti: %w", err)
	}

	refreshToken, err := s.tokens.SignRefresh(ports.RefreshClaims{
		UserID:    user.UserID,
		SessionID: sessionID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	accessToken, err := s.tokens.SignAccess(ports.AccessClaims{
		UserID:    user.UserID,
		SessionID: sessionID,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	_, displaced, err := s.sessions.StartLoginTx(ctx, ports.StartSessionParams{
		UserID:           user.UserID,
		SessionID:        sessionID,
		RefreshTokenHash: hashToken(refreshToken),
		AccessTokenJTI:   jti,
		IPAddress:        req.IPAddress,
		UserAgent:        req.UserAgent,
		ExpiresAt:        now.Add(s.cfg.SessionTTL),
		StartedAtUTC:     now,
	})
	if err != nil {
		return TokenPair{}, err
	}

	// Advisory only; the deactivated rows are already authoritative.
	for _, old := range displaced {
		_ = s.revocations.MarkRevoked(ctx, old, now.Add(s.cfg.AccessTokenTTL))
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		User:         toUserInfo(user),
	}, nil
}

// ValidateAccessToken is the full check every authenticated call goes
// through: signature, expiry, declared type, revocation marker, account
// state, live session, and jti binding, in that order.
func (s *Service) ValidateAccessToken(ctx context.Context, raw string) (domain.User, ports.AccessClaims, error) {
	claims, err := s.tokens.ParseAccess(raw)
	if err != nil {
		return domain.User{}, ports.AccessClaims{}, err
	}

	if revoked, revErr := s.revocations.IsRevoked(ctx, claims.SessionID); revErr == nil && revoked {
		return domain.User{}, ports.AccessClaims{}, domain.ErrSessionInvalidated
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ports.AccessClaims{}, domain.ErrSessionInvalidated
		}
		return domain.User{}, ports.AccessClaims{}, err
	}
	if !user.IsActive {
		return domain.User{}, ports.AccessClaims{}, domain.ErrAccountInactive
	}

	sess, err := s.sessions.GetActive(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, ports.AccessClaims{}, domain.ErrSessionInvalidated
		}
		return domain.User{}, ports.AccessClaims{}, err
	}

	now := s.nowFn()
	if sess.ExpiredAt(now) {
		_ = s.sessions.MarkExpired(ctx, sess.ID, now)
		return domain.User{}, ports.AccessClaims{}, domain.ErrSessionExpired
	}
	// A stale jti means the session minted a newer access token since this
	// one was issued.
	if sess.AccessTokenJTI == nil || *sess.AccessTokenJTI != claims.JTI {
		return domain.User{}, ports.AccessClaims{}, domain.ErrSessionInvalidated
	}

	_ = s.sessions.TouchActivity(ctx, sess.ID, now)
	return user, claims, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token itself is not rotated; the stored jti is, which retires every access
// token issued before this call.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (TokenPair, error) {
	claims, err := s.tokens.ParseRefresh(rawRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	sess, err := s.sessions.GetActive(ctx, claims.UserID, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, domain.ErrSessionInvalidated
		}
		return TokenPair{}, err
	}

	presented := hashToken(rawRefresh)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(sess.RefreshTokenHash)) != 1 {
		return TokenPair{}, domain.ErrSessionInvalidated
	}

	now := s.nowFn()
	if sess.ExpiredAt(now) {
		_ = s.sessions.MarkExpired(ctx, sess.ID, now)
		return TokenPair{}, domain.ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, domain.ErrSessionInvalidated
		}
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, domain.ErrAccountInactive
	}

	jti, err := randomToken()
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate jti: %w", err)
	}
	accessToken, err := s.tokens.SignAccess(ports.AccessClaims{
		UserID:    user.UserID,
		SessionID: sess.SessionID,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	if err := s.sessions.RotateAccessToken(ctx, sess.ID, jti, now); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		User:         toUserInfo(user),
	}, nil
}

// Logout deactivates the session named by the token, best effort. Invalid or
// expired tokens are an expected input here, not an error: the caller wants
// out either way, and the handler still clears cookies and answers 200.
func (s *Service) Logout(ctx context.Context, raw string) LogoutResult {
	if strings.TrimSpace(raw) == "" {
		return LogoutResult{State: LogoutNothingToClear}
	}

	claims, err := s.tokens.ParseAccess(raw)
	if err != nil {
		return LogoutResult{State: LogoutNothingToClear}
	}

	now := s.nowFn()
	cleared, err := s.sessions.Deactivate(ctx, claims.UserID, claims.SessionID, now)
	if err != nil {
		return LogoutResult{State: LogoutStorageError, Err: err}
	}
	if err := s.users.ClearCurrentSession(ctx, claims.UserID, claims.SessionID, now); err != nil {
		return LogoutResult{State: LogoutStorageError, Err: err}
	}
	_ = s.revocations.MarkRevoked(ctx, claims.SessionID, claims.ExpiresAt)

	if !cleared {
		return LogoutResult{State: LogoutNothingToClear}
	}
	return LogoutResult{State: LogoutSessionCleared}
}

// normalizeEmail canonicalizes and validates email format before persistence/comparison.
func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

// hashToken produces the sha256 hex fingerprint stored instead of raw secrets.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomToken returns 32 bytes of crypto/rand entropy, base64url encoded.
// Used for session ids, access-token jtis and reset tokens alike.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
