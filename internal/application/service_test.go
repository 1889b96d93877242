package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shieldops/auth/internal/adapters/security"
	"github.com/shieldops/auth/internal/application"
	"github.com/shieldops/auth/internal/domain"
	"github.com/shieldops/auth/internal/ports"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]domain.User
	byEmail map[string]uuid.UUID
	events  []ports.OutboxEvent
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[uuid.UUID]domain.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, params ports.CreateUserParams) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[params.Email]; exists {
		return domain.User{}, domain.ErrDuplicateEmail
	}
	user := domain.User{
		UserID:       uuid.New(),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		FullName:     params.FullName,
		IsActive:     true,
		CreatedAt:    params.CreatedAtUTC,
		UpdatedAt:    params.CreatedAtUTC,
	}
	r.users[user.UserID] = user
	r.byEmail[user.Email] = user.UserID
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) SetResetTokenTx(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt, now time.Time, event ports.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.ResetTokenHash = &tokenHash
	user.ResetTokenExpires = &expiresAt
	user.UpdatedAt = now
	r.users[userID] = user
	r.events = append(r.events, event)
	return nil
}

func (r *fakeUserRepo) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, user := range r.users {
		if user.ResetTokenHash == nil || *user.ResetTokenHash != tokenHash {
			continue
		}
		if user.ResetTokenExpires == nil || !user.ResetTokenExpires.After(now) {
			continue
		}
		user.PasswordHash = passwordHash
		user.ResetTokenHash = nil
		user.ResetTokenExpires = nil
		user.UpdatedAt = now
		r.users[id] = user
		return id, nil
	}
	return uuid.Nil, domain.ErrResetTokenInvalid
}

func (r *fakeUserRepo) ClearCurrentSession(_ context.Context, userID uuid.UUID, sessionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil
	}
	if user.CurrentSessionID != nil && *user.CurrentSessionID == sessionID {
		user.CurrentSessionID = nil
		user.UpdatedAt = now
		r.users[userID] = user
	}
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	users    *fakeUserRepo
	sessions map[uuid.UUID]domain.Session
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{users: users, sessions: make(map[uuid.UUID]domain.Session)}
}

func (r *fakeSessionRepo) StartLoginTx(_ context.Context, params ports.StartSessionParams) (domain.Session, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var displaced []string
	for id, sess := range r.sessions {
		if sess.UserID == params.UserID && sess.IsActive {
			sess.IsActive = false
			r.sessions[id] = sess
			displaced = append(displaced, sess.SessionID)
		}
	}

	jti := params.AccessTokenJTI
	sess := domain.Session{
		ID:               uuid.New(),
		UserID:           params.UserID,
		SessionID:        params.SessionID,
		RefreshTokenHash: params.RefreshTokenHash,
		AccessTokenJTI:   &jti,
		IPAddress:        params.IPAddress,
		UserAgent:        params.UserAgent,
		IsActive:         true,
		CreatedAt:        params.StartedAtUTC,
		LastActivityAt:   params.StartedAtUTC,
		ExpiresAt:        params.ExpiresAt,
	}
	r.sessions[sess.ID] = sess

	r.users.mu.Lock()
	if user, ok := r.users.users[params.UserID]; ok {
		sid := params.SessionID
		at := params.StartedAtUTC
		user.CurrentSessionID = &sid
		user.LastLoginAt = &at
		user.UpdatedAt = at
		r.users.users[params.UserID] = user
	}
	r.users.mu.Unlock()

	return sess, displaced, nil
}

func (r *fakeSessionRepo) GetActive(_ context.Context, userID uuid.UUID, sessionID string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sess := range r.sessions {
		if sess.UserID == userID && sess.SessionID == sessionID && sess.IsActive {
			return sess, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (r *fakeSessionRepo) RotateAccessToken(_ context.Context, id uuid.UUID, jti string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sess.AccessTokenJTI = &jti
	sess.LastActivityAt = at
	r.sessions[id] = sess
	return nil
}

func (r *fakeSessionRepo) TouchActivity(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sess.LastActivityAt = at
	r.sessions[id] = sess
	return nil
}

func (r *fakeSessionRepo) Deactivate(_ context.Context, userID uuid.UUID, sessionID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sess := range r.sessions {
		if sess.UserID == userID && sess.SessionID == sessionID && sess.IsActive {
			sess.IsActive = false
			sess.LastActivityAt = at
			r.sessions[id] = sess
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) MarkExpired(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	sess.IsActive = false
	sess.LastActivityAt = at
	r.sessions[id] = sess
	return nil
}

type fakeRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newFakeRevocationStore() *fakeRevocationStore {
	return &fakeRevocationStore{revoked: make(map[string]time.Time)}
}

func (s *fakeRevocationStore) MarkRevoked(_ context.Context, sessionID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[sessionID] = expiresAt
	return nil
}

func (s *fakeRevocationStore) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[sessionID]
	return ok, nil
}

type fixture struct {
	t        *testing.T
	now      time.Time
	svc      *application.Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	revoked  *fakeRevocationStore
}

func newFixture(t *testing.T, mutate func(*application.Config)) *fixture {
	t.Helper()
	cfg := application.Config{
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  168 * time.Hour,
		SessionTTL:       168 * time.Hour,
		ResetTokenTTL:    time.Hour,
		ResetRetryWindow: 60 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	issuer, err := security.NewHSTokenIssuer("test-access-secret", "test-refresh-secret")
	if err != nil {
		t.Fatalf("NewHSTokenIssuer: %v", err)
	}

	fx := &fixture{
		t:       t,
		now:     time.Now().UTC().Truncate(time.Second),
		users:   newFakeUserRepo(),
		revoked: newFakeRevocationStore(),
	}
	fx.sessions = newFakeSessionRepo(fx.users)
	fx.svc = application.NewService(application.Dependencies{
		Config:      cfg,
		Users:       fx.users,
		Sessions:    fx.sessions,
		Revocations: fx.revoked,
		Hasher:      security.NewBcryptHasher(bcrypt.MinCost),
		Tokens:      issuer,
		Now:         func() time.Time { return fx.now },
	})
	return fx
}

func (fx *fixture) advance(d time.Duration) {
	fx.now = fx.now.Add(d)
}

func (fx *fixture) signup(email, password string) application.UserInfo {
	fx.t.Helper()
	user, err := fx.svc.Signup(context.Background(), application.SignupRequest{
		Email:    email,
		Password: password,
		FullName: "Test User",
	})
	if err != nil {
		fx.t.Fatalf("Signup(%s): %v", email, err)
	}
	return user
}

func (fx *fixture) login(email, password string) application.TokenPair {
	fx.t.Helper()
	pair, err := fx.svc.Login(context.Background(), application.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		fx.t.Fatalf("Login(%s): %v", email, err)
	}
	return pair
}

func (fx *fixture) resetToken(index int) string {
	fx.t.Helper()
	if index >= len(fx.users.events) {
		fx.t.Fatalf("expected outbox event %d, have %d", index, len(fx.users.events))
	}
	var note ports.PasswordResetNotification
	if err := json.Unmarshal(fx.users.events[index].Payload, &note); err != nil {
		fx.t.Fatalf("unmarshal reset payload: %v", err)
	}
	if note.Token == "" {
		fx.t.Fatal("reset payload missing token")
	}
	return note.Token
}

func TestSignupAndLogin(t *testing.T) {
	fx := newFixture(t, nil)
	info := fx.signup("alice@example.com", "password123")
	if info.Email != "alice@example.com" {
		t.Fatalf("email = %q", info.Email)
	}
	if !info.IsActive {
		t.Fatal("new account should be active")
	}

	pair := fx.login("Alice@Example.COM", "password123")
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.TokenType != "bearer" {
		t.Fatalf("token_type = %q", pair.TokenType)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("expires_in = %d", pair.ExpiresIn)
	}

	user, claims, err := fx.svc.ValidateAccessToken(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if user.UserID != info.UserID {
		t.Fatalf("validated user = %s, want %s", user.UserID, info.UserID)
	}
	if claims.SessionID == "" || claims.JTI == "" {
		t.Fatal("claims missing session id or jti")
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")

	_, err := fx.svc.Signup(context.Background(), application.SignupRequest{
		Email:    "ALICE@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")

	_, err := fx.svc.Login(context.Background(), application.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}

	_, err = fx.svc.Login(context.Background(), application.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	fx := newFixture(t, nil)
	info := fx.signup("alice@example.com", "password123")

	fx.users.mu.Lock()
	user := fx.users.users[info.UserID]
	user.IsActive = false
	fx.users.users[info.UserID] = user
	fx.users.mu.Unlock()

	_, err := fx.svc.Login(context.Background(), application.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("err = %v, want ErrAccountInactive", err)
	}
}

func TestSecondLoginDisplacesFirst(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")

	first := fx.login("alice@example.com", "password123")
	second := fx.login("alice@example.com", "password123")

	if _, _, err := fx.svc.ValidateAccessToken(context.Background(), second.AccessToken); err != nil {
		t.Fatalf("second session should validate: %v", err)
	}

	_, _, err := fx.svc.ValidateAccessToken(context.Background(), first.AccessToken)
	if !errors.Is(err, domain.ErrSessionInvalidated) {
		t.Fatalf("first session: err = %v, want ErrSessionInvalidated", err)
	}

	if len(fx.revoked.revoked) != 1 {
		t.Fatalf("revocation markers = %d, want 1", len(fx.revoked.revoked))
	}

	_, err = fx.svc.Refresh(context.Background(), first.RefreshToken)
	if !errors.Is(err, domain.ErrSessionInvalidated) {
		t.Fatalf("displaced refresh: err = %v, want ErrSessionInvalidated", err)
	}
}

func TestRefreshRotatesAccessToken(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")
	pair := fx.login("alice@example.com", "password123")

	fx.advance(time.Minute)
	refreshed, err := fx.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken != pair.RefreshToken {
		t.Fatal("refresh token should not rotate")
	}
	if refreshed.AccessToken == pair.AccessToken {
		t.Fatal("access token should rotate")
	}

	if _, _, err := fx.svc.ValidateAccessToken(context.Background(), refreshed.AccessToken); err != nil {
		t.Fatalf("new access token: %v", err)
	}

	_, _, err = fx.svc.ValidateAccessToken(context.Background(), pair.AccessToken)
	if !errors.Is(err, domain.ErrSessionInvalidated) {
		t.Fatalf("old access token: err = %v, want ErrSessionInvalidated", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")
	pair := fx.login("alice@example.com", "password123")

	_, err := fx.svc.Refresh(context.Background(), pair.AccessToken)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestRefreshTamperedToken(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")
	pair := fx.login("alice@example.com", "password123")

	parts := strings.Split(pair.RefreshToken, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err := fx.svc.Refresh(context.Background(), tampered)
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")
	pair := fx.login("alice@example.com", "password123")

	res := fx.svc.Logout(context.Background(), pair.AccessToken)
	if res.State != application.LogoutSessionCleared {
		t.Fatalf("state = %v, want LogoutSessionCleared", res.State)
	}

	_, _, err := fx.svc.ValidateAccessToken(context.Background(), pair.AccessToken)
	if !errors.Is(err, domain.ErrSessionInvalidated) {
		t.Fatalf("after logout: err = %v, want ErrSessionInvalidated", err)
	}

	again := fx.svc.Logout(context.Background(), pair.AccessToken)
	if again.State != application.LogoutNothingToClear {
		t.Fatalf("second logout state = %v, want LogoutNothingToClear", again.State)
	}

	garbage := fx.svc.Logout(context.Background(), "not-a-token")
	if garbage.State != application.LogoutNothingToClear {
		t.Fatalf("garbage token state = %v, want LogoutNothingToClear", garbage.State)
	}
}

func TestSessionLazyExpiry(t *testing.T) {
	fx := newFixture(t, func(cfg *application.Config) {
		cfg.SessionTTL = 30 * time.Minute
	})
	fx.signup("alice@example.com", "password123")
	pair := fx.login("alice@example.com", "password123")

	fx.advance(31 * time.Minute)
	_, _, err := fx.svc.ValidateAccessToken(context.Background(), pair.AccessToken)
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}

	for _, sess := range fx.sessions.sessions {
		if sess.IsActive {
			t.Fatal("expired session should be flipped inactive on reference")
		}
	}
}

func TestPasswordResetFlow(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")

	res, err := fx.svc.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if res.Outcome != application.ResetRequestAccepted {
		t.Fatalf("outcome = %v, want ResetRequestAccepted", res.Outcome)
	}

	token := fx.resetToken(0)
	err = fx.svc.ResetPassword(context.Background(), application.ResetPasswordRequest{
		Token:       token,
		NewPassword: "newpassword456",
	})
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	fx.login("alice@example.com", "newpassword456")
	_, err = fx.svc.Login(context.Background(), application.LoginRequest{
		Email:    "alice@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password: err = %v, want ErrInvalidCredentials", err)
	}

	err = fx.svc.ResetPassword(context.Background(), application.ResetPasswordRequest{
		Token:       token,
		NewPassword: "anotherpass789",
	})
	if !errors.Is(err, domain.ErrResetTokenInvalid) {
		t.Fatalf("token replay: err = %v, want ErrResetTokenInvalid", err)
	}
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	fx := newFixture(t, nil)

	res, err := fx.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if res.Outcome != application.ResetRequestAccepted {
		t.Fatalf("outcome = %v, want ResetRequestAccepted", res.Outcome)
	}
	if len(fx.users.events) != 0 {
		t.Fatalf("events = %d, want 0", len(fx.users.events))
	}
}

func TestPasswordResetThrottle(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")

	if _, err := fx.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	fx.advance(10 * time.Second)
	res, err := fx.svc.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if res.Outcome != application.ResetRequestThrottled {
		t.Fatalf("outcome = %v, want ResetRequestThrottled", res.Outcome)
	}
	if res.RetryAfter != 50*time.Second {
		t.Fatalf("retry after = %s, want 50s", res.RetryAfter)
	}
	if len(fx.users.events) != 1 {
		t.Fatalf("events = %d, want 1", len(fx.users.events))
	}

	fx.advance(51 * time.Second)
	res, err = fx.svc.RequestPasswordReset(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("third request: %v", err)
	}
	if res.Outcome != application.ResetRequestAccepted {
		t.Fatalf("outcome after window = %v, want ResetRequestAccepted", res.Outcome)
	}
	if len(fx.users.events) != 2 {
		t.Fatalf("events = %d, want 2", len(fx.users.events))
	}

	if fx.resetToken(0) == fx.resetToken(1) {
		t.Fatal("replacement token should differ")
	}
}

func TestPasswordResetKeepsSessionsAlive(t *testing.T) {
	fx := newFixture(t, nil)
	fx.signup("alice@example.com", "password123")
	pair := fx.login("alice@example.com", "password123")

	if _, err := fx.svc.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	err := fx.svc.ResetPassword(context.Background(), application.ResetPasswordRequest{
		Token:       fx.resetToken(0),
		NewPassword: "newpassword456",
	})
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// A password reset replaces the credential only. The live session and its
	// tokens keep working until logout, displacement or expiry.
	if _, _, err := fx.svc.ValidateAccessToken(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("session after reset: %v", err)
	}
	if _, err := fx.svc.Refresh(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh after reset: %v", err)
	}
}

func TestSignupRejectsBadInput(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.svc.Signup(context.Background(), application.SignupRequest{
		Email:    "not-an-email",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad email: err = %v, want ErrInvalidInput", err)
	}

	_, err = fx.svc.Signup(context.Background(), application.SignupRequest{
		Email:    "alice@example.com",
		Password: "short",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("short password: err = %v, want ErrInvalidInput", err)
	}
}
