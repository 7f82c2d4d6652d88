package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// dummyPassword is hashed once and verified against on store misses so
// unknown credentials cost the same as a wrong password
const dummyPassword = "authflow-timing-dummy"

// Auther composes the store, hasher, token codec and validation service
// into the login and current user flows.
//
// Every rejection surfaces as ErrUnauthorized. Store, hasher and
// unclassified validator failures surface as *UnavailableError.
type Auther struct {
	credentialType CredentialType
	accessTTL      time.Duration
	refreshTTL     time.Duration
	store          UserStore
	hasher         PasswordHasher
	tokens         TokenCodec
	validation     ValidationService
	logger         Logger
	activitySink   ActivitySink
	clock          Clock
	dummyHash      atomic.Pointer[string]
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(cfg Config, store UserStore, hasher PasswordHasher, tokens TokenCodec, validation ValidationService) *Auther {
	if validation == nil {
		validation = NewValidatorChain()
	}

	credentialType := cfg.CredentialType
	if credentialType == "" {
		credentialType = CredentialEmail
	}

	return &Auther{
		credentialType: credentialType,
		accessTTL:      cfg.AccessTokenTTL(),
		refreshTTL:     cfg.RefreshTokenTTL(),
		store:          store,
		hasher:         hasher,
		tokens:         tokens,
		validation:     validation,
		logger:         NopLogger(),
		activitySink:   noopActivitySink{},
		clock:          SystemClock{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock sets the clock used to compute token pair expiry
func (s *Auther) WithClock(clock Clock) *Auther {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// CredentialType returns the configured credential matching mode
func (s *Auther) CredentialType() CredentialType {
	return s.credentialType
}

// Login looks the user up by credential, verifies the password and runs
// the validation service. Any rejection returns ErrInvalidCredentials,
// which matches ErrUnauthorized.
func (s *Auther) Login(ctx context.Context, credential, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fault(ctx, "login.start", err)
	}

	user, err := FindByCredential(ctx, s.store, s.credentialType, credential)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, s.fault(ctx, "login.lookup", err)
		}

		if _, err := s.hasher.Verify(ctx, password, s.dummy(ctx)); err != nil {
			return nil, s.fault(ctx, "login.verify_password", err)
		}

		s.rejectLogin(ctx, ReasonUserNotFound, "", credential)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		return nil, s.fault(ctx, "login.verify_password", err)
	}

	if !ok {
		s.rejectLogin(ctx, ReasonPasswordMismatch, user.PublicID, credential)
		return nil, ErrInvalidCredentials
	}

	valid, err := s.validation.IsUserValid(ctx, user)
	if err != nil {
		return nil, s.fault(ctx, "login.validate_user", err)
	}

	if !valid {
		s.rejectLogin(ctx, ReasonUserInvalid, user.PublicID, credential)
		return nil, ErrInvalidCredentials
	}

	s.logger.Debug("login succeeded", "user", user.PublicID)
	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, user.PublicID, "", map[string]any{
		"credential_type": string(s.credentialType),
	})

	return user, nil
}

// ResolveCurrentUser returns the user behind an access token or
// ErrUnauthorized when the token or the user is rejected.
func (s *Auther) ResolveCurrentUser(ctx context.Context, token string) (*User, error) {
	user, reason, err := s.resolve(ctx, token, TokenKindAccess)
	if err != nil {
		return nil, err
	}

	if reason != "" {
		return nil, ErrUnauthorized
	}

	return user, nil
}

// TryResolveCurrentUser is ResolveCurrentUser for endpoints that accept
// anonymous callers: a rejection returns (nil, nil). Faults still error.
func (s *Auther) TryResolveCurrentUser(ctx context.Context, token string) (*User, error) {
	user, reason, err := s.resolve(ctx, token, TokenKindAccess)
	if err != nil {
		return nil, err
	}

	if reason != "" {
		return nil, nil
	}

	return user, nil
}

// IssueTokens signs a new access and refresh token for user
func (s *Auther) IssueTokens(ctx context.Context, user *User) (*TokenPair, error) {
	if err := ctx.Err(); err != nil {
		return nil, s.fault(ctx, "tokens.start", err)
	}

	if user == nil || user.PublicID == "" {
		return nil, ErrUnauthorized
	}

	now := s.clock.Now()
	claims := Claims{Subject: user.PublicID}

	access, err := s.tokens.Issue(TokenKindAccess, claims, s.accessTTL)
	if err != nil {
		return nil, s.fault(ctx, "tokens.issue_access", err)
	}

	refresh, err := s.tokens.Issue(TokenKindRefresh, claims, s.refreshTTL)
	if err != nil {
		return nil, s.fault(ctx, "tokens.issue_refresh", err)
	}

	s.emitAuthEvent(ctx, ActivityEventTokenIssued, user.PublicID, "", nil)

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "bearer",
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}, nil
}

// Refresh exchanges a refresh token for a new token pair. The user is
// looked up and validated again, so a deactivated user cannot refresh.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	user, reason, err := s.resolve(ctx, refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	if reason != "" {
		return nil, ErrUnauthorized
	}

	pair, err := s.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventTokenRefreshed, user.PublicID, "", nil)
	return pair, nil
}

// resolve runs verify, lookup and validation. A non empty reason is a
// rejection; a non nil error is a fault.
func (s *Auther) resolve(ctx context.Context, token string, kind TokenKind) (*User, RejectionReason, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", s.fault(ctx, "resolve.start", err)
	}

	claims, err := s.tokens.Verify(token, kind)
	if err != nil {
		if !errors.Is(err, ErrTokenInvalid) {
			return nil, "", s.fault(ctx, "tokens.verify", err)
		}
		s.logger.Debug("token rejected", "reason", ReasonTokenInvalid, "kind", kind, "error", err)
		s.emitAuthEvent(ctx, ActivityEventTokenRejected, "", ReasonTokenInvalid, map[string]any{
			"kind":  string(kind),
			"error": err.Error(),
		})
		return nil, ReasonTokenInvalid, nil
	}

	user, err := s.store.GetByPublicID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, "", s.fault(ctx, "resolve.lookup", err)
		}
		s.rejectToken(ctx, ReasonUserNotFound, claims.Subject, kind)
		return nil, ReasonUserNotFound, nil
	}

	valid, err := s.validation.IsUserValid(ctx, user)
	if err != nil {
		return nil, "", s.fault(ctx, "resolve.validate_user", err)
	}

	if !valid {
		s.rejectToken(ctx, ReasonUserInvalid, user.PublicID, kind)
		return nil, ReasonUserInvalid, nil
	}

	return user, "", nil
}

// dummy returns the hash verified against on store misses. Concurrent
// first callers may each compute one; the first stored wins.
func (s *Auther) dummy(ctx context.Context) string {
	if h := s.dummyHash.Load(); h != nil {
		return *h
	}

	hashed, err := s.hasher.Hash(ctx, dummyPassword)
	if err != nil {
		s.logger.Warn("dummy hash unavailable", "error", err)
		return ""
	}

	s.dummyHash.CompareAndSwap(nil, &hashed)
	return *s.dummyHash.Load()
}

func (s *Auther) rejectLogin(ctx context.Context, reason RejectionReason, userID, credential string) {
	s.logger.Info("login rejected", "reason", reason, "user", userID)
	s.emitAuthEvent(ctx, ActivityEventLoginFailure, userID, reason, map[string]any{
		"credential":      credential,
		"credential_type": string(s.credentialType),
	})
}

func (s *Auther) rejectToken(ctx context.Context, reason RejectionReason, userID string, kind TokenKind) {
	s.logger.Info("token user rejected", "reason", reason, "user", userID, "kind", kind)
	s.emitAuthEvent(ctx, ActivityEventTokenRejected, userID, reason, map[string]any{
		"kind": string(kind),
	})
}

func (s *Auther) fault(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("auth flow abandoned", "op", op, "error", err)
	} else {
		s.logger.Error("auth flow failed", "op", op, "error", err)
	}
	return unavailable(op, err)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID string, reason RejectionReason, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Reason:     reason,
		Metadata:   metadata,
		OccurredAt: s.clock.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}

var _ Authenticator = (*Auther)(nil)
