package auth

import (
	"context"
	"reflect"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auther composes the identity provider and the token service into the login
// flow: verify credentials, issue a signed session token.
type Auther struct {
	provider        IdentityProvider
	tokenService    TokenService
	tokenValidator  TokenValidator
	logger          Logger
	activitySink    ActivitySink
	claimsDecorator ClaimsDecorator
}

// NewAuthenticator returns a new Authenticator. It fails when the signing
// secret is missing, misconfiguration must be caught before serving traffic.
func NewAuthenticator(provider IdentityProvider, opts Config) (*Auther, error) {
	tokenService, err := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		jwt.ClaimStrings(opts.GetAudience()),
		defLogger{},
	)
	if err != nil {
		return nil, err
	}

	return &Auther{
		provider:        provider,
		tokenService:    tokenService,
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
		claimsDecorator: noopClaimsDecorator{},
	}, nil
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

// WithClaimsDecorator configures a ClaimsDecorator for enriching issued tokens.
func (s *Auther) WithClaimsDecorator(decorator ClaimsDecorator) *Auther {
	s.claimsDecorator = normalizeClaimsDecorator(decorator)
	return s
}

// WithTokenValidator sets a custom token validator for externally issued tokens.
func (s *Auther) WithTokenValidator(validator TokenValidator) *Auther {
	s.tokenValidator = validator
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the email/password pair and returns a signed session token.
// Every outcome, success or failure, leaves an audit event behind.
func (s *Auther) Login(ctx context.Context, email, password string) (string, error) {
	fail := func(identity Identity, failure error, extra map[string]any) {
		meta := map[string]any{"email": email, "error": failure.Error()}
		for k, v := range extra {
			meta[k] = v
		}
		userID := ""
		if identity != nil {
			userID = identity.ID()
		}
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), userID, meta)
	}

	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		fail(nil, err, nil)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		fail(nil, ErrIdentityNotFound, nil)
		return "", ErrIdentityNotFound
	}

	if status, err := s.ensureIdentityActive(identity); err != nil {
		s.logger.Warn("Login blocked due to user status", "status", status, "error", err)
		fail(identity, err, map[string]any{"status": status})
		return "", err
	}

	token, err := s.generateToken(ctx, identity)
	if err != nil {
		fail(identity, err, nil)
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"email": email,
	})

	return token, nil
}

// Impersonate issues a session token for the given user without a password
// check. Callers are responsible for gating this behind their own authority
// checks; the authenticator only records the act.
func (s *Auther) Impersonate(ctx context.Context, identifier string) (string, error) {
	fail := func(userID string, failure error, extra map[string]any) {
		meta := map[string]any{"identifier": identifier, "error": failure.Error()}
		for k, v := range extra {
			meta[k] = v
		}
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, ActorRef{Type: "system"}, userID, meta)
	}

	identity, err := s.provider.FindIdentityByIdentifier(ctx, identifier)
	if err != nil {
		s.logger.Error("Impersonate find identity error", "error", err)
		fail("", err, nil)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Impersonate identity is nil")
		fail("", ErrIdentityNotFound, nil)
		return "", ErrIdentityNotFound
	}

	if status, err := s.ensureIdentityActive(identity); err != nil {
		s.logger.Warn("Impersonation blocked due to user status", "status", status, "error", err)
		fail(identity.ID(), err, map[string]any{"status": status})
		return "", err
	}

	token, err := s.generateToken(ctx, identity)
	if err != nil {
		fail(identity.ID(), err, nil)
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventImpersonationSuccess, ActorRef{Type: "system"}, identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// CallerFromToken verifies a raw token and returns the resolved caller.
func (s *Auther) CallerFromToken(raw string) (*CallerContext, error) {
	validator := s.tokenValidator
	if validator == nil {
		validator = s.tokenService
	}

	claims, err := validator.Validate(raw)
	if err != nil {
		s.logger.Error("CallerFromToken validation failed", "error", err)
		return nil, err
	}

	caller, err := callerFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("CallerFromToken failed to map claims", "error", err)
		return nil, err
	}

	return caller, nil
}

// IdentityFromCaller re-resolves the caller against the store, e.g. to pick
// up role or status changes made after the token was issued.
func (s *Auther) IdentityFromCaller(ctx context.Context, caller *CallerContext) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, caller.GetUserID())
	if err != nil {
		s.logger.Error("IdentityFromCaller find identity by identifier", "error", err)
		return nil, err
	}

	return identity, nil
}

var _ Authenticator = (*Auther)(nil)

func (s *Auther) generateToken(ctx context.Context, identity Identity) (string, error) {
	claims := s.newClaims(identity)
	snapshot := captureImmutableClaims(claims)

	decorator := normalizeClaimsDecorator(s.claimsDecorator)
	if err := decorator.Decorate(ctx, identity, claims); err != nil {
		s.logger.Error("claims decorator failed", "error", err)
		return "", err
	}

	if err := snapshot.validate(claims); err != nil {
		s.logger.Error("claims decorator mutated immutable claims", "error", err)
		return "", err
	}

	return s.tokenService.SignClaims(claims)
}

func (s *Auther) newClaims(identity Identity) *JWTClaims {
	defaults := tokenDefaults{ttl: DefaultTokenTTLHours * time.Hour}
	if provider, ok := s.tokenService.(tokenDefaultsProvider); ok {
		defaults = provider.tokenDefaults()
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaults.issuer,
			Subject:   identity.ID(),
			Audience:  defaults.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(defaults.ttl)),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

func (s *Auther) ensureIdentityActive(identity Identity) (UserStatus, error) {
	status, ok := identityStatus(identity)
	if !ok {
		return "", nil
	}

	if status == "" {
		status = UserStatusActive
	}

	if err := statusAuthError(status); err != nil {
		return status, err
	}

	return status, nil
}

type statusAwareIdentity interface {
	Status() UserStatus
}

func identityStatus(identity Identity) (UserStatus, bool) {
	if identity == nil {
		return "", false
	}

	if sa, ok := identity.(statusAwareIdentity); ok {
		return sa.Status(), true
	}

	return "", false
}
