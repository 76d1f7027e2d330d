package auth

// Gate converts a raw request credential into capability decisions. It owns
// no data: resolution is a pure function of (token, signing secret), so a
// single Gate is safe for concurrent use across requests.
type Gate struct {
	validator TokenValidator
	logger    Logger
	debug     bool
}

// GateOption customizes gate construction.
type GateOption func(*Gate)

// WithGateLogger overrides the logger used for resolution failures.
func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGateDebug enables debug logging of token previews on resolution
// failures. Disabled by default; previews never include a full credential.
func WithGateDebug(debug bool) GateOption {
	return func(g *Gate) {
		g.debug = debug
	}
}

// NewGate creates an access gate over the given token validator.
func NewGate(validator TokenValidator, opts ...GateOption) *Gate {
	g := &Gate{
		validator: validator,
		logger:    defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// ResolveCaller resolves a raw credential into a caller context. Every
// failure mode, missing token, bad signature, expiry, malformed structure,
// missing secret, terminates in the anonymous caller; verification errors
// never propagate to request handlers.
func (g *Gate) ResolveCaller(rawCredential string) *CallerContext {
	if rawCredential == "" {
		return AnonymousCaller()
	}

	claims, err := g.validator.Validate(rawCredential)
	if err != nil {
		if g.debug {
			g.logger.Debug("gate rejected credential", "token", tokenPreview(rawCredential), "error", err)
		}
		return AnonymousCaller()
	}

	caller, err := callerFromAuthClaims(claims)
	if err != nil {
		g.logger.Warn("gate could not map verified claims", "error", err)
		return AnonymousCaller()
	}

	return caller
}

// RequireAuthenticated fails with an unauthenticated error when the caller
// carries no valid credential.
func (g *Gate) RequireAuthenticated(caller *CallerContext) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// RequireRole demands an exact role match. There is no role hierarchy:
// an ADMIN gate admits ADMIN and nobody else, and MANAGER is never treated
// as a superset of USER.
func (g *Gate) RequireRole(caller *CallerContext, role UserRole) error {
	if err := g.RequireAuthenticated(caller); err != nil {
		return err
	}

	if !caller.HasRole(role) {
		return annotate(ErrForbidden, map[string]any{
			"required_role": role,
		})
	}

	return nil
}

// RequireSelf admits only the target user themselves, regardless of role.
// Password reset uses this rule; an ADMIN targeting another user's id is
// still rejected.
func (g *Gate) RequireSelf(caller *CallerContext, targetUserID string) error {
	if err := g.RequireAuthenticated(caller); err != nil {
		return err
	}

	if !caller.IsSelf(targetUserID) {
		return annotate(ErrForbidden, map[string]any{
			"reason": "self-service operation",
		})
	}

	return nil
}
