package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/salespoint/go-auth/middleware/tokenware"
)

// SessionCookieName is the cookie carrying the session token for browser
// based clients. API clients use the Authorization header instead.
const SessionCookieName = "token"

// LoginPayload is the credential surface of a login request.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// RouteAuthenticator wires the authenticator into HTTP routes: it sets and
// clears the session cookie, guards protected routes, and renders errors as
// JSON payloads.
type RouteAuthenticator struct {
	auth           Authenticator
	cfg            Config
	validator      TokenValidator
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := DefaultTokenTTLHours * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	if provider, ok := auther.(interface{ TokenService() TokenService }); ok {
		a.validator = provider.TokenService()
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// WithTokenValidator overrides the validator used by ProtectedRoute.
func (a *RouteAuthenticator) WithTokenValidator(validator TokenValidator) *RouteAuthenticator {
	if validator != nil {
		a.validator = validator
	}
	return a
}

// ProtectedRoute guards a route group with token validation. requiredRole is
// optional; when set the route demands that exact role.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(router.Context, error) error, requiredRole ...UserRole) router.MiddlewareFunc {
	role := ""
	if len(requiredRole) > 0 {
		role = string(requiredRole[0])
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return tokenware.New(tokenware.Config{
			ErrorHandler:   errorHandler,
			TokenValidator: routeTokenValidator{validator: a.validator},
			SigningKey: tokenware.SigningKey{
				Key:    []byte(a.cfg.GetSigningKey()),
				JWTAlg: a.cfg.GetSigningMethod(),
			},
			AuthScheme:   a.cfg.GetAuthScheme(),
			ContextKey:   a.cfg.GetContextKey(),
			TokenLookup:  a.cfg.GetTokenLookup(),
			RequiredRole: role,
		})(hf)
	}
}

// Login authenticates the payload and, on success, sets the session cookie.
// The token is also returned so JSON clients can carry it as a bearer header.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return "", err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return token, nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, SessionCookieName)
}

// MakeRouteAuthErrorHandler renders token failures as JSON. With optional set
// the request proceeds unauthenticated instead of failing.
func (a *RouteAuthenticator) MakeRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     SessionCookieName,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	return WriteError(c, a.Logger, err)
}

// WriteError maps a domain error onto an HTTP response: status from the error
// code or category, body carrying the message, stable text code, and any
// metadata as details.
func WriteError(c router.Context, logger Logger, err error) error {
	richErr := asRichError(err)

	if logger != nil {
		logger.Info(
			"request error",
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	}

	body := map[string]any{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}
	if len(richErr.Metadata) > 0 {
		body["details"] = richErr.Metadata
	}

	return c.JSON(statusFromError(richErr), body)
}

func asRichError(err error) *errors.Error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}
	return richErr
}

func statusFromError(richErr *errors.Error) int {
	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// routeTokenValidator adapts the root validator to the middleware contract.
type routeTokenValidator struct {
	validator TokenValidator
}

func (r routeTokenValidator) Validate(tokenString string) (tokenware.AuthClaims, error) {
	if r.validator == nil {
		return nil, ErrMissingSigningSecret
	}

	claims, err := r.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	return claims, nil
}
