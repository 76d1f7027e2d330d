package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AuthControllerRoutes holds the route paths the controller registers.
type AuthControllerRoutes struct {
	Login string
	Users string
}

// AuthController exposes the protected user management API: login, list
// users, create user, and self-service password reset. Authorization runs
// through the Gate inside each handler so a route misconfiguration fails
// closed rather than open.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       *RouteAuthenticator
	Gate         *Gate
	ActivitySink ActivitySink
	ContextKey   string
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ActivitySink = normalizeActivitySink(sink)
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ActivitySink: noopActivitySink{},
		ContextKey:   "user",
		Routes: &AuthControllerRoutes{
			Login: "/login",
			Users: "/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	if c.ContextKey == "" {
		c.ContextKey = c.Auther.cfg.GetContextKey()
	}

	if c.Gate == nil {
		c.Gate = NewGate(c.Auther.validator, WithGateLogger(c.Logger))
	}

	if c.ErrorHandler == nil {
		logger := c.Logger
		c.ErrorHandler = func(ctx router.Context, err error) error {
			return WriteError(ctx, logger, err)
		}
	}

	return c
}

// RegisterAuthRoutes mounts the controller. The login route is public; the
// user management routes sit behind the token middleware, with role and self
// checks enforced again inside the handlers.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Auther.MakeRouteAuthErrorHandler(false),
	)

	app.
		Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")

	app.
		Get(controller.Routes.Users, protected(controller.ListUsers)).
		SetName("users.list")

	app.
		Post(controller.Routes.Users, protected(controller.CreateUser)).
		SetName("users.create")

	app.
		Post(fmt.Sprintf("%s/:id/password", controller.Routes.Users), protected(controller.ResetPassword)).
		SetName("users.password.post")
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: ", "error", err)
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login validate payload: ", "error", err)
		return a.ErrorHandler(ctx, validationError(err))
	}

	if a.Debug {
		a.Logger.Debug("login attempt", "email", payload.Email)
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"token": token,
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "signed out",
	})
}

func (a *AuthController) ListUsers(ctx router.Context) error {
	caller := CallerFromRouter(ctx, a.ContextKey)
	if err := a.Gate.RequireRole(caller, RoleAdmin); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	users, err := a.Repo.Users().List(ctx.Context())
	if err != nil {
		a.Logger.Error("list users error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	records := make([]UserProjection, 0, len(users))
	for _, user := range users {
		records = append(records, user.Projection())
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"users": records,
	})
}

// CreateUserRequest payload
type CreateUserRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Role     string `form:"role" json:"role"`
	Status   string `form:"status" json:"status"`
}

// Validate will validate the payload
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(&r.Role, validation.In(rolesAsAny()...)),
		validation.Field(&r.Status, validation.In(statusesAsAny()...)),
	)
}

func (a *AuthController) CreateUser(ctx router.Context) error {
	caller := CallerFromRouter(ctx, a.ContextKey)
	if err := a.Gate.RequireRole(caller, RoleAdmin); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(CreateUserRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("create user parse payload: ", "error", err)
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("create user validate payload: ", "error", err)
		return a.ErrorHandler(ctx, validationError(err))
	}

	if a.Debug {
		a.Logger.Debug("create user", "payload", print.MaybePrettyJSON(map[string]any{
			"email":  payload.Email,
			"role":   payload.Role,
			"status": payload.Status,
		}))
	}

	var record *UserProjection
	msg := CreateUserMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Role:     UserRole(payload.Role),
		Status:   UserStatus(payload.Status),
		OnResponse: func(p *UserProjection) {
			record = p
		},
	}

	createUser := NewCreateUserHandler(a.Repo).
		WithLogger(a.Logger).
		WithActivitySink(a.ActivitySink).
		WithActor(ActorRef{ID: caller.GetUserID(), Type: "user"})

	if err := createUser.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("create user error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"message": "user created",
		"user":    record,
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(MinPasswordLength, 100),
		),
	)
}

// ResetPassword replaces the target user's password. Only the target user
// themselves passes the gate; an admin targeting someone else gets a 403.
func (a *AuthController) ResetPassword(ctx router.Context) error {
	targetID := ctx.Param("id")

	caller := CallerFromRouter(ctx, a.ContextKey)
	if err := a.Gate.RequireSelf(caller, targetID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload: ", "error", err)
		return a.ErrorHandler(ctx, bindError(err))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("reset password validate payload: ", "error", err)
		return a.ErrorHandler(ctx, validationError(err))
	}

	var record *UserProjection
	msg := ResetPasswordMessage{
		UserID:   targetID,
		Password: payload.Password,
		OnResponse: func(p *UserProjection) {
			record = p
		},
	}

	resetPassword := NewResetPasswordHandler(a.Repo).
		WithLogger(a.Logger).
		WithActivitySink(a.ActivitySink)

	if err := resetPassword.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("reset password error: ", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": "password updated",
		"user":    record,
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map for JSON error payloads.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verr, ok := err.(validation.Errors); ok {
		for field, ferr := range verr {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func bindError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request payload").
		WithCode(goerrors.CodeBadRequest)
}

func validationError(err error) error {
	return goerrors.New("invalid request payload", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"validation": FormatValidationErrorToMap(err),
		})
}

func rolesAsAny() []any {
	roles := GetAllRoles()
	out := make([]any, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

func statusesAsAny() []any {
	statuses := GetAllStatuses()
	out := make([]any, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
