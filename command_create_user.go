package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// CreateUserMessage carries the attributes of a new account. Role and Status
// default to USER and ACTIVE when empty; anything outside the known sets is
// rejected before touching the store.
type CreateUserMessage struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	UseHashid bool       `json:"-"`

	OnResponse func(*UserProjection) `json:"-"`
}

func (e CreateUserMessage) Type() string { return "user.create" }

type CreateUserHandler struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
	actor        ActorRef
}

func NewCreateUserHandler(repo RepositoryManager) *CreateUserHandler {
	return &CreateUserHandler{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *CreateUserHandler) WithLogger(logger Logger) *CreateUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateUserHandler) WithActivitySink(sink ActivitySink) *CreateUserHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

// WithActor attributes created accounts to the acting admin in audit events.
func (h *CreateUserHandler) WithActor(actor ActorRef) *CreateUserHandler {
	h.actor = actor
	return h
}

func (h *CreateUserHandler) Execute(ctx context.Context, event CreateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateUserHandler) execute(ctx context.Context, event CreateUserMessage) error {
	if err := h.validate(event); err != nil {
		return err
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Role = event.Role
		user.Status = event.Status
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().InsertTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user creation transaction failed")
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		projection := user.Projection()
		event.OnResponse(&projection)
	}

	return nil
}

func (h *CreateUserHandler) validate(event CreateUserMessage) error {
	if event.Role != "" && !event.Role.IsValid() {
		return goerrors.New("unknown user role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"role":  event.Role,
				"known": GetAllRoles(),
			})
	}

	if event.Status != "" && !event.Status.IsValid() {
		return goerrors.New("unknown user status", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"status": event.Status,
				"known":  GetAllStatuses(),
			})
	}

	return nil
}

func (h *CreateUserHandler) recordActivity(ctx context.Context, user *User) {
	sink := normalizeActivitySink(h.activitySink)

	actor := h.actor
	if actor == (ActorRef{}) {
		actor = ActorRef{Type: "system"}
	}

	err := sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventUserCreated,
		Actor:      actor,
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
		Metadata: map[string]any{
			"email": user.Email,
			"role":  user.Role,
		},
	})

	if err != nil && h.logger != nil {
		h.logger.Warn("create user activity sink error: %v", err)
	}
}
