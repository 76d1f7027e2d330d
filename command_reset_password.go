package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// MinPasswordLength is the shortest password the reset flow accepts.
const MinPasswordLength = 8

// ResetPasswordMessage replaces the target user's password. Authorization is
// the caller's problem; by the time this handler runs the gate has already
// established the caller is the target user.
type ResetPasswordMessage struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`

	OnResponse func(*UserProjection) `json:"-"`
}

func (e ResetPasswordMessage) Type() string { return "user.password.reset" }

type ResetPasswordHandler struct {
	repo         RepositoryManager
	logger       Logger
	activitySink ActivitySink
}

func NewResetPasswordHandler(repo RepositoryManager) *ResetPasswordHandler {
	return &ResetPasswordHandler{
		repo:         repo,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (h *ResetPasswordHandler) WithLogger(logger Logger) *ResetPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResetPasswordHandler) WithActivitySink(sink ActivitySink) *ResetPasswordHandler {
	h.activitySink = normalizeActivitySink(sink)
	return h
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	if len(event.Password) < MinPasswordLength {
		return goerrors.New("password is too short", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"min_length": MinPasswordLength,
			})
	}

	var updated *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().FindByIDTx(ctx, tx, event.UserID)
		if err != nil {
			return err
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		updated, err = h.repo.Users().UpdatePasswordTx(ctx, tx, user.ID.String(), hash)
		if err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	h.recordActivity(ctx, updated)

	if event.OnResponse != nil {
		projection := updated.Projection()
		event.OnResponse(&projection)
	}

	return nil
}

func (h *ResetPasswordHandler) recordActivity(ctx context.Context, user *User) {
	sink := normalizeActivitySink(h.activitySink)

	err := sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetSuccess,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	})

	if err != nil && h.logger != nil {
		h.logger.Warn("password reset activity sink error: %v", err)
	}
}
