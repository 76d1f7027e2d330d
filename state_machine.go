package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// Legal lifecycle moves. SUSPENDED keeps a timestamp, INACTIVE is terminal
// except for reactivation, and no state reaches itself (same-status calls are
// a no-op before this table is consulted).
var allowedTransitions = map[UserStatus][]UserStatus{
	UserStatusActive:    {UserStatusSuspended, UserStatusInactive},
	UserStatusSuspended: {UserStatusActive, UserStatusInactive},
	UserStatusInactive:  {UserStatusActive},
}

// ActorRef identifies who or what triggered a transition. An empty ref is
// recorded as the system actor.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionMetadata carries the reason and any extra context for an audit
// record.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// UserStateMachine moves accounts between ACTIVE, INACTIVE and SUSPENDED,
// persisting the change and emitting an audit event per move.
type UserStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error)
	CurrentStatus(user *User) UserStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *userStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the sink receiving lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses the legality table. Reserved for data repair
// tooling, not request paths.
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithSuspensionTime overrides the timestamp recorded when entering the
// suspended state.
func WithSuspensionTime(t time.Time) TransitionOption {
	return func(opts *transitionOptions) {
		opts.suspensionTime = &t
	}
}

// NewUserStateMachine returns the default implementation backed by the given
// store.
func NewUserStateMachine(users UserStore, opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		users:        users,
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	users        UserStore
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata       TransitionMetadata
	force          bool
	suspensionTime *time.Time
}

func (sm *userStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error) {
	if user == nil {
		return nil, annotate(ErrInvalidTransition, map[string]any{
			"target": target,
			"reason": "user is nil",
		})
	}

	user.EnsureStatus()
	from := user.Status

	if !target.IsValid() {
		return nil, annotate(ErrInvalidTransition, map[string]any{
			"target": target,
			"reason": "target status is unknown",
		})
	}

	if from == target {
		return user, nil
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	if !options.force && !transitionAllowed(from, target) {
		return nil, annotate(ErrInvalidTransition, map[string]any{
			"from": from,
			"to":   target,
		})
	}

	suspendedAt := sm.suspensionTimestamp(user, target, options)

	updated, err := sm.users.UpdateStatus(ctx, user.ID.String(), target, suspendedAt)
	if err != nil {
		return nil, err
	}

	// Fold the persisted row back into the caller's copy so both views agree.
	if updated != nil {
		user.Status = target
		if updated.Status != "" {
			user.Status = updated.Status
		}
		user.SuspendedAt = updated.SuspendedAt
	} else {
		user.Status = target
		user.SuspendedAt = suspendedAt
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventUserStatusChanged,
		Actor:      actor,
		UserID:     user.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   auditMetadata(options.metadata),
	})

	return user, nil
}

func (sm *userStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	user.EnsureStatus()
	return user.Status
}

func transitionAllowed(from, to UserStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// suspensionTimestamp picks the suspended_at value to persist: the explicit
// override, the existing timestamp, or now. Non-suspended targets always
// clear it.
func (sm *userStateMachine) suspensionTimestamp(user *User, target UserStatus, opts *transitionOptions) *time.Time {
	if target != UserStatusSuspended {
		return nil
	}
	if opts.suspensionTime != nil {
		return opts.suspensionTime
	}
	if user.SuspendedAt != nil {
		return user.SuspendedAt
	}
	now := sm.now()
	return &now
}

func (sm *userStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

// auditMetadata flattens the transition metadata into the event payload,
// copying so later mutation of the options cannot rewrite history.
func auditMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := make(map[string]any, len(meta.Metadata)+1)
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
