package auth

import (
	"context"
	"time"
)

// ActivityEventType names an auditable action in the auth subsystem.
type ActivityEventType string

const (
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventImpersonationSuccess ActivityEventType = "auth.impersonation.success"
	ActivityEventImpersonationFailure ActivityEventType = "auth.impersonation.failure"
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password.reset"
	ActivityEventUserCreated          ActivityEventType = "user.created"
	ActivityEventUserStatusChanged    ActivityEventType = "user.status.changed"
)

// ActivityEvent is one audit record: who did what to whom, and when. Status
// transitions additionally carry the from/to pair. Events are emitted after
// the action succeeds or fails, never speculatively.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus UserStatus
	ToStatus   UserStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives audit events. Implementations must tolerate being
// called from request paths, a slow sink slows logins.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a plain function to ActivitySink. A nil function
// swallows events.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

// normalizeActivitySink guarantees components can emit without nil checks.
func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
