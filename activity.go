package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserRegistered     ActivityEventType = "user.registered"
	ActivityEventEmailVerified      ActivityEventType = "user.email.verified"
	ActivityEventUserStatusChanged  ActivityEventType = "user.status.changed"
	ActivityEventLoginSuccess       ActivityEventType = "identity.login.success"
	ActivityEventLoginFailure       ActivityEventType = "identity.login.failure"
	ActivityEventPasswordReset      ActivityEventType = "identity.password.reset"
	ActivityEventVerificationIssued ActivityEventType = "identity.verification.issued"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	FromStatus Status
	ToStatus   Status
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
