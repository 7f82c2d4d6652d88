package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess   ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure   ActivityEventType = "auth.login.failure"
	ActivityEventTokenRejected  ActivityEventType = "auth.token.rejected"
	ActivityEventTokenIssued    ActivityEventType = "auth.token.issued"
	ActivityEventTokenRefreshed ActivityEventType = "auth.token.refreshed"
)

// RejectionReason is the internal cause of a rejection. Callers only
// ever see ErrUnauthorized; the reason goes to logs and activity sinks.
type RejectionReason string

const (
	ReasonUserNotFound     RejectionReason = "user_not_found"
	ReasonPasswordMismatch RejectionReason = "password_mismatch"
	ReasonUserInvalid      RejectionReason = "user_invalid"
	ReasonTokenInvalid     RejectionReason = "token_invalid"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Reason     RejectionReason
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
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
