package chat

import (
	"context"
	"time"

	"guardian/internal/limits"
	"guardian/internal/moderation"
	"guardian/internal/safety"
	"guardian/pkg/domain"
)

// Moderator scores one message against the child's safety level.
type Moderator interface {
	Evaluate(ctx context.Context, message string, level domain.SafetyLevel) (moderation.Result, error)
}

// Limiter reserves one interaction slot for the child.
type Limiter interface {
	CheckAndReserve(ctx context.Context, childID domain.ChildID, age int, now time.Time) (limits.LimitResult, error)
}

// ConsentChecker rejects the request when the required consent scope is not
// actively granted.
type ConsentChecker interface {
	Require(ctx context.Context, childID domain.ChildID, scope domain.ConsentScope) error
}

// ProfileDirectory resolves the child profile driving policy decisions.
type ProfileDirectory interface {
	Get(ctx context.Context, childID domain.ChildID) (*domain.ChildProfile, error)
}

// EventPublisher records the safety outcome of an exchange.
type EventPublisher interface {
	Publish(ctx context.Context, event *safety.Event) error
}

// Responder generates the assistant reply for an approved message. This is
// the downstream model integration; the engine never calls it for blocked
// or rate-limited messages.
type Responder interface {
	Respond(ctx context.Context, profile *domain.ChildProfile, message string) (string, error)
}
