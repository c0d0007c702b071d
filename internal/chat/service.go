// Package chat orchestrates the per-message safety pipeline: consent check,
// moderation, interaction limits, response generation, event recording.
package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"guardian/internal/moderation"
	"guardian/internal/safety"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

const maxMessageLength = 2000

// Service runs the safety pipeline for chat exchanges.
type Service struct {
	profiles  ProfileDirectory
	consents  ConsentChecker
	moderator Moderator
	limiter   Limiter
	responder Responder
	events    EventPublisher
	logger    *slog.Logger
	clock     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func withClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New creates the chat pipeline. Every collaborator is required.
func New(profiles ProfileDirectory, consents ConsentChecker, moderator Moderator, limiter Limiter, responder Responder, events EventPublisher, opts ...Option) (*Service, error) {
	switch {
	case profiles == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "profile directory is required")
	case consents == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "consent checker is required")
	case moderator == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "moderator is required")
	case limiter == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "limiter is required")
	case responder == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "responder is required")
	case events == nil:
		return nil, dErrors.New(dErrors.CodeInternal, "event publisher is required")
	}

	s := &Service{
		profiles:  profiles,
		consents:  consents,
		moderator: moderator,
		limiter:   limiter,
		responder: responder,
		events:    events,
		logger:    slog.Default(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Chat resolves one message. Blocked and rate-limited outcomes return a
// Result with a nil error; errors are reserved for requests that could not
// be decided (unknown child, missing consent, infrastructure failure).
func (s *Service) Chat(ctx context.Context, req Request) (*Result, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, req.ChildID)
	if err != nil {
		return nil, err
	}

	if err := s.consents.Require(ctx, req.ChildID, domain.ScopeSafetyMonitoring); err != nil {
		return nil, err
	}
	if req.Voice {
		if err := s.consents.Require(ctx, req.ChildID, domain.ScopeVoiceRecording); err != nil {
			return nil, err
		}
	}

	modResult, err := s.moderator.Evaluate(ctx, req.Message, profile.SafetyLevel)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ConversationID: domain.NewConversationID(),
		Moderation:     modResult,
	}

	if modResult.Action == moderation.ActionBlock {
		// The block and its event commit together; an uncommitted event
		// (e.g. the request was cancelled mid-flight) fails the exchange.
		if err := s.events.Publish(ctx, blockEvent(profile.ID, modResult)); err != nil {
			return nil, err
		}
		result.Outcome = OutcomeBlocked
		result.Reply = modResult.RefusalMessage
		s.logger.InfoContext(ctx, "message blocked",
			"child_id", profile.ID,
			"score", modResult.Score,
			"safety_word", modResult.SafetyWord != "",
			"scorer_unavailable", modResult.ScorerUnavailable,
		)
		return result, nil
	}

	limitResult, err := s.limiter.CheckAndReserve(ctx, req.ChildID, profile.Age, s.clock())
	if err != nil {
		return nil, err
	}
	result.Limit = limitResult
	if !limitResult.Allowed {
		result.Outcome = OutcomeLimited
		s.logger.InfoContext(ctx, "interaction limited",
			"child_id", profile.ID,
			"reason", limitResult.Reason,
			"retry_after", limitResult.RetryAfter,
		)
		return result, nil
	}

	// The warning event records an exchange that actually happened, so it
	// is only published once the reservation is through.
	if modResult.Action == moderation.ActionWarn {
		if err := s.events.Publish(ctx, warnEvent(profile.ID, modResult)); err != nil {
			return nil, err
		}
	}

	reply, err := s.responder.Respond(ctx, profile, req.Message)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate response")
	}

	// The model's reply goes through the same gate as the child's message.
	replyMod, err := s.moderator.Evaluate(ctx, reply, profile.SafetyLevel)
	if err != nil {
		return nil, err
	}
	if replyMod.Action == moderation.ActionBlock {
		if err := s.events.Publish(ctx, replyEvent(profile.ID, replyMod)); err != nil {
			return nil, err
		}
		s.logger.WarnContext(ctx, "model response suppressed",
			"child_id", profile.ID,
			"score", replyMod.Score,
		)
		result.Outcome = OutcomeOK
		result.Reply = replyMod.RefusalMessage
		return result, nil
	}

	result.Outcome = OutcomeOK
	result.Reply = reply
	return result, nil
}

func (s *Service) validate(req Request) error {
	if req.ChildID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "child_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "message is required")
	}
	if len(req.Message) > maxMessageLength {
		return dErrors.Newf(dErrors.CodeInvalidInput, "message exceeds %d characters", maxMessageLength)
	}
	return nil
}

func blockEvent(childID domain.ChildID, mod moderation.Result) *safety.Event {
	event := &safety.Event{
		ChildID:     childID,
		Type:        safety.EventInappropriateContent,
		Severity:    safety.SeverityHigh,
		Description: blockDescription(mod),
		ActionTaken: "message blocked",
	}
	switch {
	case mod.SafetyWord != "":
		event.Type = safety.EventSafetyWordDetected
		event.Severity = safety.SeverityCritical
	case mod.AutoReport:
		event.Type = safety.EventParentAlert
		event.Severity = safety.SeverityCritical
	case mod.ScorerUnavailable:
		event.Type = safety.EventUnusualPattern
	}
	return event
}

func replyEvent(childID domain.ChildID, mod moderation.Result) *safety.Event {
	event := &safety.Event{
		ChildID:     childID,
		Type:        safety.EventInappropriateContent,
		Severity:    safety.SeverityHigh,
		Description: "unsafe model response withheld",
		ActionTaken: "response suppressed",
	}
	if mod.AutoReport {
		event.Type = safety.EventParentAlert
		event.Severity = safety.SeverityCritical
	}
	return event
}

func warnEvent(childID domain.ChildID, mod moderation.Result) *safety.Event {
	return &safety.Event{
		ChildID:     childID,
		Type:        safety.EventInappropriateContent,
		Severity:    safety.SeverityMedium,
		Description: blockDescription(mod),
		ActionTaken: "warning issued",
	}
}

func blockDescription(mod moderation.Result) string {
	switch {
	case mod.SafetyWord != "":
		return "safety word detected in message"
	case mod.ScorerUnavailable:
		return "content scorer unavailable, failed closed"
	case len(mod.TriggeredCategories) > 0:
		names := make([]string, len(mod.TriggeredCategories))
		for i, c := range mod.TriggeredCategories {
			names[i] = string(c)
		}
		return "message flagged in categories: " + strings.Join(names, ", ")
	default:
		return "message flagged by custom block list"
	}
}
