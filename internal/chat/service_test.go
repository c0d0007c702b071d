package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guardian/internal/limits"
	"guardian/internal/moderation"
	"guardian/internal/safety"
	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

const testChild = "3c9a4d6e-8b21-4f5c-a0d7-1e2f3a4b5c6d"

type fakeProfiles struct {
	profile *domain.ChildProfile
}

func (f *fakeProfiles) Get(_ context.Context, childID domain.ChildID) (*domain.ChildProfile, error) {
	if f.profile == nil || f.profile.ID != childID {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "unknown child %s", childID)
	}
	return f.profile, nil
}

type fakeConsents struct {
	missing map[domain.ConsentScope]bool
	checked []domain.ConsentScope
}

func (f *fakeConsents) Require(_ context.Context, _ domain.ChildID, scope domain.ConsentScope) error {
	f.checked = append(f.checked, scope)
	if f.missing[scope] {
		return dErrors.Newf(dErrors.CodeConsentMissing, "no active consent for %s", scope)
	}
	return nil
}

type fakeModerator struct {
	result     moderation.Result
	perMessage map[string]moderation.Result
	err        error
}

func (f *fakeModerator) Evaluate(_ context.Context, message string, _ domain.SafetyLevel) (moderation.Result, error) {
	if res, ok := f.perMessage[message]; ok {
		return res, nil
	}
	return f.result, f.err
}

type fakeLimiter struct {
	result limits.LimitResult
	calls  int
}

func (f *fakeLimiter) CheckAndReserve(_ context.Context, _ domain.ChildID, _ int, _ time.Time) (limits.LimitResult, error) {
	f.calls++
	return f.result, nil
}

type fakeResponder struct {
	reply string
	err   error
	calls int
}

func (f *fakeResponder) Respond(_ context.Context, _ *domain.ChildProfile, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeEvents struct {
	events []*safety.Event
	err    error
}

func (f *fakeEvents) Publish(ctx context.Context, event *safety.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	cp := *event
	f.events = append(f.events, &cp)
	return nil
}

type ChatSuite struct {
	suite.Suite
	profiles  *fakeProfiles
	consents  *fakeConsents
	moderator *fakeModerator
	limiter   *fakeLimiter
	responder *fakeResponder
	events    *fakeEvents
	svc       *Service
}

func TestChatSuite(t *testing.T) {
	suite.Run(t, new(ChatSuite))
}

func (s *ChatSuite) SetupTest() {
	s.profiles = &fakeProfiles{profile: &domain.ChildProfile{
		ID:          domain.ChildID(testChild),
		ParentID:    domain.ParentID("2b3c4d5e-6f70-4182-93a4-b5c6d7e8f901"),
		Age:         7,
		SafetyLevel: domain.SafetyStrict,
	}}
	s.consents = &fakeConsents{missing: map[domain.ConsentScope]bool{}}
	s.moderator = &fakeModerator{result: moderation.Result{Passed: true, Action: moderation.ActionAllow, Score: 0.1}}
	s.limiter = &fakeLimiter{result: limits.LimitResult{Allowed: true, Reason: limits.ReasonOK, Remaining: 42}}
	s.responder = &fakeResponder{reply: "hello there!"}
	s.events = &fakeEvents{}

	svc, err := New(s.profiles, s.consents, s.moderator, s.limiter, s.responder, s.events)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *ChatSuite) request() Request {
	return Request{ChildID: domain.ChildID(testChild), Message: "tell me about dinosaurs"}
}

func (s *ChatSuite) TestValidation() {
	s.Run("missing child", func() {
		_, err := s.svc.Chat(context.Background(), Request{Message: "hi"})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("empty message", func() {
		_, err := s.svc.Chat(context.Background(), Request{ChildID: domain.ChildID(testChild), Message: "   "})
		s.True(dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown child", func() {
		req := s.request()
		req.ChildID = domain.ChildID("99999999-8888-4777-a666-555544443333")
		_, err := s.svc.Chat(context.Background(), req)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *ChatSuite) TestHappyPath() {
	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeOK, result.Outcome)
	s.Equal("hello there!", result.Reply)
	s.NotEmpty(result.ConversationID)
	s.Equal(42, result.Limit.Remaining)
	s.Empty(s.events.events, "allowed exchanges do not emit events")
	s.Equal([]domain.ConsentScope{domain.ScopeSafetyMonitoring}, s.consents.checked)
}

func (s *ChatSuite) TestConsentGates() {
	s.Run("missing safety monitoring consent", func() {
		s.consents.missing[domain.ScopeSafetyMonitoring] = true
		_, err := s.svc.Chat(context.Background(), s.request())
		s.True(dErrors.Is(err, dErrors.CodeConsentMissing))
	})

	s.Run("voice requires voice consent", func() {
		s.consents.missing = map[domain.ConsentScope]bool{domain.ScopeVoiceRecording: true}
		req := s.request()
		req.Voice = true
		_, err := s.svc.Chat(context.Background(), req)
		s.True(dErrors.Is(err, dErrors.CodeConsentMissing))
	})
}

func (s *ChatSuite) TestBlockedMessage() {
	s.moderator.result = moderation.Result{
		Action:              moderation.ActionBlock,
		Score:               0.85,
		TriggeredCategories: []moderation.Category{moderation.CategoryToxicity},
		RefusalMessage:      "let's talk about something else",
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeBlocked, result.Outcome)
	s.Equal("let's talk about something else", result.Reply)
	s.Zero(s.responder.calls)
	s.Zero(s.limiter.calls, "blocked messages do not consume quota")

	s.Require().Len(s.events.events, 1)
	s.Equal(safety.EventInappropriateContent, s.events.events[0].Type)
	s.Equal(safety.SeverityHigh, s.events.events[0].Severity)
}

func (s *ChatSuite) TestSafetyWordEscalates() {
	s.moderator.result = moderation.Result{
		Action:         moderation.ActionBlock,
		SafetyWord:     "help me",
		RefusalMessage: "I'm getting a grown-up to help",
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeBlocked, result.Outcome)
	s.Require().Len(s.events.events, 1)
	s.Equal(safety.EventSafetyWordDetected, s.events.events[0].Type)
	s.Equal(safety.SeverityCritical, s.events.events[0].Severity)
}

func (s *ChatSuite) TestScorerOutageFailsClosed() {
	s.moderator.result = moderation.Result{
		Action:            moderation.ActionBlock,
		ScorerUnavailable: true,
		RefusalMessage:    "let's try again in a little bit",
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeBlocked, result.Outcome)
	s.Require().Len(s.events.events, 1)
	s.Equal(safety.EventUnusualPattern, s.events.events[0].Type)
	s.Equal(safety.SeverityHigh, s.events.events[0].Severity)
}

func (s *ChatSuite) TestWarnStillResponds() {
	s.moderator.result = moderation.Result{
		Passed: true,
		Action: moderation.ActionWarn,
		Score:  0.4,
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeOK, result.Outcome)
	s.Equal("hello there!", result.Reply)
	s.Require().Len(s.events.events, 1)
	s.Equal(safety.SeverityMedium, s.events.events[0].Severity)
}

func (s *ChatSuite) TestAutoReportEscalates() {
	s.moderator.result = moderation.Result{
		Action:              moderation.ActionBlock,
		Score:               0.97,
		AutoReport:          true,
		TriggeredCategories: []moderation.Category{moderation.CategoryViolence},
		RefusalMessage:      "let's talk about something else",
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeBlocked, result.Outcome)
	s.Require().Len(s.events.events, 1)
	s.Equal(safety.EventParentAlert, s.events.events[0].Type)
	s.Equal(safety.SeverityCritical, s.events.events[0].Severity)
}

func (s *ChatSuite) TestUnsafeReplySuppressed() {
	s.responder.reply = "something grim"
	s.moderator.perMessage = map[string]moderation.Result{
		"something grim": {
			Action:         moderation.ActionBlock,
			Score:          0.9,
			RefusalMessage: "how about a different story?",
		},
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeOK, result.Outcome)
	s.Equal("how about a different story?", result.Reply)
	s.Require().Len(s.events.events, 1)
	s.Equal(safety.EventInappropriateContent, s.events.events[0].Type)
	s.Equal("response suppressed", s.events.events[0].ActionTaken)
}

func (s *ChatSuite) TestRateLimitedWarnRecordsNoEvent() {
	s.moderator.result = moderation.Result{
		Passed: true,
		Action: moderation.ActionWarn,
		Score:  0.4,
	}
	s.limiter.result = limits.LimitResult{
		Allowed:    false,
		Reason:     limits.ReasonDailyCap,
		RetryAfter: time.Hour,
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeLimited, result.Outcome)
	s.Empty(s.events.events, "a limited exchange never happened, so no warning is recorded")
}

func (s *ChatSuite) TestRateLimited() {
	s.limiter.result = limits.LimitResult{
		Allowed:    false,
		Reason:     limits.ReasonDailyCap,
		RetryAfter: 3 * time.Hour,
	}

	result, err := s.svc.Chat(context.Background(), s.request())
	s.Require().NoError(err)

	s.Equal(OutcomeLimited, result.Outcome)
	s.Equal(limits.ReasonDailyCap, result.Limit.Reason)
	s.Zero(s.responder.calls)
}

func (s *ChatSuite) TestCancelledRequestCommitsNothing() {
	s.moderator.result = moderation.Result{
		Action:         moderation.ActionBlock,
		RefusalMessage: "nope",
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.svc.Chat(ctx, s.request())
	s.Require().Error(err)
	s.Empty(s.events.events)
}

func (s *ChatSuite) TestEventFailureFailsExchange() {
	s.moderator.result = moderation.Result{Action: moderation.ActionBlock, RefusalMessage: "nope"}
	s.events.err = errors.New("event store down")

	_, err := s.svc.Chat(context.Background(), s.request())
	s.Require().Error(err)
}

func (s *ChatSuite) TestResponderFailure() {
	s.responder.err = errors.New("model timeout")

	_, err := s.svc.Chat(context.Background(), s.request())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInternal))
}
