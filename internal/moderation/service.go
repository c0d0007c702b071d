package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"guardian/internal/moderation/metrics"
	"guardian/pkg/domain"
)

// LevelPolicy is the threshold/category view the service needs per safety
// level. It is satisfied by the config package without importing it, which
// keeps the dependency direction config -> moderation.
type LevelPolicy struct {
	BlockThreshold   float64
	WarningThreshold float64
	Categories       map[Category]bool
	CustomBlockList  []string
	CustomAllowList  []string
	// AutoReportThreshold escalates a block to an automatic parent report
	// when the top score reaches it. Zero disables auto-reporting.
	AutoReportThreshold float64
}

// PolicyProvider resolves the active policy for a safety level and the
// global safety-word list.
type PolicyProvider interface {
	PolicyFor(level domain.SafetyLevel) LevelPolicy
	IsSafetyWord(message string) (string, bool)
	ModerationEnabled() bool
}

type Service struct {
	scorer       Scorer
	policies     PolicyProvider
	scorerBudget time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithScorerTimeout bounds each classifier call. Zero keeps the default.
func WithScorerTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scorerBudget = d
		}
	}
}

func New(scorer Scorer, policies PolicyProvider, opts ...Option) (*Service, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy provider is required")
	}
	svc := &Service{
		scorer:       scorer,
		policies:     policies,
		scorerBudget: 5 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Evaluate scores one message and applies the decision policy for the given
// safety level.
//
// Failure semantics: if the scorer is unavailable or times out the engine
// fails closed. The returned Result carries Action=block and
// ScorerUnavailable=true so the caller can record the degradation; Evaluate
// itself returns no error in that case because blocking is the decided
// outcome, not a failure to decide.
func (s *Service) Evaluate(ctx context.Context, message string, level domain.SafetyLevel) (Result, error) {
	if !s.policies.ModerationEnabled() {
		return Result{Passed: true, Action: ActionAllow}, nil
	}

	if word, ok := s.policies.IsSafetyWord(message); ok {
		if s.metrics != nil {
			s.metrics.IncrementInappropriateContent()
		}
		return Result{
			Action:         ActionBlock,
			SafetyWord:     word,
			RefusalMessage: refusalMessage(),
		}, nil
	}

	policy := s.policies.PolicyFor(level)
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	// Block list wins over everything, including the allow list.
	for _, blocked := range policy.CustomBlockList {
		if blocked != "" && strings.Contains(lower, strings.ToLower(blocked)) {
			if s.metrics != nil {
				s.metrics.IncrementInappropriateContent()
			}
			return Result{Action: ActionBlock, RefusalMessage: refusalMessage()}, nil
		}
	}

	// Allow list bypasses category scoring on an exact match only.
	for _, allowed := range policy.CustomAllowList {
		if allowed != "" && strings.EqualFold(trimmed, allowed) {
			return Result{Passed: true, Action: ActionAllow}, nil
		}
	}

	scoreCtx, cancel := context.WithTimeout(ctx, s.scorerBudget)
	defer cancel()

	scores, err := s.scorer.Score(scoreCtx, message)
	if err != nil {
		// Fail closed: an unscorable message is treated as unsafe.
		if s.metrics != nil {
			s.metrics.IncrementScorerFailures()
		}
		s.logger.ErrorContext(ctx, "scorer unavailable, failing closed",
			"safety_level", level,
			"error", err,
		)
		return Result{
			Action:            ActionBlock,
			RefusalMessage:    refusalMessage(),
			ScorerUnavailable: true,
		}, nil
	}

	return s.decide(scores, policy), nil
}

func (s *Service) decide(scores Scores, policy LevelPolicy) Result {
	var (
		maxScore  float64
		triggered []Category
		blocked   bool
	)
	for cat, score := range scores {
		if !policy.Categories[cat] {
			continue
		}
		if score > maxScore {
			maxScore = score
		}
		if score >= policy.WarningThreshold {
			triggered = append(triggered, cat)
		}
		if score >= policy.BlockThreshold {
			blocked = true
		}
	}
	sort.Slice(triggered, func(i, j int) bool { return triggered[i] < triggered[j] })

	if s.metrics != nil {
		s.metrics.ObserveSafetyScore(maxScore)
	}

	switch {
	case blocked:
		if s.metrics != nil {
			s.metrics.IncrementInappropriateContent()
		}
		return Result{
			Score:               maxScore,
			Action:              ActionBlock,
			TriggeredCategories: triggered,
			RefusalMessage:      refusalMessage(),
			AutoReport:          policy.AutoReportThreshold > 0 && maxScore >= policy.AutoReportThreshold,
		}
	case len(triggered) > 0:
		return Result{
			Passed:              true,
			Score:               maxScore,
			Action:              ActionWarn,
			TriggeredCategories: triggered,
		}
	default:
		return Result{Passed: true, Score: maxScore, Action: ActionAllow}
	}
}

// refusalMessage is the child-appropriate text returned in place of a blocked
// response.
func refusalMessage() string {
	return "Let's talk about something else! How about you tell me about your favorite animal?"
}
