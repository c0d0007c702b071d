// Package openai adapts the OpenAI moderation endpoint to the engine's
// Scorer port. The provider owns the scoring model; only score mapping
// happens here.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"guardian/internal/moderation"
)

type Scorer struct {
	client *goopenai.Client
	model  string
}

type Option func(*Scorer)

// WithModel overrides the moderation model.
func WithModel(model string) Option {
	return func(s *Scorer) {
		if model != "" {
			s.model = model
		}
	}
}

func New(client *goopenai.Client, opts ...Option) (*Scorer, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client is required")
	}
	s := &Scorer{
		client: client,
		model:  goopenai.ModerationTextLatest,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Score classifies one message. Errors (including ctx deadline) propagate so
// the engine can fail closed.
func (s *Scorer) Score(ctx context.Context, message string) (moderation.Scores, error) {
	resp, err := s.client.Moderations(ctx, goopenai.ModerationRequest{
		Input: message,
		Model: s.model,
	})
	if err != nil {
		return nil, fmt.Errorf("moderation request: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("moderation response contained no results")
	}
	return mapScores(resp.Results[0].CategoryScores), nil
}

// mapScores projects provider category scores onto the engine's closed
// category set. Where the provider has no direct equivalent the nearest
// harassment signal is used so no category silently stays at zero.
func mapScores(cs goopenai.ResultCategoryScores) moderation.Scores {
	return moderation.Scores{
		moderation.CategoryToxicity:       float64(cs.Harassment),
		moderation.CategorySevereToxicity: float64(cs.HarassmentThreatening),
		moderation.CategoryIdentityAttack: max64(float64(cs.Hate), float64(cs.HateThreatening)),
		moderation.CategoryInsult:         float64(cs.Harassment),
		moderation.CategoryProfanity:      float64(cs.Harassment),
		moderation.CategoryThreat:         max64(float64(cs.HarassmentThreatening), float64(cs.HateThreatening)),
		moderation.CategorySexualContent:  max64(float64(cs.Sexual), float64(cs.SexualMinors)),
		moderation.CategoryViolence:       max64(float64(cs.Violence), float64(cs.ViolenceGraphic)),
		moderation.CategorySelfHarm:       max64(float64(cs.SelfHarm), float64(cs.SelfHarmIntent), float64(cs.SelfHarmInstructions)),
		moderation.CategoryHateSpeech:     float64(cs.Hate),
	}
}

func max64(vals ...float64) float64 {
	var m float64
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
