// Package openai adapts the OpenAI chat completion endpoint to the chat
// Responder port.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"guardian/pkg/domain"
)

const systemPrompt = "You are a friendly companion for a young child. " +
	"Keep answers short, kind, age-appropriate, and free of scary or adult themes. " +
	"Never ask for personal information."

type Responder struct {
	client      *goopenai.Client
	model       string
	maxTokens   int
	temperature float32
}

type Option func(*Responder)

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(r *Responder) {
		if model != "" {
			r.model = model
		}
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(r *Responder) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

func New(client *goopenai.Client, opts ...Option) (*Responder, error) {
	if client == nil {
		return nil, fmt.Errorf("openai client is required")
	}
	r := &Responder{
		client:      client,
		model:       goopenai.GPT4oMini,
		maxTokens:   300,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Respond generates the assistant reply for an approved message. The child's
// age and language steer the prompt; moderation has already happened.
func (r *Responder) Respond(ctx context.Context, profile *domain.ChildProfile, message string) (string, error) {
	prompt := fmt.Sprintf("%s The child is %d years old.", systemPrompt, profile.Age)
	if profile.Language != "" {
		prompt = fmt.Sprintf("%s Reply in language %q.", prompt, profile.Language)
	}

	resp, err := r.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompt},
			{Role: goopenai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
