package chat

import (
	"guardian/internal/limits"
	"guardian/internal/moderation"
	"guardian/pkg/domain"
)

// Outcome summarizes how a chat request was resolved.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeBlocked Outcome = "blocked"
	OutcomeLimited Outcome = "limited"
)

// Request is one child message entering the safety pipeline.
type Request struct {
	ChildID domain.ChildID `json:"child_id"`
	Message string         `json:"message"`
	// Voice marks exchanges that include an audio recording, which
	// requires the voice_recording consent scope.
	Voice bool `json:"voice"`
}

// Result is the resolved exchange. Reply holds the model response for OK
// outcomes and the child-appropriate refusal text for blocked ones.
type Result struct {
	ConversationID domain.ConversationID `json:"conversation_id"`
	Outcome        Outcome               `json:"outcome"`
	Reply          string                `json:"reply"`
	Moderation     moderation.Result     `json:"moderation"`
	Limit          limits.LimitResult    `json:"limit"`
}
