package moderation

import "context"

// Scorer is the external classifier collaborator. The engine owns the
// decision policy only; providers own the scoring model.
//
// Implementations must honor ctx cancellation and deadlines. Any error,
// including timeout, makes the engine fail closed.
type Scorer interface {
	Score(ctx context.Context, message string) (Scores, error)
}
