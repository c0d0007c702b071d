package moderation

import (
	dErrors "guardian/pkg/domain-errors"
)

// Category is a closed enumeration of the content classes the engine scores.
// Keeping the set closed means a new category requires a code change, which
// prevents silent policy drift from untracked config keys.
type Category string

const (
	CategoryToxicity       Category = "toxicity"
	CategorySevereToxicity Category = "severe_toxicity"
	CategoryIdentityAttack Category = "identity_attack"
	CategoryInsult         Category = "insult"
	CategoryProfanity      Category = "profanity"
	CategoryThreat         Category = "threat"
	CategorySexualContent  Category = "sexual_content"
	CategoryViolence       Category = "violence"
	CategorySelfHarm       Category = "self_harm"
	CategoryHateSpeech     Category = "hate_speech"
)

var validCategories = map[Category]bool{
	CategoryToxicity:       true,
	CategorySevereToxicity: true,
	CategoryIdentityAttack: true,
	CategoryInsult:         true,
	CategoryProfanity:      true,
	CategoryThreat:         true,
	CategorySexualContent:  true,
	CategoryViolence:       true,
	CategorySelfHarm:       true,
	CategoryHateSpeech:     true,
}

// AllCategories returns the supported categories in a stable order.
func AllCategories() []Category {
	return []Category{
		CategoryToxicity,
		CategorySevereToxicity,
		CategoryIdentityAttack,
		CategoryInsult,
		CategoryProfanity,
		CategoryThreat,
		CategorySexualContent,
		CategoryViolence,
		CategorySelfHarm,
		CategoryHateSpeech,
	}
}

// ParseCategory constructs a Category from external input.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "category cannot be empty")
	}
	c := Category(s)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown moderation category %q", s)
	}
	return c, nil
}

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	return validCategories[c]
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// Action is the moderation decision for a single message.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Scores maps each scored category to a classifier confidence in [0,1].
type Scores map[Category]float64

// Max returns the highest score across all categories.
func (s Scores) Max() float64 {
	var max float64
	for _, v := range s {
		if v > max {
			max = v
		}
	}
	return max
}

// Result is the outcome of evaluating one message.
type Result struct {
	Passed              bool       `json:"passed"`
	Score               float64    `json:"score"`
	Action              Action     `json:"action"`
	TriggeredCategories []Category `json:"triggered_categories,omitempty"`
	// RefusalMessage is set only for block results; it is the
	// child-appropriate text returned instead of the model response.
	RefusalMessage string `json:"refusal_message,omitempty"`
	// SafetyWord is set when the block came from the safety-word list
	// rather than classifier scores.
	SafetyWord string `json:"safety_word,omitempty"`
	// AutoReport marks a block whose top score reached the auto-report
	// threshold; the caller escalates it to a parent alert.
	AutoReport bool `json:"auto_report,omitempty"`
	// ScorerUnavailable marks a fail-closed block taken because the
	// classifier could not be reached, not because of its scores.
	ScorerUnavailable bool `json:"-"`
}
