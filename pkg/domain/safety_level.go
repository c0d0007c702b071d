package domain

import dErrors "guardian/pkg/domain-errors"

// SafetyLevel is the per-child strictness tier that selects moderation
// thresholds. Stricter levels block at lower classifier scores.
type SafetyLevel string

const (
	SafetyStrict   SafetyLevel = "strict"
	SafetyModerate SafetyLevel = "moderate"
	SafetyRelaxed  SafetyLevel = "relaxed"
)

var validSafetyLevels = map[SafetyLevel]bool{
	SafetyStrict:   true,
	SafetyModerate: true,
	SafetyRelaxed:  true,
}

// ParseSafetyLevel constructs a SafetyLevel from external input.
func ParseSafetyLevel(s string) (SafetyLevel, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "safety level cannot be empty")
	}
	l := SafetyLevel(s)
	if !l.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid safety level")
	}
	return l, nil
}

// IsValid checks if the safety level is one of the supported enum values.
func (l SafetyLevel) IsValid() bool {
	return validSafetyLevels[l]
}

// String returns the string representation of the level.
func (l SafetyLevel) String() string {
	return string(l)
}
