package domain

import dErrors "guardian/pkg/domain-errors"

// ConsentScope is a domain value that identifies which data-handling activity
// a parent has authorized for a child.
// Invariant: the value must be one of the supported scopes.
//
// Usage: construct via ParseConsentScope at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentScope string

// Supported consent scopes. Each scope authorizes a distinct activity and is
// verified independently; granting one never implies another.
const (
	ScopeDataCollection   ConsentScope = "data_collection"
	ScopeSafetyMonitoring ConsentScope = "safety_monitoring"
	ScopeVoiceRecording   ConsentScope = "voice_recording"
)

// validConsentScopes is the single source of truth for valid consent scopes.
var validConsentScopes = map[ConsentScope]bool{
	ScopeDataCollection:   true,
	ScopeSafetyMonitoring: true,
	ScopeVoiceRecording:   true,
}

// AllConsentScopes returns the supported scopes in a stable order.
func AllConsentScopes() []ConsentScope {
	return []ConsentScope{ScopeDataCollection, ScopeSafetyMonitoring, ScopeVoiceRecording}
}

// ParseConsentScope constructs a ConsentScope from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported; no
// other errors are expected.
func ParseConsentScope(s string) (ConsentScope, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "scope cannot be empty")
	}
	sc := ConsentScope(s)
	if !sc.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid consent scope")
	}
	return sc, nil
}

// IsValid checks if the consent scope is one of the supported enum values.
func (s ConsentScope) IsValid() bool {
	return validConsentScopes[s]
}

// String returns the string representation of the scope.
func (s ConsentScope) String() string {
	return string(s)
}
