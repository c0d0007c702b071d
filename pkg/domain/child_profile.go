package domain

import (
	"time"

	dErrors "guardian/pkg/domain-errors"
)

// Eligible ages for the service. COPPA obligations apply to under-13 users;
// the product only onboards children inside this range.
const (
	MinChildAge = 3
	MaxChildAge = 13
)

// ChildProfile is the engine's read model of a child. Profiles are owned by
// the parent-account collaborator; the engine never mutates them.
type ChildProfile struct {
	ID          ChildID     `json:"id"`
	ParentID    ParentID    `json:"parent_id"`
	Age         int         `json:"age"`
	SafetyLevel SafetyLevel `json:"safety_level"`
	Language    string      `json:"language"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Validate checks profile invariants before the profile enters a decision path.
func (p ChildProfile) Validate() error {
	if p.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "child profile requires an id")
	}
	if p.Age < MinChildAge || p.Age > MaxChildAge {
		return dErrors.Newf(dErrors.CodeInvalidInput, "child age %d outside supported range %d-%d", p.Age, MinChildAge, MaxChildAge)
	}
	if !p.SafetyLevel.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid safety level")
	}
	return nil
}
