package consent

import (
	"time"

	"guardian/pkg/domain"
)

// Record is one parental-consent grant. Records are append-only: re-consent
// appends a new record that supersedes older ones for authorization, and
// revocation stamps RevokedAt without deleting history, which is retained
// for audit.
type Record struct {
	ID        domain.ConsentID      `json:"consent_id"`
	ParentID  domain.ParentID       `json:"parent_id"`
	ChildID   domain.ChildID        `json:"child_id"`
	Scopes    []domain.ConsentScope `json:"scopes"`
	GrantedAt time.Time             `json:"granted_at"`
	Verified  bool                  `json:"verified"`
	// Method records how the parent's identity was verified
	// (e.g. "credit_card", "signed_form"). Kept for audit.
	Method    string     `json:"method,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Covers reports whether this record grants the given scope.
func (r *Record) Covers(scope domain.ConsentScope) bool {
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Active reports whether the record can authorize anything at the given
// instant: it must be verified and not revoked.
func (r *Record) Active(now time.Time) bool {
	if !r.Verified {
		return false
	}
	if r.RevokedAt != nil && !r.RevokedAt.After(now) {
		return false
	}
	return true
}

// GrantRequest is the input for recording a new consent.
type GrantRequest struct {
	ParentID domain.ParentID
	ChildID  domain.ChildID
	Scopes   []domain.ConsentScope
	Verified bool
	Method   string
}
