// Package domain holds shared identifier and enum types used across modules.
package domain

import (
	"github.com/google/uuid"

	dErrors "guardian/pkg/domain-errors"
)

// ChildID identifies a child profile. Stored as the canonical UUID string.
type ChildID string

// ParentID identifies the parent account that owns one or more children.
type ParentID string

// ConsentID identifies a single consent record.
type ConsentID string

// EventID identifies a safety event.
type EventID string

// TicketID identifies a retention ticket.
type TicketID string

// ConversationID identifies a chat conversation.
type ConversationID string

func (id ChildID) IsNil() bool        { return id == "" }
func (id ParentID) IsNil() bool       { return id == "" }
func (id ConsentID) IsNil() bool      { return id == "" }
func (id EventID) IsNil() bool        { return id == "" }
func (id TicketID) IsNil() bool       { return id == "" }
func (id ConversationID) IsNil() bool { return id == "" }

func (id ChildID) String() string        { return string(id) }
func (id ParentID) String() string       { return string(id) }
func (id ConsentID) String() string      { return string(id) }
func (id EventID) String() string        { return string(id) }
func (id TicketID) String() string       { return string(id) }
func (id ConversationID) String() string { return string(id) }

// ParseChildID validates external input as a child identifier.
//
// Usage: call from handlers/adapters when parsing requests; direct casting
// bypasses validation.
func ParseChildID(s string) (ChildID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "child_id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "child_id must be a UUID")
	}
	return ChildID(s), nil
}

// ParseParentID validates external input as a parent identifier.
func ParseParentID(s string) (ParentID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "parent_id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "parent_id must be a UUID")
	}
	return ParentID(s), nil
}

// NewChildID mints a fresh child identifier.
func NewChildID() ChildID { return ChildID(uuid.NewString()) }

// NewConsentID mints a fresh consent identifier.
func NewConsentID() ConsentID { return ConsentID(uuid.NewString()) }

// NewEventID mints a fresh safety event identifier.
func NewEventID() EventID { return EventID(uuid.NewString()) }

// NewTicketID mints a fresh retention ticket identifier.
func NewTicketID() TicketID { return TicketID(uuid.NewString()) }

// NewConversationID mints a fresh conversation identifier.
func NewConversationID() ConversationID { return ConversationID(uuid.NewString()) }
