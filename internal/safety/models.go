package safety

import (
	"time"

	"guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// EventType classifies safety events. The set is closed; consumers (parent
// notifications, alert rules, the export endpoint) switch on it.
type EventType string

const (
	EventInappropriateContent EventType = "inappropriate_content"
	EventSafetyWordDetected   EventType = "safety_word_detected"
	EventUnusualPattern       EventType = "unusual_pattern"
	EventParentAlert          EventType = "parent_alert"
	// EventRetentionViolation flags a retention ticket still pending past
	// its window. Routed to operator alerting only, never to parents.
	EventRetentionViolation EventType = "coppa_retention_violation"
)

var validEventTypes = map[EventType]bool{
	EventInappropriateContent: true,
	EventSafetyWordDetected:   true,
	EventUnusualPattern:       true,
	EventParentAlert:          true,
	EventRetentionViolation:   true,
}

// IsValid checks if the event type is one of the supported enum values.
func (t EventType) IsValid() bool {
	return validEventTypes[t]
}

func (t EventType) String() string {
	return string(t)
}

// Severity grades an event for routing. High and critical events notify the
// parent; retention violations go to operators regardless of severity.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var validSeverities = map[Severity]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

// IsValid checks if the severity is one of the supported enum values.
func (s Severity) IsValid() bool {
	return validSeverities[s]
}

func (s Severity) String() string {
	return string(s)
}

// Event is one append-only safety record.
type Event struct {
	ID               domain.EventID `json:"event_id"`
	ChildID          domain.ChildID `json:"child_id"`
	Type             EventType      `json:"event_type"`
	Severity         Severity       `json:"severity"`
	Description      string         `json:"description"`
	ActionTaken      string         `json:"action_taken"`
	Timestamp        time.Time      `json:"timestamp"`
	ReportedToParent bool           `json:"reported_to_parent"`
}

// Validate enforces the event invariants before it reaches the store.
func (e *Event) Validate() error {
	if e.ChildID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "safety event requires child_id")
	}
	if !e.Type.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid event type %q", e.Type)
	}
	if !e.Severity.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid severity %q", e.Severity)
	}
	return nil
}

// notifyParent reports whether the event must reach the parent with
// at-least-once delivery.
func (e *Event) notifyParent() bool {
	if e.Type == EventRetentionViolation {
		return false
	}
	return e.Type == EventParentAlert || e.Severity == SeverityHigh || e.Severity == SeverityCritical
}

// DeadLetter is an operator-facing record of a notification that could not
// be delivered after all retries. Dead letters are never dropped.
type DeadLetter struct {
	Event      Event     `json:"event"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Page is a paginated slice of events for the listing endpoint.
type Page struct {
	Events []*Event `json:"events"`
	Total  int      `json:"total"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
}

// Filter narrows event listings by time range.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}
