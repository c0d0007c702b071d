package retention

import (
	"time"

	"guardian/pkg/domain"
)

// TicketStatus tracks a retention ticket through its lifecycle. Tickets are
// never deleted; executed tickets form the audit trail of what was purged.
type TicketStatus string

const (
	StatusPending  TicketStatus = "pending"
	StatusExecuted TicketStatus = "executed"
	StatusBlocked  TicketStatus = "blocked"
)

// TicketOrigin records what opened the ticket.
type TicketOrigin string

const (
	OriginSweep         TicketOrigin = "sweep"
	OriginRevocation    TicketOrigin = "consent_revocation"
	OriginParentRequest TicketOrigin = "parent_request"
)

// Ticket schedules deletion of one data category for one child.
type Ticket struct {
	ID               domain.TicketID     `json:"ticket_id"`
	ChildID          domain.ChildID      `json:"child_id"`
	Category         domain.DataCategory `json:"data_category"`
	Origin           TicketOrigin        `json:"origin"`
	Status           TicketStatus        `json:"status"`
	EligibleAt       time.Time           `json:"eligible_deletion_at"`
	CreatedAt        time.Time           `json:"created_at"`
	ExecutedAt       *time.Time          `json:"executed_at,omitempty"`
	PurgedRecords    int                 `json:"purged_records"`
	BlockedReason    string              `json:"blocked_reason,omitempty"`
	ConfirmationCode string              `json:"confirmation_code,omitempty"`

	// ViolationReported dedupes the overdue alert across sweeps.
	ViolationReported bool `json:"-"`
}

// Open reports whether the ticket still needs work. Blocked tickets stay
// open and are re-evaluated on every sweep.
func (t *Ticket) Open() bool {
	return t.Status == StatusPending || t.Status == StatusBlocked
}

// DeletionReceipt is returned to a parent who requested deletion.
type DeletionReceipt struct {
	Tickets          []*Ticket `json:"tickets"`
	ConfirmationCode string    `json:"confirmation_code"`
	ScheduledAt      time.Time `json:"scheduled_deletion_at"`
}
