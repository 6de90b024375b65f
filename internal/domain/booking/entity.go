// internal/domain/booking/entity.go
package booking

import (
	"database/sql"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// SystemActorID is the reserved actor used by background tasks (the expiry
// sweeper). No real identity ever carries this id.
const SystemActorID int64 = 0

// legalTransitions encodes the full state machine. Completed and cancelled
// are terminal.
var legalTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether target is reachable from s in one step.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range legalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(legalTransitions[s]) == 0
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Booking is a consultation session between a subscriber and an expert.
type Booking struct {
	ID               string         `json:"id"`
	RequesterID      int64          `json:"requester_id"`
	ExpertID         int64          `json:"expert_id"`
	RequestedTime    time.Time      `json:"requested_time"`
	OriginalPrice    int64          `json:"original_price"`
	FinalPrice       int64          `json:"final_price"`
	IsFreeSession    bool           `json:"is_free_session"`
	Status           Status         `json:"status"`
	MeetingLink      sql.NullString `json:"meeting_link,omitempty"`
	EntitlementScope sql.NullString `json:"entitlement_scope,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// IsParty reports whether the given identity is the requester or the expert.
func (b *Booking) IsParty(identityID int64) bool {
	return b.RequesterID == identityID || b.ExpertID == identityID
}
