// internal/domain/subscription/entity.go
package subscription

import (
	"strconv"
	"time"
)

const StatusActive = "active"

// Plan is a subscription plan as written by the external subscription
// service. Read-only here.
type Plan struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	GrantsFreeSessions   bool      `json:"grants_free_sessions"`
	FreeSessionsPerCycle int       `json:"free_sessions_per_cycle"`
	Features             []string  `json:"features,omitempty"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"created_at"`
}

// ActiveCycle is the currently running cycle for a subscriber, joined with
// the entitlement-relevant plan fields. At most one cycle is active per
// subscriber at any instant (enforced by the subscription service).
type ActiveCycle struct {
	CycleID              int64     `json:"cycle_id"`
	PlanID               int64     `json:"plan_id"`
	PlanName             string    `json:"plan_name"`
	GrantsFreeSessions   bool      `json:"grants_free_sessions"`
	FreeSessionsPerCycle int       `json:"free_sessions_per_cycle"`
	Features             []string  `json:"features,omitempty"`
	PeriodStart          time.Time `json:"period_start"`
	PeriodEnd            time.Time `json:"period_end"`
}

// ScopeKey is the entitlement scope for this cycle's free-session quota.
func (a *ActiveCycle) ScopeKey() string {
	return "cycle:" + strconv.FormatInt(a.CycleID, 10)
}
