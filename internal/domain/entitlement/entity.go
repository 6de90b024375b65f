// internal/domain/entitlement/entity.go
package entitlement

import "time"

// Kind identifies which quota an entitlement row belongs to. The store treats
// it as opaque; only the scope-key convention differs per kind.
type Kind string

const (
	// KindFreeSession counts free consultation sessions, scoped by
	// subscription cycle id.
	KindFreeSession Kind = "free_session"

	// KindRecipeView counts free recipe views, scoped by calendar day.
	KindRecipeView Kind = "recipe_view"
)

// Usage is one quota counter for a (subscriber, kind, scope) triple. Rows are
// append-only per scope: a rollover lands on a fresh row and the old scope's
// count stays retrievable.
type Usage struct {
	SubscriberID  int64     `json:"subscriber_id"`
	Kind          Kind      `json:"kind"`
	ScopeKey      string    `json:"scope_key"`
	UnitsConsumed int       `json:"units_consumed"`
	LastResetAt   time.Time `json:"last_reset_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DayScope returns the scope key for the calendar day of t.
func DayScope(t time.Time) string {
	return t.Format("2006-01-02")
}
