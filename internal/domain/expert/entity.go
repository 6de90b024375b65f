// internal/domain/expert/entity.go
package expert

import "time"

// Expert is a consultation provider. Profile management lives in the
// directory service; this service only reads the rate card.
type Expert struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Specialty   string    `json:"specialty"`
	HourlyRate  int64     `json:"hourly_rate"` // minor currency units per hour
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
