// internal/domain/booking/dto.go
package booking

import "time"

// CreateBookingRequest is the payload for booking a session with an expert.
type CreateBookingRequest struct {
	ExpertID      int64     `json:"expert_id" binding:"required"`
	RequestedTime time.Time `json:"requested_time" binding:"required"`
}
