// internal/handlers/booking/booking_handler.go
package booking

import (
	"net/http"
	"strconv"

	domain "wellnest-service/internal/domain/booking"
	"wellnest-service/internal/middleware"
	xerrors "wellnest-service/internal/pkg/errors"
	"wellnest-service/internal/pkg/response"
	service "wellnest-service/internal/service/booking"
	"wellnest-service/internal/service/pricing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookingService *service.BookingService
	pricingService *pricing.PricingService
	logger         *zap.Logger
}

func NewBookingHandler(bookingService *service.BookingService, pricingService *pricing.PricingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		pricingService: pricingService,
		logger:         logger,
	}
}

// Quote previews the price of a session. Reserves nothing.
func (h *BookingHandler) Quote(c *gin.Context) {
	subscriberID := middleware.MustGetIdentityID(c)

	expertID, err := strconv.ParseInt(c.Query("expert_id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid expert_id", err)
		return
	}

	quote, err := h.pricingService.Quote(c.Request.Context(), subscriberID, expertID)
	if err != nil {
		writeServiceError(c, err, "failed to quote session")
		return
	}

	response.Success(c, http.StatusOK, "quote computed", quote)
}

// Create books a session with an expert.
func (h *BookingHandler) Create(c *gin.Context) {
	requesterID := middleware.MustGetIdentityID(c)

	var req domain.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.bookingService.Create(c.Request.Context(), requesterID, &req)
	if err != nil {
		writeServiceError(c, err, "failed to create booking")
		return
	}

	response.Success(c, http.StatusCreated, "booking created", result)
}

// Get retrieves a single booking for one of its parties.
func (h *BookingHandler) Get(c *gin.Context) {
	actorID := middleware.MustGetIdentityID(c)

	result, err := h.bookingService.Get(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		writeServiceError(c, err, "failed to get booking")
		return
	}

	response.Success(c, http.StatusOK, "booking retrieved", result)
}

// List returns the caller's bookings, newest requested time first.
func (h *BookingHandler) List(c *gin.Context) {
	userID := middleware.MustGetIdentityID(c)

	result, err := h.bookingService.ListByCounterpart(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "failed to list bookings")
		return
	}

	response.Success(c, http.StatusOK, "bookings retrieved", result)
}

// Confirm moves a pending booking to confirmed (expert only).
func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, domain.StatusConfirmed)
}

// Cancel cancels a pending or confirmed booking.
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, domain.StatusCancelled)
}

// Complete marks a confirmed booking as completed (expert only).
func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, domain.StatusCompleted)
}

func (h *BookingHandler) transition(c *gin.Context, target domain.Status) {
	actorID := middleware.MustGetIdentityID(c)

	result, err := h.bookingService.Transition(c.Request.Context(), c.Param("id"), actorID, target)
	if err != nil {
		writeServiceError(c, err, "failed to transition booking")
		return
	}

	response.Success(c, http.StatusOK, "booking "+string(target), result)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(c *gin.Context, err error, message string) {
	switch {
	case xerrors.Is(err, xerrors.ErrNotFound):
		response.NotFound(c, xerrors.MessageOrDefault(err, message))
	case xerrors.Is(err, xerrors.ErrForbidden):
		response.Error(c, http.StatusForbidden, message, err)
	case xerrors.Is(err, xerrors.ErrInvalidStateTransition):
		response.Conflict(c, message, err)
	case xerrors.Is(err, xerrors.ErrStorageUnavailable):
		response.ServiceUnavailable(c, message, err)
	case xerrors.Is(err, xerrors.ErrQuotaExhausted):
		response.Error(c, http.StatusForbidden, message, err)
	case xerrors.Is(err, xerrors.ErrInvalidInput):
		response.ValidationError(c, message, err)
	default:
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}
