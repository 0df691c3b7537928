package reservations

import (
	"errors"
	"net/http"

	"clinicbook/internal/catalog"
	"clinicbook/internal/payments"
	"clinicbook/internal/shared/middleware"
	"clinicbook/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateReservation handles POST /api/v1/reservations
// An Idempotency-Key header makes retries replay the original
// reservation instead of opening a second hold.
func (c *Controller) CreateReservation(ctx *gin.Context) {
	patientID, ok := middleware.CallerID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	idempotencyKey := ctx.GetHeader("Idempotency-Key")

	reservation, replayed, err := c.service.CreateReservation(ctx.Request.Context(), patientID, req, idempotencyKey)
	if err != nil {
		c.respondError(ctx, err, "Failed to create reservation")
		return
	}

	status := http.StatusCreated
	message := "Reservation created. Complete payment within the hold window."
	if replayed {
		status = http.StatusOK
		message = "Reservation replayed from idempotency key"
	}
	response.RespondJSON(ctx, "success", status, message, reservation.ToResponse(), nil)
}

// CreatePaymentIntent handles POST /api/v1/reservations/:id/payment-intent
func (c *Controller) CreatePaymentIntent(ctx *gin.Context) {
	patientID, reservationID, ok := c.callerAndID(ctx)
	if !ok {
		return
	}

	intent, err := c.service.CreatePaymentIntent(ctx.Request.Context(), patientID, reservationID)
	if err != nil {
		c.respondError(ctx, err, "Failed to create payment intent")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Payment intent created", intent, nil)
}

// ConfirmPayment handles POST /api/v1/reservations/:id/confirm
func (c *Controller) ConfirmPayment(ctx *gin.Context) {
	patientID, reservationID, ok := c.callerAndID(ctx)
	if !ok {
		return
	}

	reservation, err := c.service.ConfirmPayment(ctx.Request.Context(), patientID, reservationID)
	if err != nil {
		c.respondError(ctx, err, "Failed to confirm reservation")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation confirmed", reservation.ToResponse(), nil)
}

// CancelReservation handles POST /api/v1/reservations/:id/cancel
func (c *Controller) CancelReservation(ctx *gin.Context) {
	patientID, reservationID, ok := c.callerAndID(ctx)
	if !ok {
		return
	}

	reservation, err := c.service.CancelReservation(ctx.Request.Context(), patientID, reservationID)
	if err != nil {
		c.respondError(ctx, err, "Failed to cancel reservation")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation cancelled", reservation.ToResponse(), nil)
}

// GetReservation handles GET /api/v1/reservations/:id
func (c *Controller) GetReservation(ctx *gin.Context) {
	patientID, reservationID, ok := c.callerAndID(ctx)
	if !ok {
		return
	}

	reservation, err := c.service.GetReservation(ctx.Request.Context(), patientID, reservationID)
	if err != nil {
		c.respondError(ctx, err, "Failed to fetch reservation")
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation retrieved", reservation.ToResponse(), nil)
}

// ListReservations handles GET /api/v1/reservations?status=&limit=&offset=
func (c *Controller) ListReservations(ctx *gin.Context) {
	patientID, ok := middleware.CallerID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query ListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	reservations, total, err := c.service.ListReservations(ctx.Request.Context(), patientID, query)
	if err != nil {
		c.respondError(ctx, err, "Failed to list reservations")
		return
	}

	responses := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		responses = append(responses, reservations[i].ToResponse())
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservations retrieved", gin.H{
		"reservations": responses,
		"total":        total,
	}, nil)
}

func (c *Controller) callerAndID(ctx *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	patientID, ok := middleware.CallerID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return uuid.Nil, uuid.Nil, false
	}

	reservationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid reservation ID", nil, nil)
		return uuid.Nil, uuid.Nil, false
	}

	return patientID, reservationID, true
}

// respondError maps domain errors onto HTTP statuses. Conflict-class
// outcomes all land on 409; the message carries the distinction.
func (c *Controller) respondError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, catalog.ErrResourceNotFound):
		response.RespondJSON(ctx, "error", http.StatusNotFound, err.Error(), nil, nil)
	case errors.Is(err, ErrUnauthorized):
		response.RespondJSON(ctx, "error", http.StatusForbidden, err.Error(), nil, nil)
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrResourceUnavailable),
		errors.Is(err, ErrAlreadyFinalized), errors.Is(err, ErrReservationClosed),
		errors.Is(err, ErrPaymentNotInitiated):
		response.RespondJSON(ctx, "error", http.StatusConflict, err.Error(), nil, nil)
	case errors.Is(err, ErrSlotLost):
		response.RespondJSON(ctx, "error", http.StatusConflict, err.Error(), gin.H{
			"refund_required": true,
		}, nil)
	case errors.Is(err, ErrCaptureDeclined):
		response.RespondJSON(ctx, "error", http.StatusPaymentRequired, err.Error(), nil, nil)
	case errors.Is(err, payments.ErrProviderUnavailable):
		response.RespondJSON(ctx, "error", http.StatusBadGateway, "Payment provider unavailable, try again", nil, nil)
	default:
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, fallback, nil, nil)
	}
}
