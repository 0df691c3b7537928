package reservations

import (
	"clinicbook/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupReservationRoutes configures all reservation-related routes
func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller) {
	reservations := rg.Group("/reservations")
	reservations.Use(middleware.JWTAuth())
	{
		reservations.POST("", controller.CreateReservation)                       // POST /api/v1/reservations
		reservations.GET("", controller.ListReservations)                         // GET  /api/v1/reservations
		reservations.GET("/:id", controller.GetReservation)                       // GET  /api/v1/reservations/:id
		reservations.POST("/:id/payment-intent", controller.CreatePaymentIntent)  // POST /api/v1/reservations/:id/payment-intent
		reservations.POST("/:id/confirm", controller.ConfirmPayment)              // POST /api/v1/reservations/:id/confirm
		reservations.POST("/:id/cancel", controller.CancelReservation)            // POST /api/v1/reservations/:id/cancel
	}
}
