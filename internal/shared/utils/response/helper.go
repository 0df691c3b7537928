// Package response holds the JSON envelope every booking API endpoint
// replies with, success and error alike.
package response

import "github.com/gin-gonic/gin"

// RespondJSON writes the standard envelope. Booking-flow rejections
// (slot taken, reservation closed) travel through data/errors, not
// bare strings, so clients can branch on structure.
func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}
