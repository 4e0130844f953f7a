package response

import (
	"errors"
	"net/http"

	"fieldbooking/internal/domain"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// Status maps an error kind to its HTTP status and error code.
func Status(err error) (int, string) {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case domain.IsForbidden(err):
		return http.StatusForbidden, "FORBIDDEN"
	case domain.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case domain.IsConflict(err):
		if errors.Is(err, domain.ErrSlotUnavailable) {
			return http.StatusConflict, "BOOKING_CONFLICT"
		}
		return http.StatusConflict, "CONFLICT"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// FromError writes the error envelope for err. Infrastructure details are not exposed.
func FromError(c *gin.Context, err error) {
	status, code := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}

	var verr domain.ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		ErrorWithDetails(c, status, code, message, gin.H{"field": verr.Field})
		return
	}
	Error(c, status, code, message)
}
