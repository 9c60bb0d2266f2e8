package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "go-event-ticketing/pkg/app_errors"
	"go-event-ticketing/pkg/logger"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindUri(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindUri(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// HandleError translates error kinds into user-facing responses. Vendor or
// storage errors never cross this boundary raw.
func HandleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		log.Warn("Capacity exceeded")
		c.JSON(http.StatusConflict, gin.H{"error": "Not enough seats remaining"})
	case errors.Is(err, apperrors.ErrInvalidQuantity):
		log.Warn("Invalid quantity")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be between 1 and the per-purchase limit"})
	case errors.Is(err, apperrors.ErrInvalidBuyerDetails):
		log.Warn("Invalid buyer details")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Buyer details are incomplete or malformed"})
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	case errors.Is(err, apperrors.ErrReservationNotFound):
		log.Warn("Reservation not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
	case errors.Is(err, apperrors.ErrEventInactive):
		log.Warn("Event inactive")
		c.JSON(http.StatusConflict, gin.H{"error": "Event is not open for sale"})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrReservationNotActive):
		log.Warn("Reservation not active")
		c.JSON(http.StatusConflict, gin.H{"error": "Reservation is no longer active"})
	case errors.Is(err, apperrors.ErrIllegalTransition):
		log.Warn("Illegal transition")
		c.JSON(http.StatusConflict, gin.H{"error": "Operation not allowed in the ticket's current state"})
	case errors.Is(err, apperrors.ErrConflict):
		log.Warn("Concurrent conflict")
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent update, please retry"})
	case errors.Is(err, apperrors.ErrGatewayRejected):
		log.Error("Gateway rejected")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider rejected the request"})
	case errors.Is(err, apperrors.ErrGatewayUnavailable):
		log.Warn("Gateway unavailable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment provider unavailable, please retry"})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
