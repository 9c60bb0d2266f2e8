package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"go-event-ticketing/internal/middleware"
	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/service"
)

type CheckInHandler struct {
	checkIn  service.CheckInService
	payments service.PaymentService
	qrSecret string
}

func NewCheckInHandler(checkIn service.CheckInService, payments service.PaymentService, qrSecret string) *CheckInHandler {
	return &CheckInHandler{
		checkIn:  checkIn,
		payments: payments,
		qrSecret: qrSecret,
	}
}

func (h *CheckInHandler) RegisterRoutes(r *gin.RouterGroup, admin *gin.RouterGroup) {
	r.GET("tickets/:id/qr", h.TicketQR)
	admin.POST("checkin", h.Scan)
}

// TicketQR 回傳持票人出示用的 QR PNG，只對 paid 票券簽發。
func (h *CheckInHandler) TicketQR(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ticket id"})
		return
	}
	buyerID, ok := middleware.BuyerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ticket, err := h.payments.GetTicket(c, ticketID)
	if err != nil {
		HandleError(c, err, "TicketQR")
		return
	}
	if ticket.BuyerID != buyerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}
	if ticket.State != model.TicketStatePaid {
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is not paid"})
		return
	}

	payload := encodeQRPayload(ticket.ID, ticket.EventID, h.qrSecret)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

type scanRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

// Scan 入場掃描。對同一張票而言結果是冪等的：恰好一次 accepted。
func (h *CheckInHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	ticketID, eventID, err := decodeQRPayload(req.QRData, h.qrSecret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid QR code"})
		return
	}

	outcome, err := h.checkIn.CheckIn(c, ticketID, eventID, time.Now().UTC())
	if err != nil {
		HandleError(c, err, "Scan")
		return
	}

	status := http.StatusOK
	if outcome.Result != service.CheckInAccepted {
		status = http.StatusConflict
		if outcome.Result == service.CheckInNotFound {
			status = http.StatusNotFound
		}
	}
	c.JSON(status, outcome)
}
