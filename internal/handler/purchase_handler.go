package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-event-ticketing/internal/middleware"
	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/service"
	apperrors "go-event-ticketing/pkg/app_errors"
)

type PurchaseHandler struct {
	reservations service.ReservationService
	payments     service.PaymentService
}

func NewPurchaseHandler(reservations service.ReservationService, payments service.PaymentService) *PurchaseHandler {
	return &PurchaseHandler{
		reservations: reservations,
		payments:     payments,
	}
}

func (h *PurchaseHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("purchase", h.Purchase)
	r.POST("reservations", h.CreateReservation)
	r.POST("reservations/:id/pay", h.Pay)
	r.POST("reservations/:id/cancel", h.CancelReservation)
	r.GET("reservations", h.ListReservations)
	r.GET("tickets", h.ListTickets)
	r.GET("tickets/:id", h.GetTicket)
	r.POST("tickets/:id/cancel", h.CancelTicket)
}

type purchaseRequest struct {
	EventID  uuid.UUID          `json:"event_id" binding:"required"`
	Quantity int                `json:"quantity" binding:"required,min=1"`
	Buyer    model.BuyerDetails `json:"buyer" binding:"required"`
}

// Purchase 一次完成持有與付款初始化。閘道失敗時持有保留，回應附上
// reservation_id 讓買家稍後重試付款。
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	buyerID, ok := middleware.BuyerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	reservation, err := h.reservations.CreateReservation(c, req.EventID, buyerID, req.Quantity)
	if err != nil {
		HandleError(c, err, "Purchase")
		return
	}

	session, err := h.payments.InitiatePayment(c, reservation.ID, buyerID, req.Buyer)
	if err != nil {
		// 閘道層的任何失敗都附上 reservation_id:持有仍然有效,
		// 買家可以用 /reservations/:id/pay 重試
		if errors.Is(err, apperrors.ErrGatewayUnavailable) || errors.Is(err, apperrors.ErrGatewayRejected) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":          "Payment could not be initiated, retry payment with the reservation",
				"reservation_id": reservation.ID,
			})
			return
		}
		HandleError(c, err, "Purchase")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"reservation": reservation,
		"ticket":      session.Ticket,
		"token":       session.Token,
		"redirect_url": session.RedirectURL,
	})
}

func (h *PurchaseHandler) CreateReservation(c *gin.Context) {
	var req model.CreateReservationRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	buyerID, ok := middleware.BuyerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	reservation, err := h.reservations.CreateReservation(c, req.EventID, buyerID, req.Quantity)
	if err != nil {
		HandleError(c, err, "CreateReservation")
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

type payRequest struct {
	Buyer model.BuyerDetails `json:"buyer" binding:"required"`
}

func (h *PurchaseHandler) Pay(c *gin.Context) {
	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation id"})
		return
	}
	var req payRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	buyerID, ok := middleware.BuyerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	session, err := h.payments.InitiatePayment(c, reservationID, buyerID, req.Buyer)
	if err != nil {
		HandleError(c, err, "Pay")
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *PurchaseHandler) CancelReservation(c *gin.Context) {
	reservationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation id"})
		return
	}
	buyerID, ok := middleware.BuyerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	if err := h.reservations.Cancel(c, reservationID, buyerID); err != nil {
		HandleError(c, err, "CancelReservation")
		return
	}

	c.Status(http.StatusOK)
}

func (h *PurchaseHandler) ListReservations(c *gin.Context) {
	buyerID, ok := middleware.BuyerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	reservations, err := h.reservations.ListByBuyer(c, buyerID)
	if err != nil {
		HandleError(c, err, "ListReservations")
		return
	}

	c.JSON(http.StatusOK, reservations)
}

func (h *PurchaseHandler) ListTickets(c *gin.Context) {
	buyerID, ok := middleware.BuyerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	tickets, err := h.payments.ListTicketsByBuyer(c, buyerID)
	if err != nil {
		HandleError(c, err, "ListTickets")
		return
	}

	c.JSON(http.StatusOK, tickets)
}

func (h *PurchaseHandler) GetTicket(c *gin.Context) {
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
		HandleError(c, err, "GetTicket")
		return
	}
	if ticket.BuyerID != buyerID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *PurchaseHandler) CancelTicket(c *gin.Context) {
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

	if err := h.payments.CancelTicket(c, ticketID, buyerID, middleware.IsAdmin(c)); err != nil {
		HandleError(c, err, "CancelTicket")
		return
	}

	c.Status(http.StatusOK)
}
