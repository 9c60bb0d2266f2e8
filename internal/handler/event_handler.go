package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/service"
)

type EventHandler struct {
	events service.EventService
}

func NewEventHandler(events service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

func (h *EventHandler) RegisterRoutes(public *gin.RouterGroup, admin *gin.RouterGroup) {
	public.GET("events", h.ListEvents)
	public.GET("events/:id", h.GetEvent)
	public.GET("events/:id/availability", h.Availability)
	admin.POST("events", h.CreateEvent)
	admin.PUT("events/:id", h.UpdateEvent)
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	event, err := h.events.CreateEvent(c, req)
	if err != nil {
		HandleError(c, err, "CreateEvent")
		return
	}

	c.JSON(http.StatusCreated, event)
}

type updateEventRequest struct {
	Name     *string            `json:"name"`
	Category *string            `json:"category"`
	Status   *model.EventStatus `json:"status"`
	Capacity *int               `json:"capacity"`
	Price    *int64             `json:"price"`
}

func (h *EventHandler) UpdateEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}
	var req updateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	if req.Status != nil && !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Capacity must be positive"})
		return
	}

	event, err := h.events.UpdateEvent(c, eventID, model.UpdateEventParams{
		Name:     req.Name,
		Category: req.Category,
		Status:   req.Status,
		Capacity: req.Capacity,
		Price:    req.Price,
	})
	if err != nil {
		HandleError(c, err, "UpdateEvent")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.events.ListEvents(c)
	if err != nil {
		HandleError(c, err, "ListEvents")
		return
	}

	responses := make([]model.EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, model.EventResponse{
			ID:        event.ID,
			Name:      event.Name,
			Category:  event.Category,
			Status:    string(event.Status),
			Capacity:  event.Capacity,
			Price:     event.Price,
			Remaining: event.Remaining(),
			StartsAt:  event.StartsAt,
			EndsAt:    event.EndsAt,
		})
	}

	c.JSON(http.StatusOK, responses)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	event, err := h.events.GetEvent(c, eventID)
	if err != nil {
		HandleError(c, err, "GetEvent")
		return
	}

	c.JSON(http.StatusOK, event)
}

func (h *EventHandler) Availability(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	remaining, err := h.events.Availability(c, eventID)
	if err != nil {
		HandleError(c, err, "Availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_id": eventID, "remaining": remaining})
}
