package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-event-ticketing/internal/ledger"
	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/repository"
	"go-event-ticketing/pkg/logger"
)

type EventService interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)
	Availability(ctx context.Context, id uuid.UUID) (int, error)
}

type EventServiceImpl struct {
	events    repository.EventRepository
	inventory ledger.InventoryLedger
	log       *zap.Logger
}

func NewEventService(events repository.EventRepository, inventory ledger.InventoryLedger) EventService {
	return &EventServiceImpl{
		events:    events,
		inventory: inventory,
		log:       logger.WithComponent("event"),
	}
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event, err := model.NewEvent(req.Name, req.Category, req.Capacity, req.Price, req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	created, err := s.events.Create(ctx, event)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.WarmUp(ctx, created); err != nil {
		s.log.Warn("inventory mirror warm-up failed",
			zap.String("event_id", created.ID.String()), zap.Error(err))
	}

	return created, nil
}

// UpdateEvent edits event fields. Lowering capacity never touches existing
// confirmed tickets; it only makes future holds fail sooner.
func (s *EventServiceImpl) UpdateEvent(ctx context.Context, id uuid.UUID, params model.UpdateEventParams) (*model.Event, error) {
	values := map[string]interface{}{}
	if params.Name != nil {
		values["name"] = *params.Name
	}
	if params.Category != nil {
		values["category"] = *params.Category
	}
	if params.Status != nil {
		values["status"] = *params.Status
	}
	if params.Capacity != nil {
		values["capacity"] = *params.Capacity
	}
	if params.Price != nil {
		values["price"] = *params.Price
	}
	if params.StartsAt != nil {
		values["starts_at"] = params.StartsAt.UTC()
	}
	if params.EndsAt != nil {
		values["ends_at"] = params.EndsAt.UTC()
	}

	updated, err := s.events.Update(ctx, id, values)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.WarmUp(ctx, updated); err != nil {
		s.log.Warn("inventory mirror warm-up failed",
			zap.String("event_id", updated.ID.String()), zap.Error(err))
	}

	return updated, nil
}

func (s *EventServiceImpl) ListEvents(ctx context.Context) ([]*model.Event, error) {
	return s.events.List(ctx)
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.events.FindByID(ctx, id)
}

func (s *EventServiceImpl) Availability(ctx context.Context, id uuid.UUID) (int, error) {
	return s.inventory.Availability(ctx, id)
}
