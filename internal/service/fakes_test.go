package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-event-ticketing/internal/gateway"
	"go-event-ticketing/internal/model"
	apperrors "go-event-ticketing/pkg/app_errors"
)

// In-memory repository fakes with the same compare-and-swap semantics as the
// SQL implementations, so concurrency properties can be exercised hermetically.

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*model.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[uuid.UUID]*model.Event)}
}

func (r *fakeEventRepo) Create(_ context.Context, event *model.Event) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *event
	r.events[event.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeEventRepo) List(_ context.Context) ([]*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]*model.Event, 0, len(r.events))
	for _, event := range r.events {
		copied := *event
		events = append(events, &copied)
	}
	return events, nil
}

func (r *fakeEventRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) Update(_ context.Context, id uuid.UUID, values map[string]interface{}) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	for column, value := range values {
		switch column {
		case "name":
			event.Name = value.(string)
		case "category":
			event.Category = value.(string)
		case "status":
			event.Status = value.(model.EventStatus)
		case "capacity":
			event.Capacity = value.(int)
		case "price":
			event.Price = value.(int64)
		case "starts_at":
			event.StartsAt = value.(time.Time)
		case "ends_at":
			event.EndsAt = value.(time.Time)
		default:
			return nil, apperrors.ErrInvalidInput
		}
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) TryHold(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if !event.IsActive() {
		return apperrors.ErrEventInactive
	}
	if event.ConfirmedSeats+event.HeldSeats+quantity > event.Capacity {
		return apperrors.ErrCapacityExceeded
	}
	event.HeldSeats += quantity
	return nil
}

func (r *fakeEventRepo) ReleaseHold(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.HeldSeats < quantity {
		return apperrors.ErrIntegrity
	}
	event.HeldSeats -= quantity
	return nil
}

func (r *fakeEventRepo) ConfirmHold(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.HeldSeats < quantity {
		return apperrors.ErrIntegrity
	}
	event.HeldSeats -= quantity
	event.ConfirmedSeats += quantity
	return nil
}

func (r *fakeEventRepo) ReleaseConfirmed(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.ConfirmedSeats < quantity {
		return apperrors.ErrIntegrity
	}
	event.ConfirmedSeats -= quantity
	return nil
}

type fakeReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*model.Reservation
	failCreate   bool
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{reservations: make(map[uuid.UUID]*model.Reservation)}
}

func (r *fakeReservationRepo) Create(_ context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.New("db down")
	}
	stored := *reservation
	r.reservations[reservation.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[id]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	copied := *reservation
	return &copied, nil
}

func (r *fakeReservationRepo) FindByBuyerID(_ context.Context, buyerID uuid.UUID) ([]*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.Reservation, 0)
	for _, reservation := range r.reservations {
		if reservation.BuyerID == buyerID {
			copied := *reservation
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeReservationRepo) FindExpired(_ context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.Reservation, 0)
	for _, reservation := range r.reservations {
		if reservation.Status == model.ReservationStatusActive && !now.Before(reservation.ExpiresAt) {
			copied := *reservation
			result = append(result, &copied)
			if len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *fakeReservationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.ReservationStatus) (*model.Reservation, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperrors.ErrIllegalTransition
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reservation, ok := r.reservations[id]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	if reservation.Status != from {
		return nil, apperrors.ErrConflict
	}
	reservation.Status = to
	copied := *reservation
	return &copied, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[uuid.UUID]*model.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[uuid.UUID]*model.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *ticket
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.tickets[ticket.ID] = &stored
	copied := stored
	return &copied, nil
}

func (r *fakeTicketRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) FindByOrderID(_ context.Context, orderID string) (*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.OrderID == orderID {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, apperrors.ErrTicketNotFound
}

func (r *fakeTicketRepo) FindByBuyerID(_ context.Context, buyerID uuid.UUID) ([]*model.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.Ticket, 0)
	for _, ticket := range r.tickets {
		if ticket.BuyerID == buyerID {
			copied := *ticket
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeTicketRepo) UpdateState(_ context.Context, id uuid.UUID, from, to model.TicketState, version int, checkInTime *time.Time) (*model.Ticket, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperrors.ErrIllegalTransition
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	if ticket.State != from || ticket.Version != version {
		return nil, apperrors.ErrConflict
	}
	ticket.State = to
	ticket.Version++
	ticket.UpdatedAt = time.Now().UTC()
	if checkInTime != nil {
		ticket.CheckInTime = checkInTime
	}
	copied := *ticket
	return &copied, nil
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []gateway.CreateTransactionRequest
	err   error
}

func (g *fakeGateway) CreateTransaction(_ context.Context, req gateway.CreateTransactionRequest) (*gateway.CreateTransactionResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return &gateway.CreateTransactionResponse{
		Token:       "tok-" + req.OrderID,
		RedirectURL: "https://gateway.example/pay/" + req.OrderID,
	}, nil
}
