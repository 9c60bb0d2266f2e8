package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-event-ticketing/internal/model"
	apperrors "go-event-ticketing/pkg/app_errors"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.Ticket, error)
	FindByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]*model.Ticket, error)

	// UpdateState applies a lifecycle transition with optimistic
	// concurrency: the write succeeds only when the stored version still
	// matches the version the caller read. A stale version returns
	// ErrConflict; a move the state machine forbids returns
	// ErrIllegalTransition without touching the store.
	UpdateState(ctx context.Context, id uuid.UUID, from, to model.TicketState, version int, checkInTime *time.Time) (*model.Ticket, error)
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

const ticketColumns = `id, event_id, buyer_id, reservation_id, quantity,
		unit_price, total_price, order_id, payment_token, state,
		check_in_time, version, created_at, updated_at`

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.BuyerID,
		&ticket.ReservationID,
		&ticket.Quantity,
		&ticket.UnitPrice,
		&ticket.TotalPrice,
		&ticket.OrderID,
		&ticket.PaymentToken,
		&ticket.State,
		&ticket.CheckInTime,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) Create(ctx context.Context, ticket *model.Ticket) (*model.Ticket, error) {
	query := `
		INSERT INTO tickets (
			id, event_id, buyer_id, reservation_id, quantity,
			unit_price, total_price, order_id, payment_token, state, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + ticketColumns

	created, err := scanTicket(r.pool.QueryRow(ctx, query,
		ticket.ID, ticket.EventID, ticket.BuyerID, ticket.ReservationID,
		ticket.Quantity, ticket.UnitPrice, ticket.TotalPrice,
		ticket.OrderID, ticket.PaymentToken, ticket.State, ticket.Version,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	return created, nil
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE id = $1
	`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}

	return ticket, nil
}

func (r *TicketRepositoryImpl) FindByOrderID(ctx context.Context, orderID string) (*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE order_id = $1
	`

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}

	return ticket, nil
}

func (r *TicketRepositoryImpl) FindByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]*model.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)

	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (r *TicketRepositoryImpl) UpdateState(
	ctx context.Context,
	id uuid.UUID,
	from, to model.TicketState,
	version int,
	checkInTime *time.Time,
) (*model.Ticket, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperrors.ErrIllegalTransition
	}

	query := `
		UPDATE tickets
		SET state = $1,
			check_in_time = COALESCE($2, check_in_time),
			version = version + 1,
			updated_at = $3
		WHERE id = $4 AND state = $5 AND version = $6
		RETURNING ` + ticketColumns

	ticket, err := scanTicket(r.pool.QueryRow(ctx, query,
		to, checkInTime, time.Now().UTC(), id, from, version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("failed to update ticket state: %w", err)
	}

	return ticket, nil
}
