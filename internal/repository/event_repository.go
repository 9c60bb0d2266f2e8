package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-event-ticketing/internal/model"
	apperrors "go-event-ticketing/pkg/app_errors"
)

type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (*model.Event, error)

	// Seat counter methods. Each is a single conditional UPDATE so the
	// capacity invariant is enforced atomically by the store itself.
	TryHold(ctx context.Context, id uuid.UUID, quantity int) error
	ReleaseHold(ctx context.Context, id uuid.UUID, quantity int) error
	ConfirmHold(ctx context.Context, id uuid.UUID, quantity int) error
	ReleaseConfirmed(ctx context.Context, id uuid.UUID, quantity int) error
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

const eventColumns = `id, name, category, status, capacity, price,
		confirmed_seats, held_seats, starts_at, ends_at, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Category,
		&event.Status,
		&event.Capacity,
		&event.Price,
		&event.ConfirmedSeats,
		&event.HeldSeats,
		&event.StartsAt,
		&event.EndsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	query := `
		INSERT INTO events (
			id, name, category, status, capacity, price, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + eventColumns

	created, err := scanEvent(r.pool.QueryRow(ctx, query,
		event.ID, event.Name, event.Category, event.Status,
		event.Capacity, event.Price, event.StartsAt, event.EndsAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return created, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY starts_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`

	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, id uuid.UUID, values map[string]interface{}) (*model.Event, error) {
	allowedFields := map[string]bool{
		"name":      true,
		"category":  true,
		"status":    true,
		"capacity":  true,
		"price":     true,
		"starts_at": true,
		"ends_at":   true,
	}

	sets := []string{}
	args := []interface{}{}
	argPos := 1

	for column, value := range values {
		if ok := allowedFields[column]; !ok {
			return nil, apperrors.ErrInvalidInput
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE events
		SET %s
		WHERE id = $%d
		RETURNING `+eventColumns, strings.Join(sets, ", "), argPos)

	event, err := scanEvent(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}

	return event, nil
}

// TryHold increments held_seats only while confirmed + held + quantity stays
// within capacity. Zero rows affected means the event is missing, inactive,
// or out of capacity; a point read afterwards disambiguates.
func (r *EventRepositoryImpl) TryHold(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE events
		SET held_seats = held_seats + $1, updated_at = $2
		WHERE id = $3
		  AND status = 'active'
		  AND confirmed_seats + held_seats + $1 <= capacity
	`

	result, err := r.pool.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		event, err := r.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !event.IsActive() {
			return apperrors.ErrEventInactive
		}
		return apperrors.ErrCapacityExceeded
	}

	return nil
}

func (r *EventRepositoryImpl) ReleaseHold(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE events
		SET held_seats = held_seats - $1, updated_at = $2
		WHERE id = $3 AND held_seats >= $1
	`

	result, err := r.pool.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrIntegrity
	}

	return nil
}

func (r *EventRepositoryImpl) ConfirmHold(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE events
		SET held_seats = held_seats - $1,
			confirmed_seats = confirmed_seats + $1,
			updated_at = $2
		WHERE id = $3 AND held_seats >= $1
	`

	result, err := r.pool.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrIntegrity
	}

	return nil
}

// ReleaseConfirmed returns confirmed seats to the pool when a paid ticket is
// cancelled (refund path).
func (r *EventRepositoryImpl) ReleaseConfirmed(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE events
		SET confirmed_seats = confirmed_seats - $1, updated_at = $2
		WHERE id = $3 AND confirmed_seats >= $1
	`

	result, err := r.pool.Exec(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrIntegrity
	}

	return nil
}
