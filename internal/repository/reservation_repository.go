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

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	FindByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]*model.Reservation, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error)

	// UpdateStatus is a compare-and-swap on the status column. It returns
	// ErrConflict when the reservation is no longer in the expected status,
	// so concurrent sweeps, cancels and converts cannot double-apply.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.ReservationStatus) (*model.Reservation, error)
}

type ReservationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &ReservationRepositoryImpl{
		pool: pool,
	}
}

const reservationColumns = `id, event_id, buyer_id, quantity, status, created_at, expires_at`

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var reservation model.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.EventID,
		&reservation.BuyerID,
		&reservation.Quantity,
		&reservation.Status,
		&reservation.CreatedAt,
		&reservation.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *ReservationRepositoryImpl) Create(ctx context.Context, reservation *model.Reservation) (*model.Reservation, error) {
	query := `
		INSERT INTO reservations (
			id, event_id, buyer_id, quantity, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + reservationColumns

	created, err := scanReservation(r.pool.QueryRow(ctx, query,
		reservation.ID, reservation.EventID, reservation.BuyerID,
		reservation.Quantity, reservation.Status,
		reservation.CreatedAt, reservation.ExpiresAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	return created, nil
}

func (r *ReservationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE id = $1
	`

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, err
	}

	return reservation, nil
}

func (r *ReservationRepositoryImpl) FindByBuyerID(ctx context.Context, buyerID uuid.UUID) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)

	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *ReservationRepositoryImpl) FindExpired(ctx context.Context, now time.Time, limit int) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)

	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *ReservationRepositoryImpl) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.ReservationStatus,
) (*model.Reservation, error) {
	if !from.CanTransitionTo(to) {
		return nil, apperrors.ErrIllegalTransition
	}

	query := `
		UPDATE reservations
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING ` + reservationColumns

	reservation, err := scanReservation(r.pool.QueryRow(ctx, query, to, id, from))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the row is gone or another writer moved it first.
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return nil, findErr
			}
			return nil, apperrors.ErrConflict
		}
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}

	return reservation, nil
}
