package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-event-ticketing/internal/ledger"
	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/repository"
	"go-event-ticketing/monitoring"
	apperrors "go-event-ticketing/pkg/app_errors"
	"go-event-ticketing/pkg/logger"
)

const (
	sweepBatchSize = 100
	sweepClaimTTL  = time.Minute
)

type ReservationService interface {
	// CreateReservation 建立限時持有。容量檢查完全委派給 ledger。
	CreateReservation(ctx context.Context, eventID, buyerID uuid.UUID, quantity int) (*model.Reservation, error)
	// Cancel 買家主動取消，釋放持有的席次。
	Cancel(ctx context.Context, reservationID, buyerID uuid.UUID) error
	// Convert 只供 reconciler 在閘道發出 token 後呼叫：預約轉為票券。
	Convert(ctx context.Context, reservationID uuid.UUID, unitPrice int64, orderID, paymentToken string) (*model.Ticket, error)
	// ExpireStale 週期性清掃過期預約，歸還席次。可與自身併發執行。
	ExpireStale(ctx context.Context) (int, error)

	GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*model.Reservation, error)
}

type ReservationServiceImpl struct {
	reservations repository.ReservationRepository
	tickets      repository.TicketRepository
	inventory    ledger.InventoryLedger
	rdb          *redis.Client
	ttl          time.Duration
	maxPerOrder  int
	log          *zap.Logger
}

func NewReservationService(
	reservations repository.ReservationRepository,
	tickets repository.TicketRepository,
	inventory ledger.InventoryLedger,
	rdb *redis.Client,
	ttl time.Duration,
	maxPerOrder int,
) ReservationService {
	return &ReservationServiceImpl{
		reservations: reservations,
		tickets:      tickets,
		inventory:    inventory,
		rdb:          rdb,
		ttl:          ttl,
		maxPerOrder:  maxPerOrder,
		log:          logger.WithComponent("reservation"),
	}
}

func (s *ReservationServiceImpl) CreateReservation(ctx context.Context, eventID, buyerID uuid.UUID, quantity int) (*model.Reservation, error) {
	if quantity <= 0 || quantity > s.maxPerOrder {
		return nil, apperrors.ErrInvalidQuantity
	}

	// 1. ledger 原子性持有席次
	if err := s.inventory.TryHold(ctx, eventID, quantity); err != nil {
		monitoring.TrackHold(false)
		return nil, err
	}
	monitoring.TrackHold(true)

	// 2. 持久化預約；失敗時回滾持有(使用 context.Background() 確保一定執行)
	reservation := model.NewReservation(eventID, buyerID, quantity, s.ttl)
	created, err := s.reservations.Create(ctx, reservation)
	if err != nil {
		s.log.Error("persist reservation failed, rolling back hold",
			zap.String("event_id", eventID.String()),
			zap.Int("quantity", quantity),
			zap.Error(err))
		if releaseErr := s.inventory.ReleaseHold(context.Background(), eventID, quantity); releaseErr != nil {
			s.log.Error("rollback hold failed", zap.Error(releaseErr))
		}
		return nil, apperrors.ErrInternalServerError
	}

	return created, nil
}

func (s *ReservationServiceImpl) Cancel(ctx context.Context, reservationID, buyerID uuid.UUID) error {
	reservation, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation.BuyerID != buyerID {
		return apperrors.ErrForbidden
	}

	// status CAS 的贏家才有資格釋放席次，重複取消因此是 no-op 級錯誤
	released, err := s.reservations.UpdateStatus(ctx, reservationID,
		model.ReservationStatusActive, model.ReservationStatusReleased)
	if err != nil {
		if err == apperrors.ErrConflict {
			return apperrors.ErrReservationNotActive
		}
		return err
	}

	return s.inventory.ReleaseHold(ctx, released.EventID, released.Quantity)
}

func (s *ReservationServiceImpl) Convert(ctx context.Context, reservationID uuid.UUID, unitPrice int64, orderID, paymentToken string) (*model.Ticket, error) {
	converted, err := s.reservations.UpdateStatus(ctx, reservationID,
		model.ReservationStatusActive, model.ReservationStatusConverted)
	if err != nil {
		if err == apperrors.ErrConflict {
			// Double-convert is a programming error; an expired-then-swept
			// hold is the one legitimate way to land here.
			s.log.Error("convert on non-active reservation",
				zap.String("reservation_id", reservationID.String()))
			return nil, apperrors.ErrReservationNotActive
		}
		return nil, err
	}

	ticket, err := s.tickets.Create(ctx, model.NewTicketFromReservation(converted, unitPrice, orderID, paymentToken))
	if err != nil {
		// 預約已轉換但票券寫入失敗：席次仍在 held，callback 無從對帳。
		// 這必須大聲記錄，人工介入而不是默默吞掉。
		s.log.Error("ticket creation failed after convert",
			zap.String("reservation_id", reservationID.String()),
			zap.String("order_id", orderID),
			zap.Error(err))
		return nil, fmt.Errorf("create ticket for reservation %s: %w", reservationID, err)
	}

	return ticket, nil
}

func (s *ReservationServiceImpl) ExpireStale(ctx context.Context) (int, error) {
	expired, err := s.reservations.FindExpired(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, reservation := range expired {
		if !s.claim(ctx, reservation.ID) {
			continue
		}

		swept, err := s.reservations.UpdateStatus(ctx, reservation.ID,
			model.ReservationStatusActive, model.ReservationStatusReleased)
		if err != nil {
			// 另一個 sweeper 或買家取消搶先了，略過即可
			if err == apperrors.ErrConflict {
				continue
			}
			s.log.Warn("sweep release failed",
				zap.String("reservation_id", reservation.ID.String()),
				zap.Error(err))
			continue
		}

		if err := s.inventory.ReleaseHold(ctx, swept.EventID, swept.Quantity); err != nil {
			s.log.Error("sweep could not return seats",
				zap.String("reservation_id", swept.ID.String()),
				zap.Error(err))
			continue
		}
		released++
	}

	if released > 0 {
		monitoring.TrackSweep(released)
		s.log.Info("expiry sweep released reservations", zap.Int("count", released))
	}
	return released, nil
}

// claim takes a short-lived per-reservation lock so concurrent sweepers do
// not duplicate work. The status CAS stays the correctness guarantee; a
// failed or unavailable Redis only costs wasted attempts.
func (s *ReservationServiceImpl) claim(ctx context.Context, id uuid.UUID) bool {
	if s.rdb == nil {
		return true
	}
	ok, err := s.rdb.SetNX(ctx, "reservation:claim:"+id.String(), 1, sweepClaimTTL).Result()
	if err != nil {
		s.log.Warn("sweep claim failed", zap.String("reservation_id", id.String()), zap.Error(err))
		return true
	}
	return ok
}

func (s *ReservationServiceImpl) GetReservation(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return s.reservations.FindByID(ctx, id)
}

func (s *ReservationServiceImpl) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*model.Reservation, error) {
	return s.reservations.FindByBuyerID(ctx, buyerID)
}
