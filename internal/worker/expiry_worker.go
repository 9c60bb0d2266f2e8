package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-event-ticketing/internal/service"
	"go-event-ticketing/pkg/logger"
)

// ExpiryWorker 週期性清掃過期預約。容量在掃到之前不會真正釋放，
// 所以 interval 是正確性與可用性之間的調校點。
type ExpiryWorker interface {
	Start(ctx context.Context)
}

type ExpiryWorkerImpl struct {
	reservations service.ReservationService
	interval     time.Duration
	log          *zap.Logger
}

func NewExpiryWorker(reservations service.ReservationService, interval time.Duration) ExpiryWorker {
	return &ExpiryWorkerImpl{
		reservations: reservations,
		interval:     interval,
		log:          logger.WithComponent("sweeper"),
	}
}

func (w *ExpiryWorkerImpl) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.log.Info("expiry sweeper stopped")
				return
			case <-ticker.C:
				if _, err := w.reservations.ExpireStale(ctx); err != nil {
					w.log.Error("expiry sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
