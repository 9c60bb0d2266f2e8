package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-event-ticketing/internal/model"
	"go-event-ticketing/internal/repository"
	"go-event-ticketing/pkg/logger"
)

// InventoryLedger 是活動席次的唯一權威計數。所有變更都委派給
// event repository 的單一條件式 UPDATE，因此兩個併發買家不可能同時
// 越過 capacity。Redis 只是查詢用的鏡像，寫入失敗不影響正確性。
type InventoryLedger interface {
	// TryHold 原子性檢查並持有席次，容量不足回傳 ErrCapacityExceeded。
	TryHold(ctx context.Context, eventID uuid.UUID, quantity int) error
	// ReleaseHold 歸還持有中的席次。
	ReleaseHold(ctx context.Context, eventID uuid.UUID, quantity int) error
	// ConfirmHold 將席次從 held 移到 confirmed。失敗代表上游有 bug。
	ConfirmHold(ctx context.Context, eventID uuid.UUID, quantity int) error
	// ReleaseConfirmed 退票路徑：歸還已確認的席次。
	ReleaseConfirmed(ctx context.Context, eventID uuid.UUID, quantity int) error
	// Availability 回傳尚可持有的席次，優先讀 Redis 鏡像。
	Availability(ctx context.Context, eventID uuid.UUID) (int, error)
	// WarmUp 以權威計數重置 Redis 鏡像。
	WarmUp(ctx context.Context, event *model.Event) error
}

type InventoryLedgerImpl struct {
	events repository.EventRepository
	rdb    *redis.Client
	log    *zap.Logger
}

func NewInventoryLedger(events repository.EventRepository, rdb *redis.Client) InventoryLedger {
	return &InventoryLedgerImpl{
		events: events,
		rdb:    rdb,
		log:    logger.WithComponent("ledger"),
	}
}

func (l *InventoryLedgerImpl) mirrorKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s:inv", eventID)
}

func (l *InventoryLedgerImpl) TryHold(ctx context.Context, eventID uuid.UUID, quantity int) error {
	if err := l.events.TryHold(ctx, eventID, quantity); err != nil {
		return err
	}
	l.mirrorIncr(ctx, eventID, "held", int64(quantity))
	return nil
}

func (l *InventoryLedgerImpl) ReleaseHold(ctx context.Context, eventID uuid.UUID, quantity int) error {
	if err := l.events.ReleaseHold(ctx, eventID, quantity); err != nil {
		l.log.Error("release hold failed",
			zap.String("event_id", eventID.String()),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return err
	}
	l.mirrorIncr(ctx, eventID, "held", int64(-quantity))
	return nil
}

func (l *InventoryLedgerImpl) ConfirmHold(ctx context.Context, eventID uuid.UUID, quantity int) error {
	if err := l.events.ConfirmHold(ctx, eventID, quantity); err != nil {
		// 不變量會被破壞時絕不放行，大聲記錄後交給上游處理。
		l.log.Error("confirm hold failed, invariant at risk",
			zap.String("event_id", eventID.String()),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return err
	}
	l.mirrorIncr(ctx, eventID, "held", int64(-quantity))
	l.mirrorIncr(ctx, eventID, "confirmed", int64(quantity))
	return nil
}

func (l *InventoryLedgerImpl) ReleaseConfirmed(ctx context.Context, eventID uuid.UUID, quantity int) error {
	if err := l.events.ReleaseConfirmed(ctx, eventID, quantity); err != nil {
		l.log.Error("release confirmed failed",
			zap.String("event_id", eventID.String()),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return err
	}
	l.mirrorIncr(ctx, eventID, "confirmed", int64(-quantity))
	return nil
}

func (l *InventoryLedgerImpl) Availability(ctx context.Context, eventID uuid.UUID) (int, error) {
	if l.rdb != nil {
		result, err := l.rdb.HGetAll(ctx, l.mirrorKey(eventID)).Result()
		if err == nil && len(result) > 0 {
			capacity, capErr := strconv.Atoi(result["capacity"])
			confirmed, confErr := strconv.Atoi(result["confirmed"])
			held, heldErr := strconv.Atoi(result["held"])
			if capErr == nil && confErr == nil && heldErr == nil {
				return capacity - confirmed - held, nil
			}
		}
	}

	// Mirror miss or malformed entry: answer from the authoritative store.
	event, err := l.events.FindByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if warmErr := l.WarmUp(ctx, event); warmErr != nil {
		l.log.Warn("mirror warm-up failed", zap.String("event_id", eventID.String()), zap.Error(warmErr))
	}
	return event.Remaining(), nil
}

func (l *InventoryLedgerImpl) WarmUp(ctx context.Context, event *model.Event) error {
	if l.rdb == nil {
		return nil
	}
	return l.rdb.HSet(ctx, l.mirrorKey(event.ID), map[string]interface{}{
		"capacity":  event.Capacity,
		"confirmed": event.ConfirmedSeats,
		"held":      event.HeldSeats,
	}).Err()
}

// mirrorIncr 盡力而為地更新鏡像；失敗只記 log，下次 warm-up 會修正。
func (l *InventoryLedgerImpl) mirrorIncr(ctx context.Context, eventID uuid.UUID, field string, delta int64) {
	if l.rdb == nil {
		return
	}
	if err := l.rdb.HIncrBy(ctx, l.mirrorKey(eventID), field, delta).Err(); err != nil {
		l.log.Warn("mirror update failed",
			zap.String("event_id", eventID.String()),
			zap.String("field", field),
			zap.Error(err))
	}
}
