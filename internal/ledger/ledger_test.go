package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-event-ticketing/internal/ledger"
	"go-event-ticketing/internal/model"
	apperrors "go-event-ticketing/pkg/app_errors"
)

// stubEventRepo implements just enough of repository.EventRepository to stand
// in for the authoritative store.
type stubEventRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*model.Event
}

func newStubEventRepo(events ...*model.Event) *stubEventRepo {
	repo := &stubEventRepo{events: make(map[uuid.UUID]*model.Event)}
	for _, event := range events {
		repo.events[event.ID] = event
	}
	return repo
}

func (r *stubEventRepo) Create(_ context.Context, event *model.Event) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = event
	return event, nil
}

func (r *stubEventRepo) List(_ context.Context) ([]*model.Event, error) {
	return nil, nil
}

func (r *stubEventRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

func (r *stubEventRepo) Update(_ context.Context, id uuid.UUID, _ map[string]interface{}) (*model.Event, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubEventRepo) TryHold(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	if event.ConfirmedSeats+event.HeldSeats+quantity > event.Capacity {
		return apperrors.ErrCapacityExceeded
	}
	event.HeldSeats += quantity
	return nil
}

func (r *stubEventRepo) ReleaseHold(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.HeldSeats < quantity {
		return apperrors.ErrIntegrity
	}
	event.HeldSeats -= quantity
	return nil
}

func (r *stubEventRepo) ConfirmHold(_ context.Context, id uuid.UUID, quantity int) error {
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

func (r *stubEventRepo) ReleaseConfirmed(_ context.Context, id uuid.UUID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok || event.ConfirmedSeats < quantity {
		return apperrors.ErrIntegrity
	}
	event.ConfirmedSeats -= quantity
	return nil
}

func mirrorKey(id uuid.UUID) string {
	return fmt.Sprintf("event:%s:inv", id)
}

func testEvent(capacity int) *model.Event {
	return &model.Event{
		ID:       uuid.New(),
		Name:     "Concert",
		Status:   model.EventStatusActive,
		Capacity: capacity,
		Price:    50000,
	}
}

func TestTryHoldUpdatesMirror(t *testing.T) {
	event := testEvent(10)
	repo := newStubEventRepo(event)
	rdb, mock := redismock.NewClientMock()
	mock.ExpectHIncrBy(mirrorKey(event.ID), "held", 2).SetVal(2)

	inventory := ledger.NewInventoryLedger(repo, rdb)

	require.NoError(t, inventory.TryHold(context.Background(), event.ID, 2))
	assert.Equal(t, 2, event.HeldSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTryHoldCapacityExceededSkipsMirror(t *testing.T) {
	event := testEvent(3)
	repo := newStubEventRepo(event)
	rdb, mock := redismock.NewClientMock()

	inventory := ledger.NewInventoryLedger(repo, rdb)

	err := inventory.TryHold(context.Background(), event.ID, 4)
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	assert.Equal(t, 0, event.HeldSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmHoldMovesHeldToConfirmed(t *testing.T) {
	event := testEvent(10)
	event.HeldSeats = 2
	repo := newStubEventRepo(event)
	rdb, mock := redismock.NewClientMock()
	mock.ExpectHIncrBy(mirrorKey(event.ID), "held", -2).SetVal(0)
	mock.ExpectHIncrBy(mirrorKey(event.ID), "confirmed", 2).SetVal(2)

	inventory := ledger.NewInventoryLedger(repo, rdb)

	require.NoError(t, inventory.ConfirmHold(context.Background(), event.ID, 2))
	assert.Equal(t, 0, event.HeldSeats)
	assert.Equal(t, 2, event.ConfirmedSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmHoldWithoutMatchingHold(t *testing.T) {
	event := testEvent(10)
	repo := newStubEventRepo(event)

	inventory := ledger.NewInventoryLedger(repo, nil)

	err := inventory.ConfirmHold(context.Background(), event.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrIntegrity)
	assert.Equal(t, 0, event.ConfirmedSeats)
}

func TestAvailabilityFromMirror(t *testing.T) {
	// Repo holds no events at all: a mirror hit must not touch the store.
	eventID := uuid.New()
	repo := newStubEventRepo()
	rdb, mock := redismock.NewClientMock()
	mock.ExpectHGetAll(mirrorKey(eventID)).SetVal(map[string]string{
		"capacity":  "100",
		"confirmed": "30",
		"held":      "20",
	})

	inventory := ledger.NewInventoryLedger(repo, rdb)

	remaining, err := inventory.Availability(context.Background(), eventID)
	require.NoError(t, err)
	assert.Equal(t, 50, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityFallsBackToStore(t *testing.T) {
	event := testEvent(10)
	event.ConfirmedSeats = 3
	event.HeldSeats = 1
	repo := newStubEventRepo(event)
	rdb, mock := redismock.NewClientMock()
	// 鏡像未命中:改讀權威計數(warm-up 的 HSet 失敗只會記 warning)
	mock.ExpectHGetAll(mirrorKey(event.ID)).SetVal(map[string]string{})

	inventory := ledger.NewInventoryLedger(repo, rdb)

	remaining, err := inventory.Availability(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, remaining)
}

func TestAvailabilityUnknownEvent(t *testing.T) {
	inventory := ledger.NewInventoryLedger(newStubEventRepo(), nil)

	_, err := inventory.Availability(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestLedgerWithoutRedis(t *testing.T) {
	event := testEvent(5)
	repo := newStubEventRepo(event)

	inventory := ledger.NewInventoryLedger(repo, nil)

	require.NoError(t, inventory.TryHold(context.Background(), event.ID, 2))
	require.NoError(t, inventory.ReleaseHold(context.Background(), event.ID, 1))
	require.NoError(t, inventory.WarmUp(context.Background(), event))

	remaining, err := inventory.Availability(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
}
