package model

import (
	"time"

	"github.com/google/uuid"

	apperrors "go-event-ticketing/pkg/app_errors"
)

// EventStatus 活動狀態類型
type EventStatus string

const (
	EventStatusActive   EventStatus = "active"
	EventStatusInactive EventStatus = "inactive"
)

// IsValid 驗證狀態是否有效
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusActive, EventStatusInactive:
		return true
	}
	return false
}

// Event 活動模型。Capacity 是總席次上限，ConfirmedSeats 與 HeldSeats
// 由 ledger 獨佔維護，任何時刻都必須滿足 confirmed + held <= capacity。
type Event struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	Name           string      `json:"name" db:"name"`
	Category       string      `json:"category" db:"category"`
	Status         EventStatus `json:"status" db:"status"`
	Capacity       int         `json:"capacity" db:"capacity"`
	Price          int64       `json:"price" db:"price"` // smallest currency unit
	ConfirmedSeats int         `json:"confirmed_seats" db:"confirmed_seats"`
	HeldSeats      int         `json:"held_seats" db:"held_seats"`
	StartsAt       time.Time   `json:"starts_at" db:"starts_at"`
	EndsAt         time.Time   `json:"ends_at" db:"ends_at"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Remaining 回傳尚可持有的席次
func (e *Event) Remaining() int {
	return e.Capacity - e.ConfirmedSeats - e.HeldSeats
}

// IsActive 檢查活動是否開放新的預約
func (e *Event) IsActive() bool {
	return e.Status == EventStatusActive
}

// CheckInWindow returns the full-timestamp interval during which gate scans
// are accepted. Multi-day events need no special casing: the window is a
// plain [open, close] interval.
func (e *Event) CheckInWindow(lead time.Duration) (time.Time, time.Time) {
	return e.StartsAt.Add(-lead), e.EndsAt
}

// NewEvent 驗證並建立活動。Store boundary 只接受通過驗證的實體。
func NewEvent(name, category string, capacity int, price int64, startsAt, endsAt time.Time) (*Event, error) {
	if name == "" || capacity <= 0 || price < 0 {
		return nil, apperrors.ErrInvalidInput
	}
	if !endsAt.After(startsAt) {
		return nil, apperrors.ErrInvalidInput
	}
	return &Event{
		ID:       uuid.New(),
		Name:     name,
		Category: category,
		Status:   EventStatusActive,
		Capacity: capacity,
		Price:    price,
		StartsAt: startsAt.UTC(),
		EndsAt:   endsAt.UTC(),
	}, nil
}

type UpdateEventParams struct {
	Name     *string
	Category *string
	Status   *EventStatus
	Capacity *int
	Price    *int64
	StartsAt *time.Time
	EndsAt   *time.Time
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Name     string    `json:"name" binding:"required"`
	Category string    `json:"category"`
	Capacity int       `json:"capacity" binding:"required,min=1"`
	Price    int64     `json:"price" binding:"min=0"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}

// EventResponse 活動響應
type EventResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	Capacity  int       `json:"capacity"`
	Price     int64     `json:"price"`
	Remaining int       `json:"remaining"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
}
