package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketState 票券狀態類型
type TicketState string

const (
	TicketStatePending   TicketState = "pending"
	TicketStatePaid      TicketState = "paid"
	TicketStateFailed    TicketState = "failed"
	TicketStateCancelled TicketState = "cancelled"
	TicketStateCheckedIn TicketState = "checked_in"
)

// IsValid 驗證狀態是否有效
func (s TicketState) IsValid() bool {
	switch s {
	case TicketStatePending, TicketStatePaid, TicketStateFailed,
		TicketStateCancelled, TicketStateCheckedIn:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態。paid -> cancelled 是
// 退票路徑；checked_in 之後不允許任何轉換。
func (s TicketState) CanTransitionTo(target TicketState) bool {
	transitions := map[TicketState][]TicketState{
		TicketStatePending:   {TicketStatePaid, TicketStateFailed, TicketStateCancelled},
		TicketStatePaid:      {TicketStateCheckedIn, TicketStateCancelled},
		TicketStateFailed:    {},
		TicketStateCancelled: {},
		TicketStateCheckedIn: {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == target {
			return true
		}
	}
	return false
}

// Ticket 票券模型，是付款與入場的審計紀錄，永不刪除。OrderID 是與
// 金流閘道共用的冪等鍵；Version 由 optimistic concurrency 寫入使用。
type Ticket struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	EventID       uuid.UUID   `json:"event_id" db:"event_id"`
	BuyerID       uuid.UUID   `json:"buyer_id" db:"buyer_id"`
	ReservationID uuid.UUID   `json:"reservation_id" db:"reservation_id"`
	Quantity      int         `json:"quantity" db:"quantity"`
	UnitPrice     int64       `json:"unit_price" db:"unit_price"`
	TotalPrice    int64       `json:"total_price" db:"total_price"`
	OrderID       string      `json:"order_id" db:"order_id"`
	PaymentToken  string      `json:"payment_token" db:"payment_token"`
	State         TicketState `json:"state" db:"state"`
	CheckInTime   *time.Time  `json:"check_in_time,omitempty" db:"check_in_time"`
	Version       int         `json:"version" db:"version"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// NewTicketFromReservation 由已轉換的預約建立 pending 票券
func NewTicketFromReservation(r *Reservation, unitPrice int64, orderID, paymentToken string) *Ticket {
	return &Ticket{
		ID:            uuid.New(),
		EventID:       r.EventID,
		BuyerID:       r.BuyerID,
		ReservationID: r.ID,
		Quantity:      r.Quantity,
		UnitPrice:     unitPrice,
		TotalPrice:    unitPrice * int64(r.Quantity),
		OrderID:       orderID,
		PaymentToken:  paymentToken,
		State:         TicketStatePending,
		Version:       1,
	}
}

// TicketResponse 票券響應
type TicketResponse struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	Quantity    int        `json:"quantity"`
	UnitPrice   int64      `json:"unit_price"`
	TotalPrice  int64      `json:"total_price"`
	OrderID     string     `json:"order_id"`
	State       string     `json:"state"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`
}
