package model

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus 預約狀態類型
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusConverted ReservationStatus = "converted"
	ReservationStatusReleased  ReservationStatus = "released"
)

// IsValid 驗證狀態是否有效
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationStatusActive, ReservationStatusConverted, ReservationStatusReleased:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態。converted 與 released
// 都是終態：預約是 append-only 的審計紀錄，不會被重複使用。
func (s ReservationStatus) CanTransitionTo(target ReservationStatus) bool {
	transitions := map[ReservationStatus][]ReservationStatus{
		ReservationStatusActive:    {ReservationStatusConverted, ReservationStatusReleased},
		ReservationStatusConverted: {},
		ReservationStatusReleased:  {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Reservation 對活動席次的限時持有。持有的數量已計入 ledger 的
// held_seats；到期、取消或付款失敗時釋放，付款開始後轉換為票券。
type Reservation struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	EventID   uuid.UUID         `json:"event_id" db:"event_id"`
	BuyerID   uuid.UUID         `json:"buyer_id" db:"buyer_id"`
	Quantity  int               `json:"quantity" db:"quantity"`
	Status    ReservationStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	ExpiresAt time.Time         `json:"expires_at" db:"expires_at"`
}

// Expired 檢查預約是否已過期
func (r *Reservation) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// NewReservation 建立一筆 active 預約
func NewReservation(eventID, buyerID uuid.UUID, quantity int, ttl time.Duration) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		ID:        uuid.New(),
		EventID:   eventID,
		BuyerID:   buyerID,
		Quantity:  quantity,
		Status:    ReservationStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// CreateReservationRequest 建立預約請求
type CreateReservationRequest struct {
	EventID  uuid.UUID `json:"event_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}
