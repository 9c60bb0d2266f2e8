package model

import (
	"net/mail"
	"strings"
	"unicode"

	apperrors "go-event-ticketing/pkg/app_errors"
)

// BuyerDetails 付款時傳給金流閘道的購票人資料
type BuyerDetails struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone" binding:"required"`
}

// Normalize trims whitespace and strips phone separators so downstream
// validation only sees digits (with an optional leading +).
func (b *BuyerDetails) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)

	phone := strings.TrimSpace(b.Phone)
	var sb strings.Builder
	for i, r := range phone {
		if unicode.IsDigit(r) || (i == 0 && r == '+') {
			sb.WriteRune(r)
		}
	}
	b.Phone = sb.String()
}

// Validate 驗證購票人資料。呼叫前應先 Normalize。
func (b *BuyerDetails) Validate() error {
	if b.Name == "" {
		return apperrors.ErrInvalidBuyerDetails
	}
	if _, err := mail.ParseAddress(b.Email); err != nil {
		return apperrors.ErrInvalidBuyerDetails
	}
	digits := strings.TrimPrefix(b.Phone, "+")
	if digits == "" {
		return apperrors.ErrInvalidBuyerDetails
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return apperrors.ErrInvalidBuyerDetails
		}
	}
	return nil
}
