package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

// CallbackPayload is the gateway's webhook notification. It is untrusted
// input: verify the signature and the amount before applying anything.
type CallbackPayload struct {
	OrderID           string `json:"order_id" binding:"required"`
	TransactionStatus string `json:"transaction_status" binding:"required"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// VerifySignature checks the SHA-512 digest the gateway computes over
// order_id + status_code + gross_amount + server key.
func (p *CallbackPayload) VerifySignature(serverKey string) bool {
	sum := sha512.Sum512([]byte(p.OrderID + p.StatusCode + p.GrossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(p.SignatureKey)) == 1
}

// GrossAmountValue parses the decimal-string amount ("150000.00") into the
// smallest currency unit. Integer arithmetic only: a float64 round trip
// silently loses precision past 2^53.
func (p *CallbackPayload) GrossAmountValue() (int64, error) {
	intPart, fracPart, hasFrac := strings.Cut(p.GrossAmount, ".")
	if intPart == "" || intPart[0] == '+' || intPart[0] == '-' {
		return 0, errGrossAmount
	}
	value, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, errGrossAmount
	}
	if hasFrac {
		if fracPart == "" {
			return 0, errGrossAmount
		}
		for _, r := range fracPart {
			if r < '0' || r > '9' {
				return 0, errGrossAmount
			}
		}
		// round half up on the fractional part
		if fracPart[0] >= '5' {
			value++
		}
	}
	return value, nil
}

// Outcome 是閘道狀態詞彙折疊後的單一事件變體
type Outcome string

const (
	// OutcomeSettled 付款完成：settlement 或 capture+accept
	OutcomeSettled Outcome = "settled"
	// OutcomePending 仍在處理中：pending 或 capture+challenge
	OutcomePending Outcome = "pending"
	// OutcomeFailed 付款被拒：deny
	OutcomeFailed Outcome = "failed"
	// OutcomeCancelled 買家取消或逾時：cancel、expire
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeUnknown 無法辨識的狀態，fail-safe：絕不在模糊輸入下確認付款
	OutcomeUnknown Outcome = "unknown"
)

// Outcome maps {transaction_status, fraud_status} onto the internal event
// vocabulary. One state-machine-driven function consumes this, instead of a
// callback per vendor status.
func (p *CallbackPayload) Outcome() Outcome {
	switch p.TransactionStatus {
	case "settlement":
		return OutcomeSettled
	case "capture":
		switch p.FraudStatus {
		case "accept":
			return OutcomeSettled
		case "challenge":
			return OutcomePending
		case "deny":
			return OutcomeFailed
		}
		return OutcomeUnknown
	case "pending":
		return OutcomePending
	case "deny":
		return OutcomeFailed
	case "cancel", "expire":
		return OutcomeCancelled
	}
	return OutcomeUnknown
}
