package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Gate devices scan an HMAC-signed payload so a forged or hand-edited QR
// code fails before the validator is even consulted.

func qrSignature(ticketID, eventID uuid.UUID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%s", ticketID, eventID)
	return hex.EncodeToString(mac.Sum(nil))
}

func encodeQRPayload(ticketID, eventID uuid.UUID, secret string) string {
	return fmt.Sprintf("ticket:%s;event:%s;sig:%s",
		ticketID, eventID, qrSignature(ticketID, eventID, secret))
}

func decodeQRPayload(data, secret string) (ticketID, eventID uuid.UUID, err error) {
	parts := strings.Split(data, ";")
	if len(parts) != 3 ||
		!strings.HasPrefix(parts[0], "ticket:") ||
		!strings.HasPrefix(parts[1], "event:") ||
		!strings.HasPrefix(parts[2], "sig:") {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed qr payload")
	}

	ticketID, err = uuid.Parse(strings.TrimPrefix(parts[0], "ticket:"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed ticket id")
	}
	eventID, err = uuid.Parse(strings.TrimPrefix(parts[1], "event:"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("malformed event id")
	}

	expected := qrSignature(ticketID, eventID, secret)
	signature := strings.TrimPrefix(parts[2], "sig:")
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return uuid.Nil, uuid.Nil, fmt.Errorf("qr signature mismatch")
	}
	return ticketID, eventID, nil
}
