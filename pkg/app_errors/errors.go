package apperrors

import "errors"

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrTicketNotFound      = errors.New("ticket not found")

	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidBuyerDetails = errors.New("invalid buyer details")
	ErrInvalidInput        = errors.New("invalid input")
	ErrEventInactive       = errors.New("event inactive")

	// ErrForbidden is returned when the caller attempts an operation on a
	// resource they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict signals that a conditional write lost against a concurrent
	// writer. Callers may retry the read-modify-write.
	ErrConflict = errors.New("conflict")

	// ErrIllegalTransition signals an attempted state change the ticket
	// lifecycle does not allow.
	ErrIllegalTransition = errors.New("illegal state transition")

	// ErrReservationNotActive is returned when converting or cancelling a
	// reservation that is no longer active.
	ErrReservationNotActive = errors.New("reservation not active")

	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")

	// ErrIntegrity means a ledger invariant would have been violated. This
	// indicates a bug upstream, never a normal error path.
	ErrIntegrity = errors.New("inventory integrity violation")

	ErrInternalServerError = errors.New("internal server error")
)
