package types

import "errors"

// Error kinds. Every domain error below wraps exactly one of them,
// so callers can branch with errors.Is(err, types.ErrConflict).
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrUpstream   = errors.New("upstream error")
	ErrInvariant  = errors.New("invariant violation")
)

// kindError is a sentinel with a kind attached.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

var (
	ErrInvalidCoordinates = newKind(ErrValidation, "invalid coordinates")
	ErrInvalidRadius      = newKind(ErrValidation, "invalid radius")
	ErrInvalidDistance    = newKind(ErrValidation, "invalid distance")
	ErrUnknownVehicle     = newKind(ErrValidation, "unknown vehicle type")
	ErrInvalidAmount      = newKind(ErrValidation, "invalid amount")
	ErrInvalidID          = newKind(ErrValidation, "invalid id")
	ErrInvalidRating      = newKind(ErrValidation, "rating must be between 1 and 5")
	ErrMissingLocation    = newKind(ErrValidation, "pickup and destination are required")

	ErrDriverNotFound   = newKind(ErrNotFound, "driver not found")
	ErrRequestNotFound  = newKind(ErrNotFound, "ride request not found")
	ErrRideNotFound     = newKind(ErrNotFound, "ride not found")
	ErrWalletNotFound   = newKind(ErrNotFound, "wallet not found")
	ErrPaymentNotFound  = newKind(ErrNotFound, "payment not found")
	ErrLocationNotFound = newKind(ErrNotFound, "driver location not found")

	ErrDriverUnavailable      = newKind(ErrConflict, "driver unavailable")
	ErrRequestFinalized       = newKind(ErrConflict, "ride request already finalized")
	ErrRequestExpired         = newKind(ErrConflict, "ride request expired")
	ErrNotRequestParticipant  = newKind(ErrConflict, "ride request belongs to another participant")
	ErrInvalidRideTransition  = newKind(ErrConflict, "invalid ride status transition")
	ErrNotRideParticipant     = newKind(ErrConflict, "ride belongs to another participant")
	ErrInsufficientBalance    = newKind(ErrConflict, "insufficient balance")
	ErrAlreadySettled         = newKind(ErrConflict, "ride already settled")
	ErrRideNotCompleted       = newKind(ErrConflict, "ride is not completed")
	ErrPaymentNotRefundable   = newKind(ErrConflict, "only completed payments can be refunded")
	ErrPaymentNotPending      = newKind(ErrConflict, "payment is not pending")
	ErrRideAlreadyRated       = newKind(ErrConflict, "ride already rated")
	ErrDriverAlreadyOnRide    = newKind(ErrConflict, "driver is on a ride")

	ErrLocationUnresolvable = newKind(ErrUpstream, "location unresolvable")
	ErrGatewayFailed        = newKind(ErrUpstream, "payment gateway failure")
	ErrWeatherUnavailable   = newKind(ErrUpstream, "weather oracle unavailable")

	ErrPickupTimeMissing = newKind(ErrInvariant, "pickup time missing")
	ErrLedgerMismatch    = newKind(ErrInvariant, "ledger replay does not match wallet balance")
	ErrAmountMismatch    = newKind(ErrInvariant, "confirmed amount does not match payment")
)
