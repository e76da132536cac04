package types

// Enum для классов
type VehicleClass string

func (v VehicleClass) String() string {
	return string(v)
}

const (
	EconomyClass VehicleClass = "ECONOMY"
	PremiumClass VehicleClass = "PREMIUM"
	LuxuryClass  VehicleClass = "LUXURY"
)

func (v VehicleClass) Valid() bool {
	switch v {
	case EconomyClass, PremiumClass, LuxuryClass:
		return true
	}
	return false
}

// Enum для статуса водителя
type DriverStatus string

const (
	DriverAvailable   DriverStatus = "AVAILABLE"
	DriverUnavailable DriverStatus = "UNAVAILABLE"
)

type RideRequestStatus string

func (s RideRequestStatus) String() string {
	return string(s)
}

const (
	RequestPending   RideRequestStatus = "PENDING"
	RequestAccepted  RideRequestStatus = "ACCEPTED"
	RequestRejected  RideRequestStatus = "REJECTED"
	RequestCancelled RideRequestStatus = "CANCELLED"
	RequestTimedOut  RideRequestStatus = "TIMED_OUT"
)

// Terminal reports whether no further transition is allowed.
func (s RideRequestStatus) Terminal() bool {
	return s != RequestPending
}

type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	RideAccepted   RideStatus = "ACCEPTED"
	RideInProgress RideStatus = "IN_PROGRESS"
	RideCompleted  RideStatus = "COMPLETED"
)

// next holds the only allowed successor of each ride status.
var next = map[RideStatus]RideStatus{
	RideAccepted:   RideInProgress,
	RideInProgress: RideCompleted,
}

// CanTransition reports whether from -> to is a legal ride transition.
func CanTransition(from, to RideStatus) bool {
	n, ok := next[from]
	return ok && n == to
}

// RidePaymentState tracks settlement of a completed ride.
type RidePaymentState string

const (
	RidePaymentPending RidePaymentState = "PENDING"
	RidePaymentPaid    RidePaymentState = "PAID"
	RidePaymentUnpaid  RidePaymentState = "UNPAID"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

type PaymentKind string

const (
	PaymentRide  PaymentKind = "RIDE"
	PaymentTopUp PaymentKind = "TOPUP"
)

type TransactionType string

const (
	Credit TransactionType = "CREDIT"
	Debit  TransactionType = "DEBIT"
)

// Enum для роли пользователя
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RiderRole  UserRole = "RIDER"
	DriverRole UserRole = "DRIVER"
	AdminRole  UserRole = "ADMIN"
)
