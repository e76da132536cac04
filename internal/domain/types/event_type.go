package types

// NotificationCategory classifies a notification for routing and client rendering.
type NotificationCategory string

func (c NotificationCategory) String() string {
	return string(c)
}

const (
	NotifyRideRequest      NotificationCategory = "RIDE_REQUEST"
	NotifyRideAccepted     NotificationCategory = "RIDE_ACCEPTED"
	NotifyRideRejected     NotificationCategory = "RIDE_REJECTED"
	NotifyRideCancelled    NotificationCategory = "RIDE_CANCELLED"
	NotifyRideTimedOut     NotificationCategory = "RIDE_TIMED_OUT"
	NotifyRideStarted      NotificationCategory = "RIDE_STARTED"
	NotifyRideCompleted    NotificationCategory = "RIDE_COMPLETED"
	NotifyPaymentSucceeded NotificationCategory = "PAYMENT_SUCCESSFUL"
	NotifyPaymentFailed    NotificationCategory = "PAYMENT_FAILED"
	NotifyWalletTopUp      NotificationCategory = "WALLET_TOPUP"
	NotifyRefund           NotificationCategory = "REFUND"
)
