package notify

import (
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/google/uuid"
)

func build(userID uuid.UUID, category types.NotificationCategory, title, message string) models.Notification {
	return models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Category:  category,
		CreatedAt: time.Now(),
	}
}

func NewRideRequest(driverID uuid.UUID, req *models.RideRequest) models.Notification {
	return build(driverID, types.NotifyRideRequest, "New Ride Request",
		fmt.Sprintf("New ride request: %.2f km, fare %.2f. Respond before %s.",
			req.DistanceKm, req.Fare.TotalFare, req.ExpiresAt.Format(time.Kitchen)))
}

func RideAccepted(userID uuid.UUID, rideID uuid.UUID) models.Notification {
	return build(userID, types.NotifyRideAccepted, "Driver Assigned",
		fmt.Sprintf("Your ride %s has been accepted.", rideID))
}

func RideRejected(userID uuid.UUID) models.Notification {
	return build(userID, types.NotifyRideRejected, "Driver Rejected",
		"Driver rejected your request. Please try another driver.")
}

func RideCancelled(driverID uuid.UUID) models.Notification {
	return build(driverID, types.NotifyRideCancelled, "Ride Canceled",
		"The rider canceled the pickup request.")
}

func RideTimedOut(userID uuid.UUID) models.Notification {
	return build(userID, types.NotifyRideTimedOut, "Driver is Busy",
		"Driver did not respond in time. Please try another driver.")
}

func RideStarted(userID uuid.UUID, destination string) models.Notification {
	msg := "Enjoy your ride."
	if destination != "" {
		msg = fmt.Sprintf("Enjoy your ride to %s.", destination)
	}
	return build(userID, types.NotifyRideStarted, "Ride Started", msg)
}

func RideCompleted(userID uuid.UUID, fare float64) models.Notification {
	return build(userID, types.NotifyRideCompleted, "Ride Completed",
		fmt.Sprintf("Your trip has ended. Fare: %.2f.", fare))
}

func RiderPaid(userID uuid.UUID, amount models.Money) models.Notification {
	return build(userID, types.NotifyPaymentSucceeded, "Payment Successful",
		fmt.Sprintf("Payment of %s completed for ride.", amount))
}

func DriverPaid(driverID uuid.UUID, amount models.Money) models.Notification {
	return build(driverID, types.NotifyPaymentSucceeded, "Payment Received",
		fmt.Sprintf("Your payment of %s has been received.", amount))
}

func PaymentFailed(userID uuid.UUID, reason string) models.Notification {
	return build(userID, types.NotifyPaymentFailed, "Payment Failed", reason)
}

func WalletToppedUp(userID uuid.UUID, amount models.Money) models.Notification {
	return build(userID, types.NotifyWalletTopUp, "Wallet Recharged",
		fmt.Sprintf("%s added to your wallet.", amount))
}

func Refunded(userID uuid.UUID, amount models.Money) models.Notification {
	return build(userID, types.NotifyRefund, "Refund Processed",
		fmt.Sprintf("%s has been refunded.", amount))
}
