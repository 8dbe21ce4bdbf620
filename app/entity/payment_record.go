package entity

import "time"

type PaymentStatus string

const (
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
)

type PaymentRecord struct {
	ID             uint64
	SubscriptionID *uint64
	UserID         string
	Amount         int64
	Currency       string
	Status         PaymentStatus
	Reference      string
	FailureReason  *string
	CreatedAt      time.Time
}
