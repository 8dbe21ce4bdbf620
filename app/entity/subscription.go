package entity

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
)

type Subscription struct {
	ID                 uint64
	UserID             string
	Plan               PlanTier
	Status             SubscriptionStatus
	IsAnnual           bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	PaymentReference   *string
	FailedPaymentCount int32
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsSynthetic reports whether the value was manufactured for a user without a stored row.
func (s *Subscription) IsSynthetic() bool {
	return s.ID == 0
}

// PeriodEnded reports whether the billing period closed before now.
func (s *Subscription) PeriodEnded(now time.Time) bool {
	return s.CurrentPeriodEnd != nil && now.After(*s.CurrentPeriodEnd)
}
