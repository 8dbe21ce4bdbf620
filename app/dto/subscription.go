package dto

type SubscriptionResponse struct {
	ID                 uint64  `json:"id,omitempty"`
	UserID             string  `json:"user_id"`
	Plan               string  `json:"plan"`
	Status             string  `json:"status"`
	IsAnnual           bool    `json:"is_annual"`
	CurrentPeriodStart *string `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *string `json:"current_period_end,omitempty"`
	FailedPaymentCount int32   `json:"failed_payment_count"`
	CreatedAt          *string `json:"created_at,omitempty"`
	UpdatedAt          *string `json:"updated_at,omitempty"`
}

type SubscriptionEnvelopeResponse struct {
	Subscription SubscriptionResponse `json:"subscription"`
}

type MessageWithSubscriptionResponse struct {
	Message      string               `json:"message"`
	Subscription SubscriptionResponse `json:"subscription"`
}

type ListSubscriptionsResponse struct {
	Subscriptions []SubscriptionResponse `json:"subscriptions"`
}
