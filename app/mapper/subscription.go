package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-entitlements/app/dto"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

func SubscriptionToDTO(item *entity.Subscription) dto.SubscriptionResponse {
	if item == nil {
		return dto.SubscriptionResponse{}
	}

	result := dto.SubscriptionResponse{
		ID:                 item.ID,
		UserID:             item.UserID,
		Plan:               string(item.Plan),
		Status:             string(item.Status),
		IsAnnual:           item.IsAnnual,
		CurrentPeriodStart: formatTime(item.CurrentPeriodStart),
		CurrentPeriodEnd:   formatTime(item.CurrentPeriodEnd),
		FailedPaymentCount: item.FailedPaymentCount,
	}
	// Synthesized free subscriptions have no stored timestamps.
	if !item.IsSynthetic() {
		result.CreatedAt = formatTime(&item.CreatedAt)
		result.UpdatedAt = formatTime(&item.UpdatedAt)
	}
	return result
}

func SubscriptionsToDTO(items []*entity.Subscription) []dto.SubscriptionResponse {
	result := make([]dto.SubscriptionResponse, 0, len(items))
	for _, item := range items {
		result = append(result, SubscriptionToDTO(item))
	}
	return result
}

func formatTime(value *time.Time) *string {
	if value == nil || value.IsZero() {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339)
	return &formatted
}
