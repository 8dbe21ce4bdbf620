package entity

import "time"

type UsageKind string

const (
	UsageMockupGeneration    UsageKind = "mockup_generation"
	UsageBulkGeneration      UsageKind = "bulk_generation"
	UsageGPTImageGeneration  UsageKind = "gpt_image_generation"
	UsageGPTImageEditing     UsageKind = "gpt_image_editing"
	UsageExport              UsageKind = "export"
	UsageAPICall             UsageKind = "api_call"
	UsageSubscriptionAttempt UsageKind = "subscription_attempt"
	UsageSubscriptionSuccess UsageKind = "subscription_success"
)

var UsageKinds = []UsageKind{
	UsageMockupGeneration,
	UsageBulkGeneration,
	UsageGPTImageGeneration,
	UsageGPTImageEditing,
	UsageExport,
	UsageAPICall,
	UsageSubscriptionAttempt,
	UsageSubscriptionSuccess,
}

func IsUsageKind(value string) bool {
	for _, kind := range UsageKinds {
		if string(kind) == value {
			return true
		}
	}
	return false
}

type UsageEvent struct {
	ID        uint64
	UserID    string
	Kind      UsageKind
	Count     int64
	CreatedAt time.Time
}
