package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-entitlements/app/dto"
	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
)

func RemainingToDTO(status *service.UsageStatus) dto.RemainingResponse {
	return dto.RemainingResponse{
		Remaining: status.Remaining,
		Limit:     status.Limit,
		Used:      status.Used,
	}
}

func CheckLimitToDTO(status *service.UsageStatus) dto.CheckLimitResponse {
	return dto.CheckLimitResponse{
		HasReachedLimit: status.HasReachedLimit(),
		Limit:           status.Limit,
		Used:            status.Used,
	}
}

func UsageSummaryToDTO(summary *service.UsageSummary) dto.UsageSummaryResponse {
	features := make([]dto.FeatureUsageResponse, 0, len(summary.Features))
	for _, item := range summary.Features {
		features = append(features, dto.FeatureUsageResponse{
			Feature:   string(item.Feature),
			Limit:     item.Limit,
			Used:      item.Used,
			Remaining: item.Remaining,
		})
	}

	totals := make(map[string]int64, len(summary.Totals))
	for kind, count := range summary.Totals {
		totals[string(kind)] = count
	}

	return dto.UsageSummaryResponse{
		Plan:          string(summary.Plan),
		PeriodStart:   summary.PeriodStart.UTC().Format(time.RFC3339),
		PeriodEnd:     summary.PeriodEnd.UTC().Format(time.RFC3339),
		DaysRemaining: summary.DaysRemaining,
		Features:      features,
		Totals:        totals,
	}
}

func PlansToDTO(plans []entitlement.Plan) dto.PlansResponse {
	result := dto.PlansResponse{Plans: make([]dto.PlanResponse, 0, len(plans))}
	for _, plan := range plans {
		result.Plans = append(result.Plans, dto.PlanResponse{
			Plan:         string(plan.Tier),
			DisplayName:  plan.DisplayName,
			MonthlyPrice: plan.MonthlyPrice,
			AnnualPrice:  plan.AnnualPrice,
			Features:     plan.Entitlements,
		})
	}
	return result
}

func QuotaExceededToDTO(err *service.QuotaExceededError) dto.QuotaExceededResponse {
	return dto.QuotaExceededResponse{
		Error:     service.ErrQuotaExceeded.Error(),
		Feature:   string(err.Feature),
		Plan:      string(err.Plan),
		Limit:     err.Limit,
		Used:      err.Used,
		Remaining: err.Remaining,
	}
}

func FeatureDeniedToDTO(err *service.FeatureDeniedError) dto.FeatureDeniedResponse {
	return dto.FeatureDeniedResponse{
		Error:   service.ErrFeatureNotInPlan.Error(),
		Feature: string(err.Feature),
		Plan:    string(err.Plan),
		Value:   err.Value,
	}
}
