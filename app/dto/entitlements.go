package dto

import "github.com/vibast-solutions/ms-go-entitlements/app/entitlement"

type RemainingResponse struct {
	Remaining entitlement.Limit `json:"remaining"`
	Limit     entitlement.Limit `json:"limit"`
	Used      int64             `json:"used"`
}

type CheckLimitResponse struct {
	HasReachedLimit bool              `json:"hasReachedLimit"`
	Limit           entitlement.Limit `json:"limit"`
	Used            int64             `json:"used"`
}

type FeatureUsageResponse struct {
	Feature   string            `json:"feature"`
	Limit     entitlement.Limit `json:"limit"`
	Used      int64             `json:"used"`
	Remaining entitlement.Limit `json:"remaining"`
}

type UsageSummaryResponse struct {
	Plan          string                 `json:"plan"`
	PeriodStart   string                 `json:"periodStart"`
	PeriodEnd     string                 `json:"periodEnd"`
	DaysRemaining int                    `json:"daysRemaining"`
	Features      []FeatureUsageResponse `json:"features"`
	Totals        map[string]int64       `json:"totals"`
}

type FeatureAccessResponse struct {
	Feature   string `json:"feature"`
	Plan      string `json:"plan"`
	HasAccess bool   `json:"hasAccess"`
}

type PlanResponse struct {
	Plan         string                   `json:"plan"`
	DisplayName  string                   `json:"display_name"`
	MonthlyPrice int64                    `json:"monthly_price"`
	AnnualPrice  int64                    `json:"annual_price"`
	Features     entitlement.Entitlements `json:"features"`
}

type PlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}

// QuotaExceededResponse is the 403 body for a metered feature at its ceiling.
type QuotaExceededResponse struct {
	Error     string            `json:"error"`
	Feature   string            `json:"feature"`
	Plan      string            `json:"plan"`
	Limit     entitlement.Limit `json:"limit"`
	Used      int64             `json:"used"`
	Remaining entitlement.Limit `json:"remaining"`
}

type FeatureDeniedResponse struct {
	Error   string `json:"error"`
	Feature string `json:"feature"`
	Plan    string `json:"plan"`
	Value   string `json:"value,omitempty"`
}

type ExportResponse struct {
	Format  string `json:"format"`
	Allowed bool   `json:"allowed"`
}
