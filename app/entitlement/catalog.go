package entitlement

import "github.com/vibast-solutions/ms-go-entitlements/app/entity"

// Entitlements is the fully populated record of what a tier grants.
type Entitlements struct {
	MockupsPerMonth             Limit    `json:"mockupsPerMonth"`
	BulkGenerationLimit         Limit    `json:"bulkGenerationLimit"`
	TeamMemberLimit             Limit    `json:"teamMemberLimit"`
	ExportFormats               []string `json:"exportFormats"`
	CustomBranding              bool     `json:"customBranding"`
	APIAccess                   bool     `json:"apiAccess"`
	GPTImageGenerationsPerMonth Limit    `json:"gptImageGenerationsPerMonth"`
}

// Plan pairs a tier with its display data, prices (minor currency units) and entitlements.
type Plan struct {
	Tier         entity.PlanTier
	DisplayName  string
	MonthlyPrice int64
	AnnualPrice  int64
	Entitlements Entitlements
}

func freePlan() Plan {
	return Plan{
		Tier:        entity.PlanFree,
		DisplayName: "Free",
		Entitlements: Entitlements{
			MockupsPerMonth:             5,
			BulkGenerationLimit:         0,
			TeamMemberLimit:             1,
			ExportFormats:               []string{"png"},
			CustomBranding:              false,
			APIAccess:                   false,
			GPTImageGenerationsPerMonth: 3,
		},
	}
}

func proPlan() Plan {
	return Plan{
		Tier:         entity.PlanPro,
		DisplayName:  "Pro",
		MonthlyPrice: 1200,
		AnnualPrice:  12000,
		Entitlements: Entitlements{
			MockupsPerMonth:             100,
			BulkGenerationLimit:         10,
			TeamMemberLimit:             1,
			ExportFormats:               []string{"png", "jpg"},
			CustomBranding:              true,
			APIAccess:                   false,
			GPTImageGenerationsPerMonth: 50,
		},
	}
}

func teamPlan() Plan {
	return Plan{
		Tier:         entity.PlanTeam,
		DisplayName:  "Team",
		MonthlyPrice: 2900,
		AnnualPrice:  29000,
		Entitlements: Entitlements{
			MockupsPerMonth:             Unlimited,
			BulkGenerationLimit:         50,
			TeamMemberLimit:             10,
			ExportFormats:               []string{"png", "jpg", "pdf"},
			CustomBranding:              true,
			APIAccess:                   true,
			GPTImageGenerationsPerMonth: Unlimited,
		},
	}
}

// PlanFor never fails: unknown or legacy tiers resolve to the free plan.
func PlanFor(tier entity.PlanTier) Plan {
	switch tier {
	case entity.PlanTeam:
		return teamPlan()
	case entity.PlanPro:
		return proPlan()
	default:
		return freePlan()
	}
}

func EntitlementsFor(tier entity.PlanTier) Entitlements {
	return PlanFor(tier).Entitlements
}

func Catalog() []Plan {
	plans := make([]Plan, 0, len(entity.PlanTiers))
	for _, tier := range entity.PlanTiers {
		plans = append(plans, PlanFor(tier))
	}
	return plans
}

// Price returns the charge for one billing period in minor currency units.
func (p Plan) Price(isAnnual bool) int64 {
	if isAnnual {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}
