package entity

import "strings"

type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
	PlanTeam PlanTier = "team"
)

var PlanTiers = []PlanTier{PlanFree, PlanPro, PlanTeam}

// ParsePlanTier maps legacy or unknown plan strings onto the free tier.
func ParsePlanTier(value string) PlanTier {
	switch PlanTier(strings.ToLower(strings.TrimSpace(value))) {
	case PlanPro:
		return PlanPro
	case PlanTeam:
		return PlanTeam
	default:
		return PlanFree
	}
}

func IsKnownPlanTier(value string) bool {
	switch PlanTier(strings.ToLower(strings.TrimSpace(value))) {
	case PlanFree, PlanPro, PlanTeam:
		return true
	default:
		return false
	}
}

func (p PlanTier) Rank() int {
	switch p {
	case PlanTeam:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

func (p PlanTier) IsPaid() bool {
	return p.Rank() > 0
}
