package entitlement

import (
	"strings"

	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

type ValueKind int

const (
	ValueNumber ValueKind = iota
	ValueFlag
	ValueSet
	ValueText
)

// Value is one entitlement field viewed through its comparison rule.
type Value struct {
	Kind   ValueKind
	Number Limit
	Flag   bool
	Set    []string
	Text   string
}

func (e Entitlements) Value(f Feature) (Value, bool) {
	switch f {
	case FeatureMockupsPerMonth:
		return Value{Kind: ValueNumber, Number: e.MockupsPerMonth}, true
	case FeatureBulkGenerationLimit:
		return Value{Kind: ValueNumber, Number: e.BulkGenerationLimit}, true
	case FeatureTeamMemberLimit:
		return Value{Kind: ValueNumber, Number: e.TeamMemberLimit}, true
	case FeatureGPTImageGenerationsPerMonth:
		return Value{Kind: ValueNumber, Number: e.GPTImageGenerationsPerMonth}, true
	case FeatureExportFormats:
		return Value{Kind: ValueSet, Set: e.ExportFormats}, true
	case FeatureCustomBranding:
		return Value{Kind: ValueFlag, Flag: e.CustomBranding}, true
	case FeatureAPIAccess:
		return Value{Kind: ValueFlag, Flag: e.APIAccess}, true
	default:
		return Value{}, false
	}
}

// MorePermissiveThan applies the type-directed rule: numbers by >, flags by
// truthiness, sets by cardinality, text by inequality.
func (v Value) MorePermissiveThan(base Value) bool {
	if v.Kind != base.Kind {
		return false
	}
	switch v.Kind {
	case ValueNumber:
		return v.Number.Exceeds(base.Number)
	case ValueFlag:
		return v.Flag && !base.Flag
	case ValueSet:
		return len(v.Set) > len(base.Set)
	case ValueText:
		return v.Text != base.Text
	default:
		return false
	}
}

// HasFeatureAccess reports whether the tier grants more of the feature than the free baseline.
func HasFeatureAccess(tier entity.PlanTier, f Feature) bool {
	target, ok := EntitlementsFor(tier).Value(f)
	if !ok {
		return false
	}
	base, _ := EntitlementsFor(entity.PlanFree).Value(f)
	return target.MorePermissiveThan(base)
}

// FeatureLimit returns the numeric quota for the feature. ok is false for flags and sets.
func FeatureLimit(tier entity.PlanTier, f Feature) (Limit, bool) {
	value, ok := EntitlementsFor(tier).Value(f)
	if !ok || value.Kind != ValueNumber {
		return 0, false
	}
	return value.Number, true
}

func AllowsExportFormat(tier entity.PlanTier, format string) bool {
	format = strings.ToLower(strings.TrimSpace(format))
	for _, allowed := range EntitlementsFor(tier).ExportFormats {
		if allowed == format {
			return true
		}
	}
	return false
}
