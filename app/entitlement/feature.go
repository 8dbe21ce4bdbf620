package entitlement

import (
	"strings"

	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

type Feature string

const (
	FeatureMockupsPerMonth             Feature = "mockupsPerMonth"
	FeatureBulkGenerationLimit         Feature = "bulkGenerationLimit"
	FeatureTeamMemberLimit             Feature = "teamMemberLimit"
	FeatureExportFormats               Feature = "exportFormats"
	FeatureCustomBranding              Feature = "customBranding"
	FeatureAPIAccess                   Feature = "apiAccess"
	FeatureGPTImageGenerationsPerMonth Feature = "gptImageGenerationsPerMonth"
)

var Features = []Feature{
	FeatureMockupsPerMonth,
	FeatureBulkGenerationLimit,
	FeatureTeamMemberLimit,
	FeatureExportFormats,
	FeatureCustomBranding,
	FeatureAPIAccess,
	FeatureGPTImageGenerationsPerMonth,
}

// MeteredFeatures reset at the start of every calendar month.
var MeteredFeatures = []Feature{
	FeatureMockupsPerMonth,
	FeatureBulkGenerationLimit,
	FeatureGPTImageGenerationsPerMonth,
}

var featureAliases = map[string]Feature{
	"bulkgeneration":                       FeatureBulkGenerationLimit,
	string(entity.UsageMockupGeneration):   FeatureMockupsPerMonth,
	string(entity.UsageBulkGeneration):     FeatureBulkGenerationLimit,
	string(entity.UsageGPTImageGeneration): FeatureGPTImageGenerationsPerMonth,
	string(entity.UsageExport):             FeatureExportFormats,
	string(entity.UsageAPICall):            FeatureAPIAccess,
	"mockups_per_month":                    FeatureMockupsPerMonth,
	"bulk_generation_limit":                FeatureBulkGenerationLimit,
	"team_member_limit":                    FeatureTeamMemberLimit,
	"export_formats":                       FeatureExportFormats,
	"custom_branding":                      FeatureCustomBranding,
	"api_access":                           FeatureAPIAccess,
	"gpt_image_generations_per_month":      FeatureGPTImageGenerationsPerMonth,
}

// ParseFeature accepts entitlement keys, their snake_case spelling and the usage
// event keys of metered features.
func ParseFeature(value string) (Feature, bool) {
	trimmed := strings.TrimSpace(value)
	for _, f := range Features {
		if string(f) == trimmed {
			return f, true
		}
	}
	if f, ok := featureAliases[strings.ToLower(trimmed)]; ok {
		return f, true
	}
	return "", false
}

// UsageKind returns the ledger key that counts consumption of a metered feature.
func (f Feature) UsageKind() (entity.UsageKind, bool) {
	switch f {
	case FeatureMockupsPerMonth:
		return entity.UsageMockupGeneration, true
	case FeatureBulkGenerationLimit:
		return entity.UsageBulkGeneration, true
	case FeatureGPTImageGenerationsPerMonth:
		return entity.UsageGPTImageGeneration, true
	default:
		return "", false
	}
}
