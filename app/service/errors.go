package service

import (
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnknownFeature       = errors.New("unknown feature")
	ErrFeatureNotMetered    = errors.New("feature has no monthly quota")
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrQuotaExceeded        = errors.New("usage limit reached")
	ErrFeatureNotInPlan     = errors.New("feature not available on current plan")
	ErrPaymentNotVerified   = errors.New("payment verification failed")
	ErrPaymentUnavailable   = errors.New("payment provider unavailable")
	ErrGenerationFailed     = errors.New("image generation failed")
)

// QuotaExceededError carries the numbers a client needs to render an upgrade prompt.
type QuotaExceededError struct {
	Feature   entitlement.Feature
	Plan      entity.PlanTier
	Limit     entitlement.Limit
	Used      int64
	Remaining entitlement.Limit
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: %s used %d of %s on %s plan", ErrQuotaExceeded, e.Feature, e.Used, e.Limit, e.Plan)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

type FeatureDeniedError struct {
	Feature entitlement.Feature
	Plan    entity.PlanTier
	Value   string
}

func (e *FeatureDeniedError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s %q on %s plan", ErrFeatureNotInPlan, e.Feature, e.Value, e.Plan)
	}
	return fmt.Sprintf("%s: %s on %s plan", ErrFeatureNotInPlan, e.Feature, e.Plan)
}

func (e *FeatureDeniedError) Is(target error) bool {
	return target == ErrFeatureNotInPlan
}
