package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/cache"
	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/metrics"
)

// quotaKeyGrace keeps a counter alive a little past month end so late commits
// do not reseed a fresh key for the old month.
const quotaKeyGrace = time.Hour

type usageRepository interface {
	Record(ctx context.Context, event *entity.UsageEvent) error
	SumSince(ctx context.Context, userID string, kind entity.UsageKind, since time.Time) (int64, error)
	SumByKindSince(ctx context.Context, userID string, since time.Time) (map[entity.UsageKind]int64, error)
}

type quotaGuard interface {
	Reserve(ctx context.Context, key string, amount, limit int64, ttl time.Duration, seed cache.SeedFunc) (int64, bool, error)
	Release(ctx context.Context, key string, amount int64) error
}

// UsageStatus describes one metered feature for the current calendar month.
type UsageStatus struct {
	Feature   entitlement.Feature
	Kind      entity.UsageKind
	Plan      entity.PlanTier
	Limit     entitlement.Limit
	Used      int64
	Remaining entitlement.Limit
}

func (s *UsageStatus) HasReachedLimit() bool {
	return !s.Limit.Allows(s.Used, 1)
}

type Decision struct {
	Allowed   bool
	Limit     entitlement.Limit
	Used      int64
	Remaining entitlement.Limit
}

// Reservation holds quota taken ahead of a gated action. It must be either
// committed or released exactly once.
type Reservation struct {
	UserID  string
	Feature entitlement.Feature
	Kind    entity.UsageKind
	Plan    entity.PlanTier
	Amount  int64
	Limit   entitlement.Limit
	Used    int64
	key     string
}

func (r *Reservation) Remaining() entitlement.Limit {
	return r.Limit.Remaining(r.Used)
}

type UsageSummary struct {
	Plan          entity.PlanTier
	PeriodStart   time.Time
	PeriodEnd     time.Time
	DaysRemaining int
	Features      []*UsageStatus
	Totals        map[entity.UsageKind]int64
}

type UsageService struct {
	usageRepo usageRepository
	guard     quotaGuard
	sink      metrics.Sink
	logger    logrus.FieldLogger
	now       func() time.Time
}

func NewUsageService(usageRepo usageRepository, guard quotaGuard, sink metrics.Sink) *UsageService {
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &UsageService{
		usageRepo: usageRepo,
		guard:     guard,
		sink:      sink,
		logger:    factory.NewModuleLogger("usage-service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *UsageService) Record(ctx context.Context, userID string, kind entity.UsageKind, count int64) error {
	if strings.TrimSpace(userID) == "" || count <= 0 || !entity.IsUsageKind(string(kind)) {
		return fmt.Errorf("%w: user, known usage kind and positive count are required", ErrInvalidRequest)
	}

	event := &entity.UsageEvent{
		UserID:    userID,
		Kind:      kind,
		Count:     count,
		CreatedAt: s.now(),
	}
	if err := s.usageRepo.Record(ctx, event); err != nil {
		return err
	}
	s.sink.IncUsageRecorded(string(kind), count)
	return nil
}

// RecordBestEffort appends a usage event and swallows failures. The action
// being counted already happened, so under-counting beats failing the caller.
func (s *UsageService) RecordBestEffort(ctx context.Context, userID string, kind entity.UsageKind, count int64) {
	if err := s.Record(ctx, userID, kind, count); err != nil {
		s.sink.IncUsageRecordFailure(string(kind))
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"feature": kind,
			"count":   count,
		}).Warn("usage record failed, continuing")
	}
}

func (s *UsageService) Remaining(ctx context.Context, userID string, plan entity.PlanTier, feature entitlement.Feature) (*UsageStatus, error) {
	kind, limit, err := meteredLimit(plan, feature)
	if err != nil {
		return nil, err
	}

	status := &UsageStatus{
		Feature: feature,
		Kind:    kind,
		Plan:    plan,
		Limit:   limit,
	}
	if limit.IsUnlimited() {
		status.Remaining = entitlement.Unlimited
		return status, nil
	}

	used, err := s.usageRepo.SumSince(ctx, userID, kind, entitlement.MonthStart(s.now()))
	if err != nil {
		return nil, err
	}
	status.Used = used
	status.Remaining = limit.Remaining(used)
	return status, nil
}

func (s *UsageService) CheckLimit(ctx context.Context, userID string, plan entity.PlanTier, feature entitlement.Feature) (*UsageStatus, error) {
	return s.Remaining(ctx, userID, plan, feature)
}

// Reserve atomically takes amount units of the monthly quota. A denial is
// returned as *QuotaExceededError.
func (s *UsageService) Reserve(ctx context.Context, userID string, plan entity.PlanTier, feature entitlement.Feature, amount int64) (*Reservation, error) {
	if strings.TrimSpace(userID) == "" || amount <= 0 {
		return nil, fmt.Errorf("%w: user and positive amount are required", ErrInvalidRequest)
	}
	kind, limit, err := meteredLimit(plan, feature)
	if err != nil {
		return nil, err
	}

	reservation := &Reservation{
		UserID:  userID,
		Feature: feature,
		Kind:    kind,
		Plan:    plan,
		Amount:  amount,
		Limit:   limit,
	}
	if limit.IsUnlimited() {
		return reservation, nil
	}

	now := s.now()
	monthStart := entitlement.MonthStart(now)
	key := cache.QuotaKey(userID, string(kind), entitlement.MonthKey(now))
	ttl := entitlement.MonthEnd(now).Sub(now) + quotaKeyGrace
	seed := func(ctx context.Context) (int64, error) {
		return s.usageRepo.SumSince(ctx, userID, kind, monthStart)
	}

	used, ok, err := s.guard.Reserve(ctx, key, amount, int64(limit), ttl, seed)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.sink.IncQuotaDenied(string(feature), string(plan))
		return nil, &QuotaExceededError{
			Feature:   feature,
			Plan:      plan,
			Limit:     limit,
			Used:      used,
			Remaining: limit.Remaining(used),
		}
	}

	reservation.Used = used
	reservation.key = key
	return reservation, nil
}

// Commit appends the ledger event for a reservation. Failures are swallowed.
func (s *UsageService) Commit(ctx context.Context, r *Reservation) {
	if r == nil {
		return
	}
	s.RecordBestEffort(ctx, r.UserID, r.Kind, r.Amount)
}

// Release returns the reserved units after the gated action failed.
func (s *UsageService) Release(ctx context.Context, r *Reservation) {
	if r == nil || r.key == "" {
		return
	}
	if err := s.guard.Release(ctx, r.key, r.Amount); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": r.UserID,
			"feature": r.Feature,
		}).Warn("quota release failed")
	}
}

func (s *UsageService) CheckAndConsume(ctx context.Context, userID string, plan entity.PlanTier, feature entitlement.Feature, amount int64) (*Decision, error) {
	reservation, err := s.Reserve(ctx, userID, plan, feature, amount)
	if err != nil {
		if exceeded, ok := err.(*QuotaExceededError); ok {
			return &Decision{
				Allowed:   false,
				Limit:     exceeded.Limit,
				Used:      exceeded.Used,
				Remaining: exceeded.Remaining,
			}, nil
		}
		return nil, err
	}

	s.Commit(ctx, reservation)
	return &Decision{
		Allowed:   true,
		Limit:     reservation.Limit,
		Used:      reservation.Used,
		Remaining: reservation.Remaining(),
	}, nil
}

// AuthorizeExport checks the export format against the plan and counts the export.
func (s *UsageService) AuthorizeExport(ctx context.Context, userID string, plan entity.PlanTier, format string) error {
	normalized := strings.ToLower(strings.TrimSpace(format))
	if normalized == "" {
		return fmt.Errorf("%w: format is required", ErrInvalidRequest)
	}
	if !entitlement.AllowsExportFormat(plan, normalized) {
		return &FeatureDeniedError{Feature: entitlement.FeatureExportFormats, Plan: plan, Value: normalized}
	}

	s.RecordBestEffort(ctx, userID, entity.UsageExport, 1)
	return nil
}

func (s *UsageService) Summary(ctx context.Context, userID string, plan entity.PlanTier) (*UsageSummary, error) {
	now := s.now()
	start := entitlement.MonthStart(now)

	totals, err := s.usageRepo.SumByKindSince(ctx, userID, start)
	if err != nil {
		return nil, err
	}
	if totals == nil {
		totals = map[entity.UsageKind]int64{}
	}

	summary := &UsageSummary{
		Plan:          plan,
		PeriodStart:   start,
		PeriodEnd:     entitlement.MonthEnd(now),
		DaysRemaining: entitlement.DaysRemainingInMonth(now),
		Totals:        totals,
	}
	for _, feature := range entitlement.MeteredFeatures {
		kind, limit, err := meteredLimit(plan, feature)
		if err != nil {
			return nil, err
		}
		used := totals[kind]
		summary.Features = append(summary.Features, &UsageStatus{
			Feature:   feature,
			Kind:      kind,
			Plan:      plan,
			Limit:     limit,
			Used:      used,
			Remaining: limit.Remaining(used),
		})
	}
	return summary, nil
}

func meteredLimit(plan entity.PlanTier, feature entitlement.Feature) (entity.UsageKind, entitlement.Limit, error) {
	kind, ok := feature.UsageKind()
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrFeatureNotMetered, feature)
	}
	limit, ok := entitlement.FeatureLimit(plan, feature)
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrFeatureNotMetered, feature)
	}
	return kind, limit, nil
}
