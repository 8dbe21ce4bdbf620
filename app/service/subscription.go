package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/metrics"
	"github.com/vibast-solutions/ms-go-entitlements/app/repository"
	"github.com/vibast-solutions/ms-go-entitlements/config"
)

const defaultPastDueThreshold = 3

type subscriptionRepository interface {
	Create(ctx context.Context, subscription *entity.Subscription) error
	Update(ctx context.Context, subscription *entity.Subscription) error
	FindByID(ctx context.Context, id uint64) (*entity.Subscription, error)
	FindCurrentByUser(ctx context.Context, userID string) (*entity.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Subscription, error)
	ListPeriodEnded(ctx context.Context, now time.Time) ([]*entity.Subscription, error)
	IncrementFailedPayments(ctx context.Context, id uint64, threshold int32, now time.Time) error
}

type SubscriptionService struct {
	subscriptionRepo subscriptionRepository
	pastDueThreshold int32
	sink             metrics.Sink
	logger           logrus.FieldLogger
	now              func() time.Time
}

func NewSubscriptionService(subscriptionRepo subscriptionRepository, cfg config.SubscriptionConfig, sink metrics.Sink) *SubscriptionService {
	threshold := int32(cfg.PastDueThreshold)
	if threshold <= 0 {
		threshold = defaultPastDueThreshold
	}
	if sink == nil {
		sink = metrics.Nop{}
	}
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		pastDueThreshold: threshold,
		sink:             sink,
		logger:           factory.NewModuleLogger("subscription-service"),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// FreeSubscription is the implicit subscription of a user without a usable row.
func FreeSubscription(userID string, now time.Time) *entity.Subscription {
	return &entity.Subscription{
		UserID:    userID,
		Plan:      entity.PlanFree,
		Status:    entity.SubscriptionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetActiveSubscriptionOrFree never returns nil. A row whose period ended is
// rewritten to expired before the free default is returned.
func (s *SubscriptionService) GetActiveSubscriptionOrFree(ctx context.Context, userID string) (*entity.Subscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}

	subscription, err := s.subscriptionRepo.FindCurrentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if subscription == nil {
		return FreeSubscription(userID, now), nil
	}
	if subscription.PeriodEnded(now) {
		s.expire(ctx, subscription, now)
		return FreeSubscription(userID, now), nil
	}
	return subscription, nil
}

func (s *SubscriptionService) GetSubscription(ctx context.Context, id uint64) (*entity.Subscription, error) {
	subscription, err := s.subscriptionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, ErrSubscriptionNotFound
	}
	if s.isLapsed(subscription) {
		s.expire(ctx, subscription, s.now())
	}
	return subscription, nil
}

func (s *SubscriptionService) ListSubscriptions(ctx context.Context, userID string) ([]*entity.Subscription, error) {
	items, err := s.subscriptionRepo.ListByUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, item := range items {
		if s.isLapsed(item) {
			s.expire(ctx, item, now)
		}
	}
	return items, nil
}

// Cancel is idempotent: canceling a canceled or expired subscription succeeds without a write.
// A row whose period already ended is expired rather than canceled.
func (s *SubscriptionService) Cancel(ctx context.Context, id uint64) (bool, error) {
	subscription, err := s.GetSubscription(ctx, id)
	if err != nil {
		return false, err
	}

	if _, err := s.cancel(ctx, subscription); err != nil {
		return false, err
	}
	return true, nil
}

// CancelCurrent cancels the user's current subscription. The user keeps the
// plan until the period ends.
func (s *SubscriptionService) CancelCurrent(ctx context.Context, userID string) (*entity.Subscription, error) {
	subscription, err := s.GetActiveSubscriptionOrFree(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subscription.IsSynthetic() {
		return nil, ErrSubscriptionNotFound
	}
	return s.cancel(ctx, subscription)
}

func (s *SubscriptionService) ApplyPaymentVerified(ctx context.Context, userID string, plan entity.PlanTier, isAnnual bool, reference string) (*entity.Subscription, error) {
	subscription, _, err := s.ApplyPayment(ctx, userID, plan, isAnnual, reference)
	return subscription, err
}

// ApplyPayment activates the plan for one billing period starting now. applied
// is false when the reference was already applied to the current row.
func (s *SubscriptionService) ApplyPayment(ctx context.Context, userID string, plan entity.PlanTier, isAnnual bool, reference string) (*entity.Subscription, bool, error) {
	userID = strings.TrimSpace(userID)
	reference = strings.TrimSpace(reference)
	if userID == "" {
		return nil, false, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if !entity.IsKnownPlanTier(string(plan)) || !plan.IsPaid() {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}

	current, err := s.subscriptionRepo.FindCurrentByUser(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if current != nil && reference != "" && current.PaymentReference != nil && *current.PaymentReference == reference &&
		current.Status == entity.SubscriptionStatusActive && !current.PeriodEnded(s.now()) {
		return current, false, nil
	}

	now := s.now()
	if current == nil {
		subscription := &entity.Subscription{UserID: userID, CreatedAt: now}
		activate(subscription, plan, isAnnual, reference, now)
		err := s.subscriptionRepo.Create(ctx, subscription)
		if err == nil {
			s.sink.IncSubscriptionTransition("none", string(entity.SubscriptionStatusActive))
			return subscription, true, nil
		}
		if !errors.Is(err, repository.ErrSubscriptionAlreadyExists) {
			return nil, false, err
		}

		// A concurrent payment created the active row first.
		current, err = s.subscriptionRepo.FindCurrentByUser(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		if current == nil {
			return nil, false, ErrSubscriptionNotFound
		}
	}

	previous := current.Status
	activate(current, plan, isAnnual, reference, now)
	if err := s.subscriptionRepo.Update(ctx, current); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, false, ErrSubscriptionNotFound
		}
		return nil, false, err
	}
	if previous != entity.SubscriptionStatusActive {
		s.sink.IncSubscriptionTransition(string(previous), string(entity.SubscriptionStatusActive))
	}
	return current, true, nil
}

// ChangePlan switches the plan of the current subscription without touching its period.
func (s *SubscriptionService) ChangePlan(ctx context.Context, userID string, plan entity.PlanTier) (*entity.Subscription, error) {
	if !entity.IsKnownPlanTier(string(plan)) || !plan.IsPaid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}

	subscription, err := s.GetActiveSubscriptionOrFree(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subscription.IsSynthetic() {
		return nil, ErrSubscriptionNotFound
	}
	if subscription.Plan == plan {
		return subscription, nil
	}

	subscription.Plan = plan
	subscription.UpdatedAt = s.now()
	if err := s.subscriptionRepo.Update(ctx, subscription); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscription, nil
}

// RecordPaymentFailure counts a failed charge. The subscription turns past_due
// once the count reaches the threshold. A user without a subscription is a no-op.
func (s *SubscriptionService) RecordPaymentFailure(ctx context.Context, userID string) (*entity.Subscription, error) {
	subscription, err := s.GetActiveSubscriptionOrFree(ctx, userID)
	if err != nil {
		return nil, err
	}
	if subscription.IsSynthetic() {
		return nil, nil
	}

	previous := subscription.Status
	if err := s.subscriptionRepo.IncrementFailedPayments(ctx, subscription.ID, s.pastDueThreshold, s.now()); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	updated, err := s.subscriptionRepo.FindByID(ctx, subscription.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrSubscriptionNotFound
	}
	if previous != updated.Status {
		s.sink.IncSubscriptionTransition(string(previous), string(updated.Status))
	}
	return updated, nil
}

// RunExpirationBatch eagerly expires rows whose period ended. Reads expire
// lazily as well, so a failed row is picked up on its next read.
func (s *SubscriptionService) RunExpirationBatch(ctx context.Context) (int, error) {
	now := s.now()
	items, err := s.subscriptionRepo.ListPeriodEnded(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, item := range items {
		if s.expire(ctx, item, now) {
			expired++
		}
	}
	return expired, nil
}

func (s *SubscriptionService) cancel(ctx context.Context, subscription *entity.Subscription) (*entity.Subscription, error) {
	switch subscription.Status {
	case entity.SubscriptionStatusCanceled, entity.SubscriptionStatusExpired:
		return subscription, nil
	}

	previous := subscription.Status
	subscription.Status = entity.SubscriptionStatusCanceled
	subscription.UpdatedAt = s.now()
	if err := s.subscriptionRepo.Update(ctx, subscription); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	s.sink.IncSubscriptionTransition(string(previous), string(subscription.Status))
	return subscription, nil
}

func (s *SubscriptionService) isLapsed(subscription *entity.Subscription) bool {
	return subscription.Status != entity.SubscriptionStatusExpired && subscription.PeriodEnded(s.now())
}

// expire rewrites the stored row. A failed write is logged only; the next read retries it.
func (s *SubscriptionService) expire(ctx context.Context, subscription *entity.Subscription, now time.Time) bool {
	previous := subscription.Status
	subscription.Status = entity.SubscriptionStatusExpired
	subscription.UpdatedAt = now
	if err := s.subscriptionRepo.Update(ctx, subscription); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"subscription_id": subscription.ID,
			"user_id":         subscription.UserID,
		}).Warn("failed to persist subscription expiry")
		return false
	}
	s.sink.IncSubscriptionTransition(string(previous), string(entity.SubscriptionStatusExpired))
	return true
}

func activate(subscription *entity.Subscription, plan entity.PlanTier, isAnnual bool, reference string, now time.Time) {
	months := 1
	if isAnnual {
		months = 12
	}
	start := now
	end := now.AddDate(0, months, 0)

	subscription.Plan = plan
	subscription.Status = entity.SubscriptionStatusActive
	subscription.IsAnnual = isAnnual
	subscription.CurrentPeriodStart = &start
	subscription.CurrentPeriodEnd = &end
	subscription.FailedPaymentCount = 0
	subscription.UpdatedAt = now
	if reference != "" {
		ref := reference
		subscription.PaymentReference = &ref
	}
}
