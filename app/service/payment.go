package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/metrics"
	"github.com/vibast-solutions/ms-go-entitlements/app/payment"
	"github.com/vibast-solutions/ms-go-entitlements/app/repository"
	"github.com/vibast-solutions/ms-go-entitlements/config"
)

const referencePrefix = "appv_"

type initializePaymentRequest interface {
	GetUserId() string
	GetEmail() string
	GetPlan() string
	GetIsAnnual() bool
	GetCallbackUrl() string
}

type paymentRepository interface {
	Create(ctx context.Context, record *entity.PaymentRecord) error
	FindByReference(ctx context.Context, reference string, status entity.PaymentStatus) (*entity.PaymentRecord, error)
}

type subscriptionLifecycle interface {
	GetActiveSubscriptionOrFree(ctx context.Context, userID string) (*entity.Subscription, error)
	ApplyPayment(ctx context.Context, userID string, plan entity.PlanTier, isAnnual bool, reference string) (*entity.Subscription, bool, error)
	ChangePlan(ctx context.Context, userID string, plan entity.PlanTier) (*entity.Subscription, error)
	CancelCurrent(ctx context.Context, userID string) (*entity.Subscription, error)
	RecordPaymentFailure(ctx context.Context, userID string) (*entity.Subscription, error)
}

type usageRecorder interface {
	RecordBestEffort(ctx context.Context, userID string, kind entity.UsageKind, count int64)
}

type VerifyResult struct {
	Success      bool
	Plan         entity.PlanTier
	IsAnnual     bool
	Reference    string
	Amount       int64
	Subscription *entity.Subscription
}

type PaymentService struct {
	gateway       payment.Gateway
	subscriptions subscriptionLifecycle
	usage         usageRecorder
	paymentRepo   paymentRepository
	cfg           config.PaystackConfig
	sink          metrics.Sink
	logger        logrus.FieldLogger
	planCodes     map[string]planChoice
	now           func() time.Time
}

type planChoice struct {
	plan     entity.PlanTier
	isAnnual bool
}

func NewPaymentService(
	gateway payment.Gateway,
	subscriptions subscriptionLifecycle,
	usage usageRecorder,
	paymentRepo paymentRepository,
	cfg config.PaystackConfig,
	sink metrics.Sink,
) *PaymentService {
	if sink == nil {
		sink = metrics.Nop{}
	}
	planCodes := map[string]planChoice{}
	for code, choice := range map[string]planChoice{
		cfg.ProPlanCode:    {plan: entity.PlanPro},
		cfg.TeamPlanCode:   {plan: entity.PlanTeam},
		cfg.ProAnnualCode:  {plan: entity.PlanPro, isAnnual: true},
		cfg.TeamAnnualCode: {plan: entity.PlanTeam, isAnnual: true},
	} {
		if code != "" {
			planCodes[code] = choice
		}
	}

	return &PaymentService{
		gateway:       gateway,
		subscriptions: subscriptions,
		usage:         usage,
		paymentRepo:   paymentRepo,
		cfg:           cfg,
		sink:          sink,
		logger:        factory.NewModuleLogger("payment-service"),
		planCodes:     planCodes,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *PaymentService) Initialize(ctx context.Context, req initializePaymentRequest) (*payment.InitializeResult, error) {
	userID := strings.TrimSpace(req.GetUserId())
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.GetCallbackUrl()) == "" {
		return nil, fmt.Errorf("%w: callback_url is required", ErrInvalidRequest)
	}
	plan, err := parsePaidPlan(req.GetPlan())
	if err != nil {
		return nil, err
	}

	amount := entitlement.PlanFor(plan).Price(req.GetIsAnnual())
	result, err := s.gateway.Initialize(ctx, payment.InitializeRequest{
		Email:       strings.TrimSpace(req.GetEmail()),
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Reference:   referencePrefix + uuid.NewString(),
		CallbackURL: strings.TrimSpace(req.GetCallbackUrl()),
		PlanCode:    s.planCode(plan, req.GetIsAnnual()),
		Metadata: map[string]string{
			payment.MetadataUserID:   userID,
			payment.MetadataPlan:     string(plan),
			payment.MetadataIsAnnual: strconv.FormatBool(req.GetIsAnnual()),
		},
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidArgument) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}

	s.usage.RecordBestEffort(ctx, userID, entity.UsageSubscriptionAttempt, 1)
	return result, nil
}

// Verify confirms a charge with the provider before trusting it and activates the paid plan.
func (s *PaymentService) Verify(ctx context.Context, userID, reference string) (*VerifyResult, error) {
	userID = strings.TrimSpace(userID)
	reference = strings.TrimSpace(reference)
	if userID == "" || reference == "" {
		return nil, fmt.Errorf("%w: user_id and reference are required", ErrInvalidRequest)
	}

	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidArgument) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentNotVerified, err)
	}
	if !tx.Succeeded() {
		return nil, fmt.Errorf("%w: provider status %q", ErrPaymentNotVerified, tx.Status)
	}
	owner := strings.TrimSpace(tx.Metadata[payment.MetadataUserID])
	if owner == "" {
		return nil, fmt.Errorf("%w: transaction carries no owner", ErrPaymentNotVerified)
	}
	if owner != userID {
		return nil, fmt.Errorf("%w: reference belongs to another user", ErrPaymentNotVerified)
	}

	plan, isAnnual, ok := s.resolvePlan(tx.Metadata, "")
	if !ok {
		return nil, fmt.Errorf("%w: transaction carries no purchasable plan", ErrPaymentNotVerified)
	}

	subscription, err := s.applyCharge(ctx, userID, plan, isAnnual, reference, tx.Amount, tx.Currency)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Success:      true,
		Plan:         plan,
		IsAnnual:     isAnnual,
		Reference:    reference,
		Amount:       tx.Amount,
		Subscription: subscription,
	}, nil
}

// HandleWebhook dispatches a provider event. Unknown events and events that
// cannot be matched to a user are ignored; only processing failures return an error.
func (s *PaymentService) HandleWebhook(ctx context.Context, evt *payment.WebhookEvent) error {
	if evt == nil {
		return nil
	}
	logger := s.logger.WithFields(logrus.Fields{"event": evt.Event, "reference": evt.Reference})

	var err error
	switch evt.Event {
	case payment.EventSubscriptionCreate:
		err = s.handleSubscriptionCreate(ctx, evt)
	case payment.EventSubscriptionUpdate:
		err = s.handleSubscriptionUpdate(ctx, evt)
	case payment.EventSubscriptionDisable:
		err = s.handleSubscriptionDisable(ctx, evt)
	case payment.EventChargeSuccess:
		err = s.handleChargeSuccess(ctx, evt)
	case payment.EventChargeFailed:
		err = s.handleChargeFailed(ctx, evt)
	default:
		logger.Info("ignoring unhandled webhook event")
		s.sink.IncWebhook(evt.Event, "ignored")
		return nil
	}

	if err != nil {
		logger.WithError(err).Error("webhook processing failed")
		s.sink.IncWebhook(evt.Event, "failed")
		return err
	}
	s.sink.IncWebhook(evt.Event, "processed")
	return nil
}

func (s *PaymentService) handleSubscriptionCreate(ctx context.Context, evt *payment.WebhookEvent) error {
	userID, ok := s.webhookUser(evt)
	if !ok {
		return nil
	}
	plan, isAnnual, ok := s.resolvePlan(evt.Metadata, evt.PlanCode)
	if !ok {
		s.logger.WithField("event", evt.Event).Warn("webhook without a known plan, skipping")
		return nil
	}

	current, err := s.subscriptions.GetActiveSubscriptionOrFree(ctx, userID)
	if err != nil {
		return err
	}
	if !current.IsSynthetic() && current.Status == entity.SubscriptionStatusActive {
		if current.Plan == plan {
			return nil
		}
		_, err = s.subscriptions.ChangePlan(ctx, userID, plan)
		return err
	}

	reference := evt.Reference
	if reference == "" {
		reference = evt.SubscriptionCode
	}
	_, _, err = s.subscriptions.ApplyPayment(ctx, userID, plan, isAnnual, reference)
	return err
}

func (s *PaymentService) handleSubscriptionUpdate(ctx context.Context, evt *payment.WebhookEvent) error {
	userID, ok := s.webhookUser(evt)
	if !ok {
		return nil
	}
	plan, _, ok := s.resolvePlan(evt.Metadata, evt.PlanCode)
	if !ok {
		return nil
	}

	_, err := s.subscriptions.ChangePlan(ctx, userID, plan)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil
	}
	return err
}

func (s *PaymentService) handleSubscriptionDisable(ctx context.Context, evt *payment.WebhookEvent) error {
	userID, ok := s.webhookUser(evt)
	if !ok {
		return nil
	}

	_, err := s.subscriptions.CancelCurrent(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil
	}
	return err
}

func (s *PaymentService) handleChargeSuccess(ctx context.Context, evt *payment.WebhookEvent) error {
	userID, ok := s.webhookUser(evt)
	if !ok {
		return nil
	}
	plan, isAnnual, ok := s.resolvePlan(evt.Metadata, evt.PlanCode)
	if !ok {
		s.logger.WithField("reference", evt.Reference).Warn("charge without a known plan, skipping")
		return nil
	}
	if evt.Reference == "" {
		return nil
	}

	_, err := s.applyCharge(ctx, userID, plan, isAnnual, evt.Reference, evt.Amount, evt.Currency)
	return err
}

func (s *PaymentService) handleChargeFailed(ctx context.Context, evt *payment.WebhookEvent) error {
	userID, ok := s.webhookUser(evt)
	if !ok {
		return nil
	}
	if s.failureAlreadyRecorded(ctx, evt.Reference) {
		s.logger.WithField("reference", evt.Reference).Info("failed charge already recorded, skipping redelivery")
		return nil
	}

	subscription, err := s.subscriptions.RecordPaymentFailure(ctx, userID)
	if err != nil {
		return err
	}

	if evt.Reference != "" {
		reason := strings.TrimSpace(evt.GatewayResponse)
		if reason == "" {
			reason = "charge failed"
		}
		record := &entity.PaymentRecord{
			UserID:        userID,
			Amount:        evt.Amount,
			Currency:      evt.Currency,
			Status:        entity.PaymentStatusFailed,
			Reference:     evt.Reference,
			FailureReason: &reason,
			CreatedAt:     s.now(),
		}
		if subscription != nil {
			id := subscription.ID
			record.SubscriptionID = &id
		}
		s.storePaymentRecord(ctx, record)
	}
	return nil
}

// applyCharge activates the plan and logs the payment. Repeated deliveries of
// the same reference extend the period once.
func (s *PaymentService) applyCharge(ctx context.Context, userID string, plan entity.PlanTier, isAnnual bool, reference string, amount int64, currency string) (*entity.Subscription, error) {
	subscription, applied, err := s.subscriptions.ApplyPayment(ctx, userID, plan, isAnnual, reference)
	if err != nil {
		return nil, err
	}
	if !applied {
		return subscription, nil
	}

	id := subscription.ID
	s.storePaymentRecord(ctx, &entity.PaymentRecord{
		SubscriptionID: &id,
		UserID:         userID,
		Amount:         amount,
		Currency:       currency,
		Status:         entity.PaymentStatusSuccessful,
		Reference:      reference,
		CreatedAt:      s.now(),
	})
	s.usage.RecordBestEffort(ctx, userID, entity.UsageSubscriptionSuccess, 1)
	return subscription, nil
}

// failureAlreadyRecorded reports whether a redelivered charge.failed was counted
// before. Lookup errors count the failure again.
func (s *PaymentService) failureAlreadyRecorded(ctx context.Context, reference string) bool {
	if s.paymentRepo == nil || reference == "" {
		return false
	}
	existing, err := s.paymentRepo.FindByReference(ctx, reference, entity.PaymentStatusFailed)
	if err != nil {
		s.logger.WithError(err).WithField("reference", reference).Warn("failed to look up payment record")
		return false
	}
	return existing != nil
}

func (s *PaymentService) storePaymentRecord(ctx context.Context, record *entity.PaymentRecord) {
	if s.paymentRepo == nil {
		return
	}
	err := s.paymentRepo.Create(ctx, record)
	if err == nil || errors.Is(err, repository.ErrPaymentAlreadyRecorded) {
		return
	}
	s.logger.WithError(err).WithFields(logrus.Fields{
		"user_id":   record.UserID,
		"reference": record.Reference,
		"status":    record.Status,
	}).Warn("failed to store payment record")
}

func (s *PaymentService) webhookUser(evt *payment.WebhookEvent) (string, bool) {
	userID := strings.TrimSpace(evt.Metadata[payment.MetadataUserID])
	if userID == "" {
		s.logger.WithFields(logrus.Fields{
			"event":     evt.Event,
			"reference": evt.Reference,
		}).Warn("webhook without user_id metadata, skipping")
		return "", false
	}
	return userID, true
}

// resolvePlan prefers checkout metadata and falls back to the provider plan code.
func (s *PaymentService) resolvePlan(metadata map[string]string, planCode string) (entity.PlanTier, bool, bool) {
	if raw := strings.TrimSpace(metadata[payment.MetadataPlan]); raw != "" {
		plan, err := parsePaidPlan(raw)
		if err == nil {
			isAnnual, _ := strconv.ParseBool(metadata[payment.MetadataIsAnnual])
			return plan, isAnnual, true
		}
	}
	if choice, ok := s.planCodes[strings.TrimSpace(planCode)]; ok {
		return choice.plan, choice.isAnnual, true
	}
	return "", false, false
}

func (s *PaymentService) planCode(plan entity.PlanTier, isAnnual bool) string {
	for code, choice := range s.planCodes {
		if choice.plan == plan && choice.isAnnual == isAnnual {
			return code
		}
	}
	return ""
}

func parsePaidPlan(value string) (entity.PlanTier, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "", fmt.Errorf("%w: plan is required", ErrInvalidRequest)
	}
	if !entity.IsKnownPlanTier(normalized) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, value)
	}
	plan := entity.PlanTier(normalized)
	if !plan.IsPaid() {
		return "", fmt.Errorf("%w: %q is not purchasable", ErrUnknownPlan, value)
	}
	return plan, nil
}
