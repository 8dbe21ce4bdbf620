package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Server struct {
	subscriptionService *service.SubscriptionService
	usageService        *service.UsageService
}

var _ types.EntitlementsServiceServer = (*Server)(nil)

func NewServer(subscriptionService *service.SubscriptionService, usageService *service.UsageService) *Server {
	return &Server{subscriptionService: subscriptionService, usageService: usageService}
}

func (s *Server) GetSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := types.NewSubscriptionLookupRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var item *entity.Subscription
	if req.GetId() != 0 {
		item, err = s.subscriptionService.GetSubscription(ctx, req.GetId())
	} else {
		item, err = s.subscriptionService.GetActiveSubscriptionOrFree(ctx, req.GetUserId())
	}
	if err != nil {
		return nil, mapError(loggerWithContext(ctx), err, "Get subscription")
	}

	return newStruct(map[string]interface{}{
		"subscription": subscriptionFields(item),
	})
}

// CancelSubscription is idempotent. The returned row is expired rather than
// canceled when its period had already ended.
func (s *Server) CancelSubscription(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req, err := types.NewSubscriptionIDRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	canceled, err := s.subscriptionService.Cancel(ctx, req.GetId())
	if err != nil {
		return nil, mapError(l, err, "Cancel subscription")
	}
	item, err := s.subscriptionService.GetSubscription(ctx, req.GetId())
	if err != nil {
		return nil, mapError(l, err, "Get subscription")
	}

	return newStruct(map[string]interface{}{
		"canceled":     canceled,
		"subscription": subscriptionFields(item),
	})
}

func (s *Server) GetRemaining(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req := types.NewFeatureLookupRequestFromStruct(in)
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	feature, err := parseFeature(req.GetFeature())
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, req.GetUserId())
	if err != nil {
		return nil, mapError(l, err, "Resolve subscription")
	}
	usage, err := s.usageService.Remaining(ctx, req.GetUserId(), plan, feature)
	if err != nil {
		return nil, mapError(l, err, "Get remaining usage")
	}

	return newStruct(map[string]interface{}{
		"feature":           string(feature),
		"plan":              string(plan),
		"limit":             limitValue(usage.Limit),
		"used":              usage.Used,
		"remaining":         limitValue(usage.Remaining),
		"has_reached_limit": usage.HasReachedLimit(),
	})
}

func (s *Server) HasFeatureAccess(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := types.NewFeatureLookupRequestFromStruct(in)
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	feature, err := parseFeature(req.GetFeature())
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, req.GetUserId())
	if err != nil {
		return nil, mapError(loggerWithContext(ctx), err, "Resolve subscription")
	}

	return newStruct(map[string]interface{}{
		"feature":    string(feature),
		"plan":       string(plan),
		"has_access": entitlement.HasFeatureAccess(plan, feature),
	})
}

// CheckAndConsume reports a denial in the response body rather than as an RPC error.
func (s *Server) CheckAndConsume(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	l := loggerWithContext(ctx)
	req, err := types.NewConsumeRequestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	feature, err := parseFeature(req.GetFeature())
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, req.GetUserId())
	if err != nil {
		return nil, mapError(l, err, "Resolve subscription")
	}
	decision, err := s.usageService.CheckAndConsume(ctx, req.GetUserId(), plan, feature, req.GetAmount())
	if err != nil {
		return nil, mapError(l, err, "Check and consume")
	}

	return newStruct(map[string]interface{}{
		"allowed":   decision.Allowed,
		"feature":   string(feature),
		"plan":      string(plan),
		"limit":     limitValue(decision.Limit),
		"used":      decision.Used,
		"remaining": limitValue(decision.Remaining),
	})
}

func (s *Server) plan(ctx context.Context, userID string) (entity.PlanTier, error) {
	subscription, err := s.subscriptionService.GetActiveSubscriptionOrFree(ctx, userID)
	if err != nil {
		return "", err
	}
	return subscription.Plan, nil
}

func parseFeature(value string) (entitlement.Feature, error) {
	feature, ok := entitlement.ParseFeature(value)
	if !ok {
		return "", status.Error(codes.InvalidArgument, service.ErrUnknownFeature.Error())
	}
	return feature, nil
}

func mapError(l *logrus.Entry, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, service.ErrQuotaExceeded), errors.Is(err, service.ErrFeatureNotInPlan):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrUnknownFeature),
		errors.Is(err, service.ErrFeatureNotMetered),
		errors.Is(err, service.ErrUnknownPlan):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrSubscriptionNotFound):
		return status.Error(codes.NotFound, "subscription not found")
	default:
		l.WithError(err).Error(action + " failed")
		return status.Error(codes.Internal, "internal server error")
	}
}

// limitValue keeps the "unlimited" sentinel used by the HTTP API.
func limitValue(limit entitlement.Limit) interface{} {
	if limit.IsUnlimited() {
		return limit.String()
	}
	return int64(limit)
}

func subscriptionFields(item *entity.Subscription) map[string]interface{} {
	fields := map[string]interface{}{
		"id":                   float64(item.ID),
		"user_id":              item.UserID,
		"plan":                 string(item.Plan),
		"status":               string(item.Status),
		"is_annual":            item.IsAnnual,
		"failed_payment_count": int64(item.FailedPaymentCount),
		"current_period_start": nil,
		"current_period_end":   nil,
	}
	if item.CurrentPeriodStart != nil {
		fields["current_period_start"] = item.CurrentPeriodStart.UTC().Format(time.RFC3339)
	}
	if item.CurrentPeriodEnd != nil {
		fields["current_period_end"] = item.CurrentPeriodEnd.UTC().Format(time.RFC3339)
	}
	return fields
}

func newStruct(fields map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}
