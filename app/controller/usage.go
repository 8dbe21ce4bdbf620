package controller

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/dto"
	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/mapper"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
)

type UsageController struct {
	subscriptionService *service.SubscriptionService
	usageService        *service.UsageService
	logger              logrus.FieldLogger
}

func NewUsageController(subscriptionService *service.SubscriptionService, usageService *service.UsageService) *UsageController {
	return &UsageController{
		subscriptionService: subscriptionService,
		usageService:        usageService,
		logger:              factory.NewModuleLogger("usage-controller"),
	}
}

func (c *UsageController) Remaining(ctx echo.Context) error {
	req, feature, err := c.featureRequest(ctx)
	if req == nil {
		return err
	}

	status, err := c.withPlan(ctx, req.GetUserId(), func(reqCtx context.Context, plan entity.PlanTier) (*service.UsageStatus, error) {
		return c.usageService.Remaining(reqCtx, req.GetUserId(), plan, feature)
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get remaining usage")
	}
	return ctx.JSON(http.StatusOK, mapper.RemainingToDTO(status))
}

func (c *UsageController) CheckLimit(ctx echo.Context) error {
	req, feature, err := c.featureRequest(ctx)
	if req == nil {
		return err
	}

	status, err := c.withPlan(ctx, req.GetUserId(), func(reqCtx context.Context, plan entity.PlanTier) (*service.UsageStatus, error) {
		return c.usageService.CheckLimit(reqCtx, req.GetUserId(), plan, feature)
	})
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Check usage limit")
	}
	return ctx.JSON(http.StatusOK, mapper.CheckLimitToDTO(status))
}

func (c *UsageController) FeatureAccess(ctx echo.Context) error {
	req, feature, err := c.featureRequest(ctx)
	if req == nil {
		return err
	}

	subscription, err := c.subscriptionService.GetActiveSubscriptionOrFree(ctx.Request().Context(), req.GetUserId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Resolve subscription")
	}

	return ctx.JSON(http.StatusOK, &dto.FeatureAccessResponse{
		Feature:   string(feature),
		Plan:      string(subscription.Plan),
		HasAccess: entitlement.HasFeatureAccess(subscription.Plan, feature),
	})
}

func (c *UsageController) Summary(ctx echo.Context) error {
	req, err := types.NewUserRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}

	reqCtx := ctx.Request().Context()
	subscription, err := c.subscriptionService.GetActiveSubscriptionOrFree(reqCtx, req.GetUserId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Resolve subscription")
	}
	summary, err := c.usageService.Summary(reqCtx, req.GetUserId(), subscription.Plan)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Usage summary")
	}
	return ctx.JSON(http.StatusOK, mapper.UsageSummaryToDTO(summary))
}

func (c *UsageController) Plans(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, mapper.PlansToDTO(entitlement.Catalog()))
}

func (c *UsageController) Export(ctx echo.Context) error {
	req, err := types.NewExportRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	reqCtx := ctx.Request().Context()
	subscription, err := c.subscriptionService.GetActiveSubscriptionOrFree(reqCtx, req.GetUserId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Resolve subscription")
	}
	if err := c.usageService.AuthorizeExport(reqCtx, req.GetUserId(), subscription.Plan, req.GetFormat()); err != nil {
		return writeServiceError(ctx, c.logger, err, "Authorize export")
	}
	return ctx.JSON(http.StatusOK, &dto.ExportResponse{Format: req.GetFormat(), Allowed: true})
}

// featureRequest parses and validates the feature query. A nil request means
// the error response has already been written.
func (c *UsageController) featureRequest(ctx echo.Context) (*types.FeatureRequest, entitlement.Feature, error) {
	req, err := types.NewFeatureRequestFromContext(ctx)
	if err != nil {
		return nil, "", writeError(ctx, http.StatusBadRequest, "invalid query params")
	}
	if req.GetUserId() == "" {
		return nil, "", writeUnauthenticated(ctx)
	}
	if err := req.Validate(); err != nil {
		return nil, "", writeError(ctx, http.StatusBadRequest, err.Error())
	}

	feature, ok := entitlement.ParseFeature(req.GetFeature())
	if !ok {
		return nil, "", writeError(ctx, http.StatusBadRequest, service.ErrUnknownFeature.Error())
	}
	return req, feature, nil
}

func (c *UsageController) withPlan(
	ctx echo.Context,
	userID string,
	fn func(reqCtx context.Context, plan entity.PlanTier) (*service.UsageStatus, error),
) (*service.UsageStatus, error) {
	reqCtx := ctx.Request().Context()
	subscription, err := c.subscriptionService.GetActiveSubscriptionOrFree(reqCtx, userID)
	if err != nil {
		return nil, err
	}
	return fn(reqCtx, subscription.Plan)
}
