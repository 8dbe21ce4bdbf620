package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/dto"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/mapper"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
)

type SubscriptionController struct {
	subscriptionService *service.SubscriptionService
	logger              logrus.FieldLogger
}

func NewSubscriptionController(subscriptionService *service.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
		logger:              factory.NewModuleLogger("subscriptions-controller"),
	}
}

func (c *SubscriptionController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

// GetSubscription returns the caller's effective subscription, synthesizing free when none is stored.
func (c *SubscriptionController) GetSubscription(ctx echo.Context) error {
	req, err := types.NewUserRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}

	item, err := c.subscriptionService.GetActiveSubscriptionOrFree(ctx.Request().Context(), req.GetUserId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Get subscription")
	}

	return ctx.JSON(http.StatusOK, &dto.SubscriptionEnvelopeResponse{
		Subscription: mapper.SubscriptionToDTO(item),
	})
}

// ListSubscriptions returns every stored subscription of the caller, lapsed rows already expired.
func (c *SubscriptionController) ListSubscriptions(ctx echo.Context) error {
	req, err := types.NewUserRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}

	items, err := c.subscriptionService.ListSubscriptions(ctx.Request().Context(), req.GetUserId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "List subscriptions")
	}

	return ctx.JSON(http.StatusOK, &dto.ListSubscriptionsResponse{
		Subscriptions: mapper.SubscriptionsToDTO(items),
	})
}

func (c *SubscriptionController) CancelSubscription(ctx echo.Context) error {
	req, err := types.NewUserRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}

	item, err := c.subscriptionService.CancelCurrent(ctx.Request().Context(), req.GetUserId())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Cancel subscription")
	}

	return ctx.JSON(http.StatusOK, &dto.MessageWithSubscriptionResponse{
		Message:      "Subscription cancelled successfully",
		Subscription: mapper.SubscriptionToDTO(item),
	})
}
