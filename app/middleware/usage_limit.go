package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/entitlement"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/mapper"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
)

type planResolver interface {
	GetActiveSubscriptionOrFree(ctx context.Context, userID string) (*entity.Subscription, error)
}

type quotaReserver interface {
	Reserve(ctx context.Context, userID string, plan entity.PlanTier, feature entitlement.Feature, amount int64) (*service.Reservation, error)
	Commit(ctx context.Context, r *service.Reservation)
	Release(ctx context.Context, r *service.Reservation)
}

// UsageLimit reserves quota for feature before the handler runs. A 2xx response
// commits the reservation to the ledger; anything else releases it.
func UsageLimit(subscriptions planResolver, usage quotaReserver, feature entitlement.Feature, amount int64) echo.MiddlewareFunc {
	logger := factory.NewModuleLogger("usage-limit-middleware")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(types.ContextUserIDKey).(string)
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: service.ErrUnauthenticated.Error()})
			}

			ctx := c.Request().Context()
			subscription, err := subscriptions.GetActiveSubscriptionOrFree(ctx, userID)
			if err != nil {
				logger.WithError(err).WithField("user_id", userID).Error("Resolve subscription failed")
				return c.JSON(http.StatusInternalServerError, &types.ErrorResponse{Error: "internal server error"})
			}
			c.Set(types.ContextSubscriptionKey, subscription)

			reservation, err := usage.Reserve(ctx, userID, subscription.Plan, feature, amount)
			if err != nil {
				var exceeded *service.QuotaExceededError
				if errors.As(err, &exceeded) {
					return c.JSON(http.StatusForbidden, mapper.QuotaExceededToDTO(exceeded))
				}
				logger.WithError(err).WithFields(logrus.Fields{
					"user_id": userID,
					"feature": feature,
				}).Error("Reserve quota failed")
				return c.JSON(http.StatusInternalServerError, &types.ErrorResponse{Error: "internal server error"})
			}

			handlerErr := next(c)

			// The ledger write must survive a client that disconnects after success.
			settleCtx := context.WithoutCancel(ctx)
			status := c.Response().Status
			if handlerErr == nil && status >= http.StatusOK && status < http.StatusMultipleChoices {
				usage.Commit(settleCtx, reservation)
			} else {
				usage.Release(settleCtx, reservation)
			}
			return handlerErr
		}
	}
}
