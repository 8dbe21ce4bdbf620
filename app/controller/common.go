package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/mapper"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
)

const internalErrorMessage = "internal server error"

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

// writeServiceError maps service errors onto the HTTP taxonomy. Anything
// unrecognised is logged and hidden behind a generic 500.
func writeServiceError(ctx echo.Context, logger logrus.FieldLogger, err error, action string) error {
	var exceeded *service.QuotaExceededError
	var denied *service.FeatureDeniedError

	switch {
	case errors.As(err, &exceeded):
		return ctx.JSON(http.StatusForbidden, mapper.QuotaExceededToDTO(exceeded))
	case errors.As(err, &denied):
		return ctx.JSON(http.StatusForbidden, mapper.FeatureDeniedToDTO(denied))
	case errors.Is(err, service.ErrUnauthenticated):
		return writeError(ctx, http.StatusUnauthorized, service.ErrUnauthenticated.Error())
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrUnknownFeature),
		errors.Is(err, service.ErrFeatureNotMetered),
		errors.Is(err, service.ErrUnknownPlan):
		return writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPaymentNotVerified):
		return writeError(ctx, http.StatusBadRequest, service.ErrPaymentNotVerified.Error())
	case errors.Is(err, service.ErrSubscriptionNotFound):
		return writeError(ctx, http.StatusNotFound, service.ErrSubscriptionNotFound.Error())
	default:
		factory.LoggerWithContext(logger, ctx).WithError(err).Error(action + " failed")
		return writeError(ctx, http.StatusInternalServerError, internalErrorMessage)
	}
}

func writeUnauthenticated(ctx echo.Context) error {
	return writeError(ctx, http.StatusUnauthorized, service.ErrUnauthenticated.Error())
}
