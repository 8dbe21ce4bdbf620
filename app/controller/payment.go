package controller

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/dto"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/payment"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
	"github.com/vibast-solutions/ms-go-entitlements/config"
)

const maxWebhookBodyBytes = 1 << 20

type PaymentController struct {
	paymentService *service.PaymentService
	cfg            config.PaystackConfig
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService, cfg config.PaystackConfig) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		cfg:            cfg,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Initialize(ctx echo.Context) error {
	req, err := types.NewInitializePaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.Initialize(ctx.Request().Context(), req)
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Initialize payment")
	}

	return ctx.JSON(http.StatusOK, &dto.InitializePaymentResponse{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        result.Reference,
	})
}

func (c *PaymentController) Verify(ctx echo.Context) error {
	req, err := types.NewVerifyPaymentRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid query params")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.Verify(ctx.Request().Context(), req.GetUserId(), req.GetReference())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Verify payment")
	}

	return ctx.JSON(http.StatusOK, &dto.VerifyPaymentResponse{
		Success:   result.Success,
		Plan:      string(result.Plan),
		IsAnnual:  result.IsAnnual,
		Reference: result.Reference,
	})
}

// Webhook always acknowledges the provider once the signature is accepted;
// processing failures are logged only so the provider does not retry.
func (c *PaymentController) Webhook(ctx echo.Context) error {
	logger := factory.LoggerWithContext(c.logger, ctx)

	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBodyBytes))
	if err != nil {
		logger.WithError(err).Warn("Read webhook body failed")
		return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true})
	}

	if c.cfg.VerifyWebhooks && c.cfg.SecretKey != "" {
		if !payment.VerifySignature(body, ctx.Request().Header.Get(payment.SignatureHeader), c.cfg.SecretKey) {
			logger.Warn("Webhook signature rejected")
			return writeError(ctx, http.StatusUnauthorized, "invalid signature")
		}
	}

	evt, err := payment.ParseWebhook(body)
	if err != nil {
		logger.WithError(err).Warn("Webhook payload ignored")
		return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true})
	}

	if err := c.paymentService.HandleWebhook(ctx.Request().Context(), evt); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"event":     evt.Event,
			"reference": evt.Reference,
		}).Error("Webhook processing failed")
	}
	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true})
}
