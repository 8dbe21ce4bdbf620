package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-entitlements/app/factory"
	"github.com/vibast-solutions/ms-go-entitlements/app/mapper"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
)

// GenerationController runs billable generation. Quota is reserved by the
// usage-limit middleware in front of each route; a non-2xx response here releases it.
type GenerationController struct {
	generationService *service.GenerationService
	logger            logrus.FieldLogger
}

func NewGenerationController(generationService *service.GenerationService) *GenerationController {
	return &GenerationController{
		generationService: generationService,
		logger:            factory.NewModuleLogger("generation-controller"),
	}
}

// Generate serves both mockup and plain image generation; the routes differ only in the quota they spend.
func (c *GenerationController) Generate(ctx echo.Context) error {
	req, err := types.NewGenerateImageRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	img, err := c.generationService.Generate(ctx.Request().Context(), req.GetPrompt(), req.GetSize())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Generate image")
	}
	return ctx.JSON(http.StatusOK, mapper.ImageToDTO(img))
}

func (c *GenerationController) GenerateBulk(ctx echo.Context) error {
	req, err := types.NewBulkGenerateRequestFromContext(ctx)
	if err != nil {
		return writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if req.GetUserId() == "" {
		return writeUnauthenticated(ctx)
	}
	if err := req.Validate(); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}
	if err := c.generationService.ValidateBulk(req.GetPrompts()); err != nil {
		return writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.generationService.GenerateBulk(ctx.Request().Context(), req.GetPrompts(), req.GetSize())
	if err != nil {
		return writeServiceError(ctx, c.logger, err, "Bulk generation")
	}
	if result.Succeeded == 0 {
		factory.LoggerWithContext(c.logger, ctx).WithField("failed", result.Failed).Error("Bulk generation produced no images")
		return writeError(ctx, http.StatusInternalServerError, internalErrorMessage)
	}
	return ctx.JSON(http.StatusOK, mapper.BulkResultToDTO(result))
}
