package types

import (
	"strings"

	"github.com/labstack/echo/v4"
)

func userFromContext(ctx echo.Context) (string, string) {
	userID, _ := ctx.Get(ContextUserIDKey).(string)
	email, _ := ctx.Get(ContextEmailKey).(string)
	return strings.TrimSpace(userID), strings.TrimSpace(email)
}

type FeatureRequest struct {
	UserId  string `json:"-" validate:"required"`
	Feature string `query:"feature" validate:"required"`
}

func (r *FeatureRequest) GetUserId() string  { return r.UserId }
func (r *FeatureRequest) GetFeature() string { return r.Feature }

func NewFeatureRequestFromContext(ctx echo.Context) (*FeatureRequest, error) {
	userID, _ := userFromContext(ctx)
	return &FeatureRequest{
		UserId:  userID,
		Feature: strings.TrimSpace(ctx.QueryParam("feature")),
	}, nil
}

func (r *FeatureRequest) Validate() error {
	return validateStruct(r)
}

type UserRequest struct {
	UserId string `json:"-" validate:"required"`
	Email  string `json:"-"`
}

func (r *UserRequest) GetUserId() string { return r.UserId }
func (r *UserRequest) GetEmail() string  { return r.Email }

func NewUserRequestFromContext(ctx echo.Context) (*UserRequest, error) {
	userID, email := userFromContext(ctx)
	return &UserRequest{UserId: userID, Email: email}, nil
}

func (r *UserRequest) Validate() error {
	return validateStruct(r)
}

type InitializePaymentRequest struct {
	UserId      string `json:"-" validate:"required"`
	Email       string `json:"-" validate:"required,email"`
	Plan        string `json:"plan" validate:"required"`
	IsAnnual    bool   `json:"is_annual"`
	CallbackUrl string `json:"callback_url" validate:"required,url"`
}

func (r *InitializePaymentRequest) GetUserId() string      { return r.UserId }
func (r *InitializePaymentRequest) GetEmail() string       { return r.Email }
func (r *InitializePaymentRequest) GetPlan() string        { return r.Plan }
func (r *InitializePaymentRequest) GetIsAnnual() bool      { return r.IsAnnual }
func (r *InitializePaymentRequest) GetCallbackUrl() string { return r.CallbackUrl }

func NewInitializePaymentRequestFromContext(ctx echo.Context) (*InitializePaymentRequest, error) {
	var body InitializePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserId, body.Email = userFromContext(ctx)
	body.Plan = strings.ToLower(strings.TrimSpace(body.Plan))
	body.CallbackUrl = strings.TrimSpace(body.CallbackUrl)
	return &body, nil
}

func (r *InitializePaymentRequest) Validate() error {
	return validateStruct(r)
}

type VerifyPaymentRequest struct {
	UserId    string `json:"-" validate:"required"`
	Reference string `query:"reference" validate:"required,max=128"`
}

func (r *VerifyPaymentRequest) GetUserId() string    { return r.UserId }
func (r *VerifyPaymentRequest) GetReference() string { return r.Reference }

func NewVerifyPaymentRequestFromContext(ctx echo.Context) (*VerifyPaymentRequest, error) {
	userID, _ := userFromContext(ctx)
	return &VerifyPaymentRequest{
		UserId:    userID,
		Reference: strings.TrimSpace(ctx.QueryParam("reference")),
	}, nil
}

func (r *VerifyPaymentRequest) Validate() error {
	return validateStruct(r)
}

type GenerateImageRequest struct {
	UserId string `json:"-" validate:"required"`
	Prompt string `json:"prompt" validate:"required,max=4000"`
	Size   string `json:"size" validate:"omitempty,oneof=auto 1024x1024 1024x1536 1536x1024"`
}

func (r *GenerateImageRequest) GetUserId() string { return r.UserId }
func (r *GenerateImageRequest) GetPrompt() string { return r.Prompt }
func (r *GenerateImageRequest) GetSize() string   { return r.Size }

func NewGenerateImageRequestFromContext(ctx echo.Context) (*GenerateImageRequest, error) {
	var body GenerateImageRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserId, _ = userFromContext(ctx)
	body.Prompt = strings.TrimSpace(body.Prompt)
	body.Size = strings.TrimSpace(body.Size)
	return &body, nil
}

func (r *GenerateImageRequest) Validate() error {
	return validateStruct(r)
}

type BulkGenerateRequest struct {
	UserId  string   `json:"-" validate:"required"`
	Prompts []string `json:"prompts" validate:"required,min=1,dive,required,max=4000"`
	Size    string   `json:"size" validate:"omitempty,oneof=auto 1024x1024 1024x1536 1536x1024"`
}

func (r *BulkGenerateRequest) GetUserId() string    { return r.UserId }
func (r *BulkGenerateRequest) GetPrompts() []string { return r.Prompts }
func (r *BulkGenerateRequest) GetSize() string      { return r.Size }

func NewBulkGenerateRequestFromContext(ctx echo.Context) (*BulkGenerateRequest, error) {
	var body BulkGenerateRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserId, _ = userFromContext(ctx)
	for i, prompt := range body.Prompts {
		body.Prompts[i] = strings.TrimSpace(prompt)
	}
	body.Size = strings.TrimSpace(body.Size)
	return &body, nil
}

func (r *BulkGenerateRequest) Validate() error {
	return validateStruct(r)
}

type ExportRequest struct {
	UserId string `json:"-" validate:"required"`
	Format string `json:"format" validate:"required"`
}

func (r *ExportRequest) GetUserId() string { return r.UserId }
func (r *ExportRequest) GetFormat() string { return r.Format }

func NewExportRequestFromContext(ctx echo.Context) (*ExportRequest, error) {
	var body ExportRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserId, _ = userFromContext(ctx)
	body.Format = strings.ToLower(strings.TrimSpace(body.Format))
	return &body, nil
}

func (r *ExportRequest) Validate() error {
	return validateStruct(r)
}
