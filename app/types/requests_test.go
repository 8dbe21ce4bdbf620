package types

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"google.golang.org/protobuf/types/known/structpb"
)

func newContext(method, target, body string) echo.Context {
	e := echo.New()
	var req = httptest.NewRequest(method, target, nil)
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	ctx := e.NewContext(req, httptest.NewRecorder())
	ctx.Set(ContextUserIDKey, "u1")
	ctx.Set(ContextEmailKey, "u1@example.com")
	return ctx
}

func TestNewFeatureRequestFromContext(t *testing.T) {
	ctx := newContext("GET", "/api/feature-usage/remaining?feature=mockupsPerMonth", "")

	parsed, err := NewFeatureRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetUserId() != "u1" || parsed.GetFeature() != "mockupsPerMonth" {
		t.Fatalf("unexpected parsed request: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestFeatureRequestValidateMissingFeature(t *testing.T) {
	req := &FeatureRequest{UserId: "u1"}
	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if err.Error() != "feature is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestNewInitializePaymentRequestFromContext(t *testing.T) {
	ctx := newContext("POST", "/api/payments/initialize", `{"plan":" Pro ","is_annual":true,"callback_url":"https://app.example.com/billing","user_id":"spoofed"}`)

	parsed, err := NewInitializePaymentRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetUserId() != "u1" || parsed.GetEmail() != "u1@example.com" {
		t.Fatalf("expected identity from context, got %+v", parsed)
	}
	if parsed.GetPlan() != "pro" || !parsed.GetIsAnnual() {
		t.Fatalf("unexpected parsed request: %+v", parsed)
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestInitializePaymentValidate(t *testing.T) {
	req := &InitializePaymentRequest{UserId: "u1", Email: "u1@example.com", CallbackUrl: "https://x.test"}
	if err := req.Validate(); err == nil || err.Error() != "plan is required" {
		t.Fatalf("expected plan error, got %v", err)
	}

	req = &InitializePaymentRequest{UserId: "u1", Email: "u1@example.com", Plan: "pro"}
	if err := req.Validate(); err == nil || err.Error() != "callback_url is required" {
		t.Fatalf("expected callback error, got %v", err)
	}

	req = &InitializePaymentRequest{UserId: "u1", Email: "u1@example.com", Plan: "pro", CallbackUrl: "not a url"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected url validation error")
	}
}

func TestNewInitializePaymentRequestInvalidBody(t *testing.T) {
	ctx := newContext("POST", "/api/payments/initialize", `{"plan":`)
	if _, err := NewInitializePaymentRequestFromContext(ctx); err == nil {
		t.Fatal("expected bind error")
	}
}

func TestVerifyPaymentValidate(t *testing.T) {
	ctx := newContext("GET", "/api/payments/verify?reference=appv_1", "")
	parsed, _ := NewVerifyPaymentRequestFromContext(ctx)
	if parsed.GetReference() != "appv_1" {
		t.Fatalf("unexpected reference: %q", parsed.GetReference())
	}

	req := &VerifyPaymentRequest{UserId: "u1"}
	if err := req.Validate(); err == nil || err.Error() != "reference is required" {
		t.Fatalf("expected reference error, got %v", err)
	}
}

func TestGenerateImageValidate(t *testing.T) {
	req := &GenerateImageRequest{UserId: "u1", Prompt: "a phone on a desk", Size: "1024x1536"}
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	req.Size = "9x9"
	if err := req.Validate(); err == nil || !strings.HasPrefix(err.Error(), "size must be one of") {
		t.Fatalf("expected size error, got %v", err)
	}

	req = &GenerateImageRequest{UserId: "u1", Prompt: strings.Repeat("a", 4001)}
	if err := req.Validate(); err == nil {
		t.Fatal("expected prompt length error")
	}
}

func TestNewBulkGenerateRequestFromContext(t *testing.T) {
	ctx := newContext("POST", "/api/mockups/bulk", `{"prompts":[" one ","two"]}`)

	parsed, err := NewBulkGenerateRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(parsed.GetPrompts()) != 2 || parsed.GetPrompts()[0] != "one" {
		t.Fatalf("unexpected prompts: %v", parsed.GetPrompts())
	}
	if err := parsed.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestBulkGenerateValidate(t *testing.T) {
	req := &BulkGenerateRequest{UserId: "u1"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected prompts error")
	}

	req = &BulkGenerateRequest{UserId: "u1", Prompts: []string{"ok", ""}}
	if err := req.Validate(); err == nil {
		t.Fatal("expected empty prompt error")
	}
}

func TestNewExportRequestFromContext(t *testing.T) {
	ctx := newContext("POST", "/api/exports", `{"format":"PDF"}`)

	parsed, err := NewExportRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if parsed.GetFormat() != "pdf" || parsed.GetUserId() != "u1" {
		t.Fatalf("unexpected parsed request: %+v", parsed)
	}
}

func TestUserRequestValidate(t *testing.T) {
	e := echo.New()
	ctx := e.NewContext(httptest.NewRequest("GET", "/api/subscription", nil), httptest.NewRecorder())

	parsed, _ := NewUserRequestFromContext(ctx)
	if err := parsed.Validate(); err == nil {
		t.Fatal("expected missing user error")
	}
}

func TestConsumeRequestFromStruct(t *testing.T) {
	in, err := structpb.NewStruct(map[string]interface{}{"user_id": "u1", "feature": "mockupsPerMonth"})
	if err != nil {
		t.Fatalf("struct build failed: %v", err)
	}

	req, err := NewConsumeRequestFromStruct(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if req.GetAmount() != 1 || req.GetUserId() != "u1" {
		t.Fatalf("unexpected request: %+v", req)
	}

	in.Fields["amount"] = structpb.NewNumberValue(0)
	req, _ = NewConsumeRequestFromStruct(in)
	if err := req.Validate(); err == nil || err.Error() != "amount must be at least 1" {
		t.Fatalf("expected amount error, got %v", err)
	}

	in.Fields["amount"] = structpb.NewNumberValue(1.5)
	if _, err := NewConsumeRequestFromStruct(in); err == nil {
		t.Fatal("expected fractional amount error")
	}

	in.Fields["amount"] = structpb.NewNumberValue(1e19)
	if _, err := NewConsumeRequestFromStruct(in); err == nil || err.Error() != "amount is out of range" {
		t.Fatalf("expected out of range error, got %v", err)
	}

	in.Fields["amount"] = structpb.NewNumberValue(1000001)
	req, err = NewConsumeRequestFromStruct(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := req.Validate(); err == nil || err.Error() != "amount must be at most 1000000" {
		t.Fatalf("expected amount cap error, got %v", err)
	}
}

func TestFeatureLookupRequestValidate(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]interface{}{"feature": "apiAccess"})
	req := NewFeatureLookupRequestFromStruct(in)
	if err := req.Validate(); err == nil || err.Error() != "user_id is required" {
		t.Fatalf("expected user_id error, got %v", err)
	}
}

func TestSubscriptionLookupRequestFromStruct(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]interface{}{})
	req, err := NewSubscriptionLookupRequestFromStruct(in)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := req.Validate(); err == nil || err.Error() != "user_id or id is required" {
		t.Fatalf("expected lookup key error, got %v", err)
	}

	in.Fields["id"] = structpb.NewNumberValue(7)
	req, err = NewSubscriptionLookupRequestFromStruct(in)
	if err != nil || req.GetId() != 7 || req.Validate() != nil {
		t.Fatalf("unexpected request: %+v err=%v", req, err)
	}

	in.Fields["id"] = structpb.NewNumberValue(-3)
	if _, err := NewSubscriptionLookupRequestFromStruct(in); err == nil || err.Error() != "id must be a positive integer" {
		t.Fatalf("expected id error, got %v", err)
	}
}

func TestSubscriptionIDRequestFromStruct(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]interface{}{})
	if _, err := NewSubscriptionIDRequestFromStruct(in); err == nil || err.Error() != "id is required" {
		t.Fatalf("expected id required error, got %v", err)
	}

	in.Fields["id"] = structpb.NewStringValue("7")
	if _, err := NewSubscriptionIDRequestFromStruct(in); err == nil {
		t.Fatal("expected string id to be rejected")
	}

	in.Fields["id"] = structpb.NewNumberValue(12)
	req, err := NewSubscriptionIDRequestFromStruct(in)
	if err != nil || req.GetId() != 12 || req.Validate() != nil {
		t.Fatalf("unexpected request: %+v err=%v", req, err)
	}
}
