package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/vibast-solutions/ms-go-entitlements/app/dto"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

func TestHealth(t *testing.T) {
	ctrl := NewSubscriptionController(newFixture(nil).subscription)
	ctx, rec := newTestContext(http.MethodGet, "/health", "", "")

	if err := ctrl.Health(ctx); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"status\":\"ok\"}\n" {
		t.Fatalf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestGetSubscriptionSynthesizesFree(t *testing.T) {
	ctrl := NewSubscriptionController(newFixture(nil).subscription)
	ctx, rec := newTestContext(http.MethodGet, "/api/subscription", "", "u1")

	if err := ctrl.GetSubscription(ctx); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}

	var body dto.SubscriptionEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Subscription.Plan != "free" || body.Subscription.Status != "active" || body.Subscription.ID != 0 {
		t.Fatalf("unexpected subscription: %+v", body.Subscription)
	}
}

func TestGetSubscriptionUnauthenticated(t *testing.T) {
	ctrl := NewSubscriptionController(newFixture(nil).subscription)
	ctx, rec := newTestContext(http.MethodGet, "/api/subscription", "", "")

	if err := ctrl.GetSubscription(ctx); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCancelSubscriptionIsIdempotent(t *testing.T) {
	f := newFixture(nil)
	f.activePlan("u1", entity.PlanPro)
	updates := 0
	f.subRepo.updateFn = func(_ context.Context, _ *entity.Subscription) error {
		updates++
		return nil
	}
	ctrl := NewSubscriptionController(f.subscription)

	for i := 0; i < 2; i++ {
		ctx, rec := newTestContext(http.MethodPost, "/api/subscription/cancel", "", "u1")
		if err := ctrl.CancelSubscription(ctx); err != nil {
			t.Fatalf("unexpected handler error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
		var body dto.MessageWithSubscriptionResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Subscription.Status != "canceled" || body.Subscription.Plan != "pro" {
			t.Fatalf("call %d: unexpected subscription %+v", i+1, body.Subscription)
		}
	}

	if updates != 1 {
		t.Fatalf("expected a single write, got %d", updates)
	}
	if f.subRepo.snapshot().Status != entity.SubscriptionStatusCanceled {
		t.Fatal("expected stored subscription canceled")
	}
}

func TestCancelSubscriptionWithoutPaidPlan(t *testing.T) {
	ctrl := NewSubscriptionController(newFixture(nil).subscription)
	ctx, rec := newTestContext(http.MethodPost, "/api/subscription/cancel", "", "u1")

	if err := ctrl.CancelSubscription(ctx); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListSubscriptions(t *testing.T) {
	f := newFixture(nil)
	f.activePlan("u1", entity.PlanTeam)
	ctrl := NewSubscriptionController(f.subscription)
	ctx, rec := newTestContext(http.MethodGet, "/api/subscriptions", "", "u1")

	if err := ctrl.ListSubscriptions(ctx); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body dto.ListSubscriptionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Subscriptions) != 1 || body.Subscriptions[0].Plan != "team" {
		t.Fatalf("unexpected subscriptions: %+v", body.Subscriptions)
	}
}

func TestListSubscriptionsEmptyForNewUser(t *testing.T) {
	ctrl := NewSubscriptionController(newFixture(nil).subscription)
	ctx, rec := newTestContext(http.MethodGet, "/api/subscriptions", "", "u-new")

	if err := ctrl.ListSubscriptions(ctx); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"subscriptions\":[]}\n" {
		t.Fatalf("unexpected response: %d %s", rec.Code, rec.Body.String())
	}
}
