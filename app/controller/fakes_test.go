package controller

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-entitlements/app/cache"
	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/generation"
	"github.com/vibast-solutions/ms-go-entitlements/app/payment"
	"github.com/vibast-solutions/ms-go-entitlements/app/repository"
	"github.com/vibast-solutions/ms-go-entitlements/app/service"
	"github.com/vibast-solutions/ms-go-entitlements/app/types"
	"github.com/vibast-solutions/ms-go-entitlements/config"
)

type controllerUsageRepo struct {
	mu       sync.Mutex
	used     map[entity.UsageKind]int64
	recorded []*entity.UsageEvent
}

func newControllerUsageRepo(used map[entity.UsageKind]int64) *controllerUsageRepo {
	if used == nil {
		used = map[entity.UsageKind]int64{}
	}
	return &controllerUsageRepo{used: used}
}

func (r *controllerUsageRepo) Record(_ context.Context, event *entity.UsageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.used[event.Kind] += event.Count
	r.recorded = append(r.recorded, event)
	return nil
}

func (r *controllerUsageRepo) SumSince(_ context.Context, _ string, kind entity.UsageKind, _ time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used[kind], nil
}

func (r *controllerUsageRepo) SumByKindSince(context.Context, string, time.Time) (map[entity.UsageKind]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[entity.UsageKind]int64, len(r.used))
	for kind, count := range r.used {
		result[kind] = count
	}
	return result, nil
}

func (r *controllerUsageRepo) count(kind entity.UsageKind) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, event := range r.recorded {
		if event.Kind == kind {
			total += event.Count
		}
	}
	return total
}

// controllerSubRepo holds at most one subscription row.
type controllerSubRepo struct {
	mu       sync.Mutex
	current  *entity.Subscription
	findErr  error
	updateFn func(ctx context.Context, subscription *entity.Subscription) error
}

func (r *controllerSubRepo) Create(_ context.Context, subscription *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	subscription.ID = 1
	item := *subscription
	r.current = &item
	return nil
}

func (r *controllerSubRepo) Update(ctx context.Context, subscription *entity.Subscription) error {
	if r.updateFn != nil {
		if err := r.updateFn(ctx, subscription); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item := *subscription
	r.current = &item
	return nil
}

func (r *controllerSubRepo) FindByID(_ context.Context, id uint64) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.ID != id {
		return nil, nil
	}
	item := *r.current
	return &item, nil
}

func (r *controllerSubRepo) FindCurrentByUser(_ context.Context, userID string) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.current == nil || r.current.UserID != userID || r.current.Status == entity.SubscriptionStatusExpired {
		return nil, nil
	}
	item := *r.current
	return &item, nil
}

func (r *controllerSubRepo) ListByUser(ctx context.Context, userID string) ([]*entity.Subscription, error) {
	item, err := r.FindCurrentByUser(ctx, userID)
	if err != nil || item == nil {
		return nil, err
	}
	return []*entity.Subscription{item}, nil
}

func (r *controllerSubRepo) ListPeriodEnded(context.Context, time.Time) ([]*entity.Subscription, error) {
	return nil, nil
}

func (r *controllerSubRepo) IncrementFailedPayments(_ context.Context, id uint64, threshold int32, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.ID != id {
		return repository.ErrSubscriptionNotFound
	}
	r.current.FailedPaymentCount++
	if r.current.Status == entity.SubscriptionStatusActive && r.current.FailedPaymentCount >= threshold {
		r.current.Status = entity.SubscriptionStatusPastDue
	}
	r.current.UpdatedAt = now
	return nil
}

func (r *controllerSubRepo) snapshot() *entity.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	item := *r.current
	return &item
}

type controllerPaymentRepo struct {
	mu      sync.Mutex
	records []*entity.PaymentRecord
}

func (r *controllerPaymentRepo) Create(_ context.Context, record *entity.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *controllerPaymentRepo) FindByReference(_ context.Context, reference string, status entity.PaymentStatus) (*entity.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.Reference == reference && record.Status == status {
			item := *record
			return &item, nil
		}
	}
	return nil, nil
}

type controllerGateway struct {
	initializeFn func(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error)
	verifyFn     func(ctx context.Context, reference string) (*payment.Transaction, error)
}

func (g *controllerGateway) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	if g.initializeFn != nil {
		return g.initializeFn(ctx, req)
	}
	return &payment.InitializeResult{AuthorizationURL: "https://checkout.test/" + req.Reference, Reference: req.Reference}, nil
}

func (g *controllerGateway) Verify(ctx context.Context, reference string) (*payment.Transaction, error) {
	if g.verifyFn != nil {
		return g.verifyFn(ctx, reference)
	}
	return nil, payment.ErrGateway
}

type controllerProvider struct {
	generateFn func(ctx context.Context, req generation.Request) (*generation.Image, error)
}

func (p *controllerProvider) Name() string {
	return "fake"
}

func (p *controllerProvider) Generate(ctx context.Context, req generation.Request) (*generation.Image, error) {
	if p.generateFn != nil {
		return p.generateFn(ctx, req)
	}
	return &generation.Image{URL: "https://img.test/" + req.Prompt, Provider: "fake"}, nil
}

type fixture struct {
	usageRepo    *controllerUsageRepo
	subRepo      *controllerSubRepo
	paymentRepo  *controllerPaymentRepo
	gateway      *controllerGateway
	provider     *controllerProvider
	subscription *service.SubscriptionService
	usage        *service.UsageService
	payments     *service.PaymentService
	generation   *service.GenerationService
}

func newFixture(used map[entity.UsageKind]int64) *fixture {
	f := &fixture{
		usageRepo:   newControllerUsageRepo(used),
		subRepo:     &controllerSubRepo{},
		paymentRepo: &controllerPaymentRepo{},
		gateway:     &controllerGateway{},
		provider:    &controllerProvider{},
	}
	f.subscription = service.NewSubscriptionService(f.subRepo, config.SubscriptionConfig{PastDueThreshold: 3}, nil)
	f.usage = service.NewUsageService(f.usageRepo, cache.NewMemoryQuotaGuard(), nil)
	f.payments = service.NewPaymentService(f.gateway, f.subscription, f.usage, f.paymentRepo, config.PaystackConfig{Currency: "USD"}, nil)
	f.generation = service.NewGenerationService(f.provider, config.GenerationConfig{BulkConcurrency: 2, BulkMaxPrompts: 3}, nil)
	return f
}

// activePlan stores a paid subscription whose period ends a month from now.
func (f *fixture) activePlan(userID string, plan entity.PlanTier) {
	now := time.Now().UTC()
	end := now.AddDate(0, 1, 0)
	f.subRepo.current = &entity.Subscription{
		ID:                 1,
		UserID:             userID,
		Plan:               plan,
		Status:             entity.SubscriptionStatusActive,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &end,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func newTestContext(method, target, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	if userID != "" {
		ctx.Set(types.ContextUserIDKey, userID)
		ctx.Set(types.ContextEmailKey, userID+"@example.com")
	}
	return ctx, rec
}
