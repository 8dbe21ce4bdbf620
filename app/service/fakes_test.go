package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
	"github.com/vibast-solutions/ms-go-entitlements/app/generation"
	"github.com/vibast-solutions/ms-go-entitlements/app/payment"
	"github.com/vibast-solutions/ms-go-entitlements/app/repository"
)

type mockUsageRepo struct {
	mu               sync.Mutex
	recorded         []*entity.UsageEvent
	recordFn         func(ctx context.Context, event *entity.UsageEvent) error
	sumSinceFn       func(ctx context.Context, userID string, kind entity.UsageKind, since time.Time) (int64, error)
	sumByKindSinceFn func(ctx context.Context, userID string, since time.Time) (map[entity.UsageKind]int64, error)
}

func (m *mockUsageRepo) Record(ctx context.Context, event *entity.UsageEvent) error {
	if m.recordFn != nil {
		if err := m.recordFn(ctx, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, event)
	return nil
}

func (m *mockUsageRepo) SumSince(ctx context.Context, userID string, kind entity.UsageKind, since time.Time) (int64, error) {
	if m.sumSinceFn != nil {
		return m.sumSinceFn(ctx, userID, kind, since)
	}
	return 0, nil
}

func (m *mockUsageRepo) SumByKindSince(ctx context.Context, userID string, since time.Time) (map[entity.UsageKind]int64, error) {
	if m.sumByKindSinceFn != nil {
		return m.sumByKindSinceFn(ctx, userID, since)
	}
	return nil, nil
}

func (m *mockUsageRepo) events() []*entity.UsageEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.UsageEvent(nil), m.recorded...)
}

// memorySubscriptionRepo mimics the MySQL repository, including the one-active-row index.
type memorySubscriptionRepo struct {
	mu         sync.Mutex
	nextID     uint64
	rows       map[uint64]entity.Subscription
	updates    int
	increments int
	createFn   func(ctx context.Context, subscription *entity.Subscription) error
}

func newMemorySubscriptionRepo() *memorySubscriptionRepo {
	return &memorySubscriptionRepo{rows: map[uint64]entity.Subscription{}}
}

func (r *memorySubscriptionRepo) Create(ctx context.Context, subscription *entity.Subscription) error {
	if r.createFn != nil {
		if err := r.createFn(ctx, subscription); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if subscription.Status == entity.SubscriptionStatusActive && r.hasActiveLocked(subscription.UserID, 0) {
		return repository.ErrSubscriptionAlreadyExists
	}
	r.nextID++
	subscription.ID = r.nextID
	r.rows[subscription.ID] = *subscription
	return nil
}

func (r *memorySubscriptionRepo) Update(_ context.Context, subscription *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[subscription.ID]; !ok {
		return repository.ErrSubscriptionNotFound
	}
	if subscription.Status == entity.SubscriptionStatusActive && r.hasActiveLocked(subscription.UserID, subscription.ID) {
		return repository.ErrSubscriptionAlreadyExists
	}
	r.rows[subscription.ID] = *subscription
	r.updates++
	return nil
}

func (r *memorySubscriptionRepo) FindByID(_ context.Context, id uint64) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *memorySubscriptionRepo) FindCurrentByUser(_ context.Context, userID string) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current *entity.Subscription
	for _, row := range r.sortedLocked() {
		if row.UserID != userID {
			continue
		}
		switch row.Status {
		case entity.SubscriptionStatusActive, entity.SubscriptionStatusCanceled, entity.SubscriptionStatusPastDue:
			item := row
			current = &item
		}
	}
	return current, nil
}

func (r *memorySubscriptionRepo) ListByUser(_ context.Context, userID string) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*entity.Subscription
	for _, row := range r.sortedLocked() {
		if row.UserID == userID {
			item := row
			items = append(items, &item)
		}
	}
	return items, nil
}

func (r *memorySubscriptionRepo) ListPeriodEnded(_ context.Context, now time.Time) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*entity.Subscription
	for _, row := range r.sortedLocked() {
		if row.Status != entity.SubscriptionStatusExpired && row.PeriodEnded(now) {
			item := row
			items = append(items, &item)
		}
	}
	return items, nil
}

func (r *memorySubscriptionRepo) IncrementFailedPayments(_ context.Context, id uint64, threshold int32, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	row.FailedPaymentCount++
	if row.Status == entity.SubscriptionStatusActive && row.FailedPaymentCount >= threshold {
		row.Status = entity.SubscriptionStatusPastDue
	}
	row.UpdatedAt = now
	r.rows[id] = row
	r.increments++
	return nil
}

func (r *memorySubscriptionRepo) get(id uint64) entity.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *memorySubscriptionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *memorySubscriptionRepo) put(row entity.Subscription) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	row.ID = r.nextID
	r.rows[row.ID] = row
	return row.ID
}

func (r *memorySubscriptionRepo) hasActiveLocked(userID string, exceptID uint64) bool {
	for id, row := range r.rows {
		if id != exceptID && row.UserID == userID && row.Status == entity.SubscriptionStatusActive {
			return true
		}
	}
	return false
}

func (r *memorySubscriptionRepo) sortedLocked() []entity.Subscription {
	items := make([]entity.Subscription, 0, len(r.rows))
	for _, row := range r.rows {
		items = append(items, row)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

type mockPaymentRepo struct {
	mu      sync.Mutex
	records []*entity.PaymentRecord
	seen    map[string]bool
}

func (m *mockPaymentRepo) Create(_ context.Context, record *entity.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	key := record.Reference + "/" + string(record.Status)
	if m.seen[key] {
		return repository.ErrPaymentAlreadyRecorded
	}
	m.seen[key] = true
	m.records = append(m.records, record)
	return nil
}

func (m *mockPaymentRepo) FindByReference(_ context.Context, reference string, status entity.PaymentStatus) (*entity.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.Reference == reference && record.Status == status {
			item := *record
			return &item, nil
		}
	}
	return nil, nil
}

type fakeUsageRecorder struct {
	mu     sync.Mutex
	counts map[entity.UsageKind]int64
}

func (f *fakeUsageRecorder) RecordBestEffort(_ context.Context, _ string, kind entity.UsageKind, count int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[entity.UsageKind]int64{}
	}
	f.counts[kind] += count
}

func (f *fakeUsageRecorder) get(kind entity.UsageKind) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[kind]
}

type fakeGateway struct {
	initializeFn func(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error)
	verifyFn     func(ctx context.Context, reference string) (*payment.Transaction, error)
}

func (f *fakeGateway) Initialize(ctx context.Context, req payment.InitializeRequest) (*payment.InitializeResult, error) {
	if f.initializeFn != nil {
		return f.initializeFn(ctx, req)
	}
	return &payment.InitializeResult{AuthorizationURL: "https://checkout.test/" + req.Reference, Reference: req.Reference}, nil
}

func (f *fakeGateway) Verify(ctx context.Context, reference string) (*payment.Transaction, error) {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, reference)
	}
	return nil, payment.ErrGateway
}

type fakeProvider struct {
	generateFn func(ctx context.Context, req generation.Request) (*generation.Image, error)
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) Generate(ctx context.Context, req generation.Request) (*generation.Image, error) {
	if f.generateFn != nil {
		return f.generateFn(ctx, req)
	}
	return &generation.Image{URL: "https://img/" + req.Prompt, Provider: "fake"}, nil
}
