package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
)

const subscriptionColumns = `
		id, user_id, plan, status, is_annual,
		current_period_start, current_period_end, payment_reference,
		failed_payment_count, created_at, updated_at`

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, subscription *entity.Subscription) error {
	query := `
		INSERT INTO user_subscriptions (
			user_id, plan, status, is_annual,
			current_period_start, current_period_end, payment_reference,
			failed_payment_count, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		subscription.UserID,
		string(subscription.Plan),
		string(subscription.Status),
		subscription.IsAnnual,
		nullableTimeValue(subscription.CurrentPeriodStart),
		nullableTimeValue(subscription.CurrentPeriodEnd),
		nullableStringValue(subscription.PaymentReference),
		subscription.FailedPaymentCount,
		subscription.CreatedAt,
		subscription.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrSubscriptionAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	subscription.ID = uint64(id)
	return nil
}

func (r *SubscriptionRepository) Update(ctx context.Context, subscription *entity.Subscription) error {
	query := `
		UPDATE user_subscriptions
		SET plan = ?, status = ?, is_annual = ?,
		    current_period_start = ?, current_period_end = ?, payment_reference = ?,
		    failed_payment_count = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(subscription.Plan),
		string(subscription.Status),
		subscription.IsAnnual,
		nullableTimeValue(subscription.CurrentPeriodStart),
		nullableTimeValue(subscription.CurrentPeriodEnd),
		nullableStringValue(subscription.PaymentReference),
		subscription.FailedPaymentCount,
		subscription.UpdatedAt,
		subscription.ID,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrSubscriptionAlreadyExists
		}
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}

	return nil
}

// IncrementFailedPayments bumps the failed charge counter in place so concurrent
// webhooks cannot lose an increment. An active row turns past_due once the new
// count reaches threshold. MySQL assigns left to right, so status reads the old count.
func (r *SubscriptionRepository) IncrementFailedPayments(ctx context.Context, id uint64, threshold int32, now time.Time) error {
	query := `
		UPDATE user_subscriptions
		SET status = CASE WHEN status = 'active' AND failed_payment_count + 1 >= ? THEN 'past_due' ELSE status END,
		    failed_payment_count = failed_payment_count + 1,
		    updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, threshold, now, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubscriptionNotFound
	}

	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id uint64) (*entity.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE id = ?
	`

	return r.findOne(ctx, query, id)
}

// FindCurrentByUser returns the newest row that may still carry entitlements.
func (r *SubscriptionRepository) FindCurrentByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = ?
		  AND status IN (?, ?, ?)
		ORDER BY id DESC
		LIMIT 1
	`

	return r.findOne(ctx, query,
		userID,
		string(entity.SubscriptionStatusActive),
		string(entity.SubscriptionStatusCanceled),
		string(entity.SubscriptionStatusPastDue),
	)
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE user_id = ?
		ORDER BY id DESC
	`

	return r.listByQuery(ctx, query, userID)
}

// ListPeriodEnded returns non-expired rows whose billing period closed before now.
func (r *SubscriptionRepository) ListPeriodEnded(ctx context.Context, now time.Time) ([]*entity.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM user_subscriptions
		WHERE status IN (?, ?, ?)
		  AND current_period_end IS NOT NULL
		  AND current_period_end < ?
		ORDER BY id ASC
	`

	return r.listByQuery(ctx, query,
		string(entity.SubscriptionStatusActive),
		string(entity.SubscriptionStatusCanceled),
		string(entity.SubscriptionStatusPastDue),
		now,
	)
}

func (r *SubscriptionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Subscription, error) {
	item := &entity.Subscription{}
	if err := scanSubscription(r.db.QueryRowContext(ctx, query, args...), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *SubscriptionRepository) listByQuery(ctx context.Context, query string, args ...interface{}) ([]*entity.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Subscription, 0)
	for rows.Next() {
		item := &entity.Subscription{}
		if err := scanSubscription(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubscription(scanner rowScanner, item *entity.Subscription) error {
	var plan string
	var status string
	var periodStart sql.NullTime
	var periodEnd sql.NullTime
	var reference sql.NullString

	err := scanner.Scan(
		&item.ID,
		&item.UserID,
		&plan,
		&status,
		&item.IsAnnual,
		&periodStart,
		&periodEnd,
		&reference,
		&item.FailedPaymentCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return err
	}

	item.Plan = entity.ParsePlanTier(plan)
	item.Status = entity.SubscriptionStatus(status)
	item.CurrentPeriodStart = nil
	if periodStart.Valid {
		item.CurrentPeriodStart = &periodStart.Time
	}
	item.CurrentPeriodEnd = nil
	if periodEnd.Valid {
		item.CurrentPeriodEnd = &periodEnd.Time
	}
	item.PaymentReference = nil
	if reference.Valid {
		item.PaymentReference = &reference.String
	}

	return nil
}

func nullableStringValue(v *string) interface{} {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return strings.TrimSpace(*v)
}

func nullableTimeValue(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableUint64Value(v *uint64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
