package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

var ErrPaymentAlreadyRecorded = errors.New("payment already recorded")

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, record *entity.PaymentRecord) error {
	query := `
		INSERT INTO payments (
			subscription_id, user_id, amount, currency, status,
			reference, failure_reason, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableUint64Value(record.SubscriptionID),
		record.UserID,
		record.Amount,
		record.Currency,
		string(record.Status),
		record.Reference,
		nullableStringValue(record.FailureReason),
		record.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyRecorded
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}

func (r *PaymentRepository) FindByReference(ctx context.Context, reference string, status entity.PaymentStatus) (*entity.PaymentRecord, error) {
	query := `
		SELECT id, subscription_id, user_id, amount, currency, status,
		       reference, failure_reason, created_at
		FROM payments
		WHERE reference = ?
		  AND status = ?
		LIMIT 1
	`

	item := &entity.PaymentRecord{}
	var subscriptionID sql.NullInt64
	var storedStatus string
	var failureReason sql.NullString
	err := r.db.QueryRowContext(ctx, query, reference, string(status)).Scan(
		&item.ID,
		&subscriptionID,
		&item.UserID,
		&item.Amount,
		&item.Currency,
		&storedStatus,
		&item.Reference,
		&failureReason,
		&item.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item.Status = entity.PaymentStatus(storedStatus)
	if subscriptionID.Valid {
		id := uint64(subscriptionID.Int64)
		item.SubscriptionID = &id
	}
	if failureReason.Valid {
		item.FailureReason = &failureReason.String
	}

	return item, nil
}
