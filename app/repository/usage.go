package repository

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-entitlements/app/entity"
)

// UsageRepository is the append-only feature_usage ledger.
type UsageRepository struct {
	db DBTX
}

func NewUsageRepository(db DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Record(ctx context.Context, event *entity.UsageEvent) error {
	query := `
		INSERT INTO feature_usage (user_id, feature_key, count, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, event.UserID, string(event.Kind), event.Count, event.CreatedAt)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

func (r *UsageRepository) SumSince(ctx context.Context, userID string, kind entity.UsageKind, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(count), 0)
		FROM feature_usage
		WHERE user_id = ?
		  AND feature_key = ?
		  AND created_at >= ?
	`

	var total int64
	if err := r.db.QueryRowContext(ctx, query, userID, string(kind), since).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *UsageRepository) SumByKindSince(ctx context.Context, userID string, since time.Time) (map[entity.UsageKind]int64, error) {
	query := `
		SELECT feature_key, COALESCE(SUM(count), 0)
		FROM feature_usage
		WHERE user_id = ?
		  AND created_at >= ?
		GROUP BY feature_key
	`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[entity.UsageKind]int64)
	for rows.Next() {
		var kind string
		var total int64
		if err := rows.Scan(&kind, &total); err != nil {
			return nil, err
		}
		totals[entity.UsageKind(kind)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return totals, nil
}
