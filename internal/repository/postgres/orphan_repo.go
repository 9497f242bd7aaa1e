package postgres

import (
	"context"
	"database/sql"

	"liondance/internal/domain"
)

type orphanedObjectRepository struct {
	DB *sql.DB
}

func NewOrphanedObjectRepository(db *sql.DB) domain.OrphanedObjectRepository {
	return &orphanedObjectRepository{DB: db}
}

// Record queues key for deletion. Recording the same key twice refreshes its last error.
func (r *orphanedObjectRepository) Record(ctx context.Context, key, reason, lastErr string) error {
	query := `
		INSERT INTO orphaned_objects (object_key, reason, last_error)
		VALUES ($1, $2, $3)
		ON CONFLICT (object_key) DO UPDATE
		SET last_error = EXCLUDED.last_error, updated_at = NOW()
	`
	_, err := r.DB.ExecContext(ctx, query, key, reason, lastErr)
	return err
}

func (r *orphanedObjectRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]*domain.OrphanedObject, error) {
	query := `
		SELECT id, object_key, reason, attempts, last_error, created_at, updated_at
		FROM orphaned_objects
		WHERE attempts < $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.DB.QueryContext(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.OrphanedObject, 0)
	for rows.Next() {
		o := &domain.OrphanedObject{}
		if err := rows.Scan(&o.ID, &o.ObjectKey, &o.Reason, &o.Attempts, &o.LastError, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *orphanedObjectRepository) Resolve(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM orphaned_objects WHERE id = $1`, id)
	return err
}

func (r *orphanedObjectRepository) MarkFailed(ctx context.Context, id, lastErr string) error {
	query := `
		UPDATE orphaned_objects
		SET attempts = attempts + 1, last_error = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query, id, lastErr)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
