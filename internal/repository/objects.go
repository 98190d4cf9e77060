package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/atinyakov/SecureNotes/internal/errs"
	"github.com/atinyakov/SecureNotes/internal/models"
)

// foreignKeyViolation is the PostgreSQL error code for a missing parent row.
const foreignKeyViolation = "23503"

// PostgresObjectRepository stores per-user blobs and the metadata blob.
type PostgresObjectRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresObjectRepository creates a new PostgresObjectRepository using the provided *sql.DB.
func NewPostgresObjectRepository(db *sql.DB) *PostgresObjectRepository {
	return &PostgresObjectRepository{DB: db}
}

// ListObjects returns path, size and modification time of every object of userID.
func (r *PostgresObjectRepository) ListObjects(ctx context.Context, userID string) ([]models.ObjectInfo, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT path, octet_length(data), updated_at FROM objects WHERE user_id = $1 ORDER BY path
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListObjects: %w", err)
	}
	defer rows.Close()

	objects := []models.ObjectInfo{}
	for rows.Next() {
		var o models.ObjectInfo
		if err := rows.Scan(&o.Path, &o.Size, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListObjects: %w", err)
	}
	return objects, nil
}

// GetObject fetches one object.
func (r *PostgresObjectRepository) GetObject(ctx context.Context, userID, path string) (models.Object, error) {
	o := models.Object{Path: path}
	err := r.DB.QueryRowContext(ctx, `
		SELECT data, updated_at FROM objects WHERE user_id = $1 AND path = $2
	`, userID, path).Scan(&o.Data, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Object{}, errs.ErrNotFound
	}
	if err != nil {
		return models.Object{}, fmt.Errorf("GetObject: %w", err)
	}
	return o, nil
}

// PutObject stores data at path. When limit is positive the write is
// rejected with errs.ErrQuotaExceeded if the user's total would exceed it.
// The usage check and the write happen in one transaction, serialized per
// user with an advisory lock.
func (r *PostgresObjectRepository) PutObject(ctx context.Context, userID, path string, data []byte, limit int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("lock user: %w", err)
	}

	if limit > 0 {
		var others int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(octet_length(data)), 0) FROM objects WHERE user_id = $1 AND path <> $2
		`, userID, path).Scan(&others)
		if err != nil {
			return fmt.Errorf("usage: %w", err)
		}
		if others+int64(len(data)) > limit {
			return errs.ErrQuotaExceeded
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO objects (user_id, path, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, path) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`, userID, path, data)
	if err != nil {
		return fmt.Errorf("upsert: %w", mapPQ(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DeleteObject removes one object. A missing object yields errs.ErrNotFound.
func (r *PostgresObjectRepository) DeleteObject(ctx context.Context, userID, path string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM objects WHERE user_id = $1 AND path = $2`, userID, path)
	if err != nil {
		return fmt.Errorf("DeleteObject: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteObject: %w", err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Usage returns the total size of the objects of userID.
func (r *PostgresObjectRepository) Usage(ctx context.Context, userID string) (int64, error) {
	var used int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(octet_length(data)), 0) FROM objects WHERE user_id = $1
	`, userID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("Usage: %w", err)
	}
	return used, nil
}

// GetMetadata returns the metadata blob of userID, or nil when none was stored.
func (r *PostgresObjectRepository) GetMetadata(ctx context.Context, userID string) ([]byte, error) {
	var data []byte
	err := r.DB.QueryRowContext(ctx, `SELECT data FROM metadata WHERE user_id = $1`, userID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetMetadata: %w", err)
	}
	return data, nil
}

// PutMetadata replaces the metadata blob of userID.
func (r *PostgresObjectRepository) PutMetadata(ctx context.Context, userID string, data []byte) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO metadata (user_id, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, userID, data)
	if err != nil {
		return fmt.Errorf("PutMetadata: %w", mapPQ(err))
	}
	return nil
}

// mapPQ turns a missing-account foreign key violation into errs.ErrNotFound.
func mapPQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, pqErr.Message)
	}
	return err
}
