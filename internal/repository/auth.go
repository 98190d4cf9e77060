// Package repository provides PostgreSQL persistence for the development
// vault server: accounts, authorization codes, objects and metadata.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/SecureNotes/internal/errs"
	"github.com/atinyakov/SecureNotes/internal/models"
)

// PostgresAuthRepository stores accounts and authorization codes.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// EnsureUser returns the account named username, creating it with id when
// it does not exist yet.
func (r *PostgresAuthRepository) EnsureUser(ctx context.Context, id, username string) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (id, username) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, username, created_at
	`, id, username).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("EnsureUser: %w", err)
	}
	return u, nil
}

// GetUser fetches an account by id.
func (r *PostgresAuthRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, errs.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("GetUser: %w", err)
	}
	return u, nil
}

// SaveAuthCode stores a freshly issued authorization code.
func (r *PostgresAuthRepository) SaveAuthCode(ctx context.Context, c models.AuthCode) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO auth_codes (code, user_id, client_id, redirect_uri, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.Code, c.UserID, c.ClientID, c.RedirectURI, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("SaveAuthCode: %w", err)
	}
	return nil
}

// ConsumeAuthCode marks code as used and returns it. Unknown, used and
// expired codes yield errs.ErrInvalidGrant.
func (r *PostgresAuthRepository) ConsumeAuthCode(ctx context.Context, code string) (models.AuthCode, error) {
	c := models.AuthCode{Code: code}
	err := r.DB.QueryRowContext(ctx, `
		UPDATE auth_codes SET used = true
		 WHERE code = $1 AND used = false AND expires_at > now()
		RETURNING user_id, client_id, redirect_uri, expires_at
	`, code).Scan(&c.UserID, &c.ClientID, &c.RedirectURI, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AuthCode{}, errs.ErrInvalidGrant
	}
	if err != nil {
		return models.AuthCode{}, fmt.Errorf("ConsumeAuthCode: %w", err)
	}
	return c, nil
}
