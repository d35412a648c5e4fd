package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
)

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UpsertUser returns the user with the given email, creating it with a fresh
// id if needed. Ids are stable for an email once assigned.
func (db *DB) UpsertUser(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, apperr.NewValidationError(errors.New("email is required"))
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?) ON CONFLICT(email) DO NOTHING`,
		uuid.NewString(), email, db.now().UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("store: upsert user: %w", err)
	}
	return db.UserByEmail(ctx, email)
}

// DeleteUser removes a user. Notes they own and share rows naming them are
// left in place; dangling share rows never grant access.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	return nil
}

// UserByEmail looks a user up by email or returns apperr.ErrNotFound.
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT id, email FROM users WHERE email = ?`, NormalizeEmail(email))
}

// UserByID looks a user up by id or returns apperr.ErrNotFound.
func (db *DB) UserByID(ctx context.Context, id string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT id, email FROM users WHERE id = ?`, id)
}

func (db *DB) queryUser(ctx context.Context, query, arg string) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

// AllUsers returns every known user as an email -> id map.
func (db *DB) AllUsers(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, email FROM users`)
	if err != nil {
		return nil, fmt.Errorf("store: all users: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		out[email] = id
	}
	return out, rows.Err()
}
