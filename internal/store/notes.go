package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/checksum"
	"github.com/starford/notehub/internal/models"
)

const noteColumns = `n.id, n.owner_id, n.title, n.content, n.is_public, n.checksum, n.created_at, n.updated_at`

// CreateNote inserts a private, unshared note and its search terms in one transaction.
func (db *DB) CreateNote(ctx context.Context, ownerID, title, content string) (*models.Note, error) {
	if err := ValidateNoteInput(title, content); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, apperr.NewValidationError(errors.New("owner is required"))
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	id := uuid.NewString()
	ts := db.nextTimestamp(0)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, owner_id, title, content, is_public, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
	`, id, ownerID, title, content, checksum.Note(title, content), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("store: insert note: %w", err)
	}
	if err := writeTerms(ctx, tx, id, title, content); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetNote(ctx, id)
}

// GetNote returns the note with the given id or apperr.ErrNotFound.
func (db *DB) GetNote(ctx context.Context, id string) (*models.Note, error) {
	return getNote(ctx, db.conn, id)
}

func getNote(ctx context.Context, q querier, id string) (*models.Note, error) {
	row := q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes n WHERE n.id = ?`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	if err := attachShares(ctx, q, []*models.Note{n}); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNote replaces title and content, rewrites the search terms and bumps
// updated_at, all in one transaction. A non-empty ifMatch must equal the
// current checksum or apperr.ErrConflict is returned.
func (db *DB) UpdateNote(ctx context.Context, id, title, content, ifMatch string) (*models.Note, error) {
	if err := ValidateNoteInput(title, content); err != nil {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		current string
		prev    int64
	)
	err = tx.QueryRowContext(ctx, `SELECT checksum, updated_at FROM notes WHERE id = ?`, id).Scan(&current, &prev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read note: %w", err)
	}
	if ifMatch != "" && ifMatch != current {
		return nil, apperr.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, content = ?, checksum = ?, updated_at = ? WHERE id = ?
	`, title, content, checksum.Note(title, content), db.nextTimestamp(prev), id)
	if err != nil {
		return nil, fmt.Errorf("store: update note: %w", err)
	}
	if err := writeTerms(ctx, tx, id, title, content); err != nil {
		return nil, err
	}

	n, err := getNote(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return n, nil
}

// DeleteNote removes a note together with its search terms and share rows.
func (db *DB) DeleteNote(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_terms WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete terms: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_shares WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete shares: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}

// ListOwned returns the notes owned by ownerID.
func (db *DB) ListOwned(ctx context.Context, ownerID string, opts ListOptions) ([]*models.Note, error) {
	return db.listNotes(ctx, `WHERE n.owner_id = ?`, ownerID, opts)
}

// ListShared returns the notes whose share set contains userID.
func (db *DB) ListShared(ctx context.Context, userID string, opts ListOptions) ([]*models.Note, error) {
	return db.listNotes(ctx, `JOIN note_shares s ON s.note_id = n.id WHERE s.user_id = ?`, userID, opts)
}

func (db *DB) listNotes(ctx context.Context, filter, arg string, opts ListOptions) ([]*models.Note, error) {
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + noteColumns + ` FROM notes n ` + filter +
		` ORDER BY n.updated_at ` + dir + `, n.id ` + dir + ` LIMIT ? OFFSET ?`
	rows, err := db.conn.QueryContext(ctx, query, arg, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()

	out := []*models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachShares(ctx, db.conn, out); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner, extra ...any) (*models.Note, error) {
	var (
		n                models.Note
		public           int
		created, updated int64
	)
	dest := append([]any{&n.ID, &n.OwnerID, &n.Title, &n.Content, &public, &n.Checksum, &created, &updated}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	n.IsPublic = public != 0
	n.CreatedAt = fromNanos(created)
	n.UpdatedAt = fromNanos(updated)
	n.SharedWith = []string{}
	return &n, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
