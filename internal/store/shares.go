package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
)

// AddShare adds userID to the note's share set. It reports whether the set
// changed; sharing with an existing member is a successful no-op.
func (db *DB) AddShare(ctx context.Context, noteID, userID string) (bool, error) {
	return db.mutateNote(ctx, noteID, func(tx *sql.Tx, ts int64) (bool, error) {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_shares (note_id, user_id, created_at) VALUES (?, ?, ?)`,
			noteID, userID, ts)
		if err != nil {
			return false, fmt.Errorf("store: add share: %w", err)
		}
		n, _ := res.RowsAffected()
		return n > 0, nil
	})
}

// RemoveShare removes userID from the note's share set. Removing a user who
// is not in the set is a successful no-op.
func (db *DB) RemoveShare(ctx context.Context, noteID, userID string) (bool, error) {
	return db.mutateNote(ctx, noteID, func(tx *sql.Tx, _ int64) (bool, error) {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM note_shares WHERE note_id = ? AND user_id = ?`, noteID, userID)
		if err != nil {
			return false, fmt.Errorf("store: remove share: %w", err)
		}
		n, _ := res.RowsAffected()
		return n > 0, nil
	})
}

// SetVisibility makes a note public or private. Setting the current state is a no-op.
func (db *DB) SetVisibility(ctx context.Context, noteID string, public bool) (bool, error) {
	flag := 0
	if public {
		flag = 1
	}
	return db.mutateNote(ctx, noteID, func(tx *sql.Tx, _ int64) (bool, error) {
		res, err := tx.ExecContext(ctx,
			`UPDATE notes SET is_public = ? WHERE id = ? AND is_public <> ?`, flag, noteID, flag)
		if err != nil {
			return false, fmt.Errorf("store: set visibility: %w", err)
		}
		n, _ := res.RowsAffected()
		return n > 0, nil
	})
}

// mutateNote runs fn in a transaction against an existing note and bumps
// updated_at when fn reports a change.
func (db *DB) mutateNote(ctx context.Context, noteID string, fn func(tx *sql.Tx, ts int64) (bool, error)) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var prev int64
	err = tx.QueryRowContext(ctx, `SELECT updated_at FROM notes WHERE id = ?`, noteID).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return false, apperr.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("store: read note: %w", err)
	}

	ts := db.nextTimestamp(prev)
	changed, err := fn(tx, ts)
	if err != nil {
		return false, err
	}
	if changed {
		if _, err := tx.ExecContext(ctx, `UPDATE notes SET updated_at = ? WHERE id = ?`, ts, noteID); err != nil {
			return false, fmt.Errorf("store: touch note: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: commit: %w", err)
	}
	return changed, nil
}

// attachShares fills SharedWith for each note. Share rows whose user no
// longer exists in the directory are skipped.
func attachShares(ctx context.Context, q querier, notes []*models.Note) error {
	if len(notes) == 0 {
		return nil
	}
	byID := make(map[string]*models.Note, len(notes))
	args := make([]any, 0, len(notes))
	for _, n := range notes {
		if _, dup := byID[n.ID]; dup {
			continue
		}
		byID[n.ID] = n
		args = append(args, n.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT s.note_id, s.user_id
		FROM note_shares s
		JOIN users u ON u.id = s.user_id
		WHERE s.note_id IN (`+placeholders(len(args))+`)
		ORDER BY s.note_id, s.user_id
	`, args...)
	if err != nil {
		return fmt.Errorf("store: load shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID, userID string
		if err := rows.Scan(&noteID, &userID); err != nil {
			return fmt.Errorf("store: scan share: %w", err)
		}
		if n, ok := byID[noteID]; ok {
			n.SharedWith = append(n.SharedWith, userID)
		}
	}
	return rows.Err()
}
