package store

import (
	"context"
	"fmt"

	"github.com/starford/notehub/internal/models"
)

// Term weights used by Search. A title occurrence counts twice as much as a
// content occurrence.
const (
	TitleWeight   = 2
	ContentWeight = 1
)

// Search ranks notes against pre-analysed query terms.
//
// A note matches when it contains any of the terms. Its score is the sum over
// matched terms of TitleWeight*title_tf + ContentWeight*content_tf. Results
// are ordered by score descending, then updated_at descending, then id
// ascending. An empty term list yields no results.
func (db *DB) Search(ctx context.Context, q SearchQuery) ([]models.SearchHit, error) {
	hits := []models.SearchHit{}
	if len(q.Terms) == 0 {
		return hits, nil
	}

	args := make([]any, 0, len(q.Terms)+3)
	for _, t := range q.Terms {
		args = append(args, t)
	}

	var scope string
	switch q.Scope {
	case ScopeReadable:
		scope = `(n.owner_id = ? OR n.is_public = 1 OR EXISTS (
			SELECT 1 FROM note_shares s JOIN users u ON u.id = s.user_id
			WHERE s.note_id = n.id AND s.user_id = ?))`
		args = append(args, q.PrincipalID, q.PrincipalID)
	default:
		scope = `n.owner_id = ?`
		args = append(args, q.PrincipalID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s, SUM(%d * t.title_tf + %d * t.content_tf) AS score
		FROM note_terms t
		JOIN notes n ON n.id = t.note_id
		WHERE t.term IN (%s) AND %s
		GROUP BY n.id
		ORDER BY score DESC, n.updated_at DESC, n.id ASC
		LIMIT ?
	`, noteColumns, TitleWeight, ContentWeight, placeholders(len(q.Terms)), scope)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	notes := []*models.Note{}
	for rows.Next() {
		var score float64
		n, err := scanNote(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("store: scan hit: %w", err)
		}
		notes = append(notes, n)
		hits = append(hits, models.SearchHit{Note: n, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachShares(ctx, db.conn, notes); err != nil {
		return nil, err
	}
	return hits, nil
}
