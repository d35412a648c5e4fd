package store

import (
	"context"
	"fmt"

	"github.com/starford/notehub/internal/analysis"
)

// writeTerms replaces the search terms of a note. It must run inside the same
// transaction as the title/content write so readers never see a stale index.
func writeTerms(ctx context.Context, tx querier, noteID, title, content string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_terms WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("store: clear terms: %w", err)
	}
	for term, tf := range analysis.Analyze(title, content) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO note_terms (note_id, term, title_tf, content_tf) VALUES (?, ?, ?, ?)`,
			noteID, term, tf.Title, tf.Content)
		if err != nil {
			return fmt.Errorf("store: insert term: %w", err)
		}
	}
	return nil
}
