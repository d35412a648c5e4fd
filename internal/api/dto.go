package api

import "github.com/starford/notehub/internal/models"

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string `json:"title" example:"Test Note" validate:"required"`
	Content string `json:"content" example:"This is a test note." validate:"required"`
}

// UpdateNoteRequest is the request body for replacing a note.
type UpdateNoteRequest struct {
	Title   string `json:"title" example:"Test Note" validate:"required"`
	Content string `json:"content" example:"Updated content." validate:"required"`
}

// PatchNoteRequest is the request body for a partial update. Omitted fields are kept.
type PatchNoteRequest struct {
	Title   *string `json:"title,omitempty" example:"New title"`
	Content *string `json:"content,omitempty" example:"New content"`
}

// ShareRequest names the user to share with or unshare from.
type ShareRequest struct {
	Email string `json:"email" example:"bob@example.com" validate:"required"`
}

// Note is the note response type (aliased from the domain layer).
type Note = models.Note

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []*Note `json:"notes" validate:"required"`
}

// SearchResult is a single ranked search hit.
type SearchResult struct {
	Score float64 `json:"score" example:"3" validate:"required"`
	Note  *Note   `json:"note" validate:"required"`
}

// SearchResponse wraps search results in rank order.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
