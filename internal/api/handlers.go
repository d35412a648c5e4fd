package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/auth"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/noteservice"
	"github.com/starford/notehub/internal/store"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func principal(r *http.Request) models.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apperr.ValidationError{Fields: map[string]string{"body": "invalid JSON body"}}
	}
	return nil
}

func writeNote(w http.ResponseWriter, status int, n *models.Note) {
	w.Header().Set("ETag", `"`+n.Checksum+`"`)
	writeJSON(w, status, n)
}

func ifMatch(r *http.Request) string {
	// Strip surrounding quotes if present (standard ETag format).
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

func listOptions(r *http.Request) (store.ListOptions, error) {
	q := r.URL.Query()
	var opts store.ListOptions
	fields := map[string]string{}

	switch q.Get("order") {
	case "", "asc":
	case "desc":
		opts.Desc = true
	default:
		fields["order"] = "must be asc or desc"
	}
	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields[name] = "must be a non-negative integer"
			continue
		}
		*dst = n
	}
	if len(fields) > 0 {
		return opts, &apperr.ValidationError{Fields: fields}
	}
	return opts, nil
}

func nonNil(notes []*models.Note) []*models.Note {
	if notes == nil {
		return []*models.Note{}
	}
	return notes
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List the caller's own notes
//	@Tags			notes
//	@Produce		json
//	@Param			order	query		string	false	"Sort by updated_at"	Enums(asc, desc)
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	NoteListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	notes, err := h.svc.ListOwned(r.Context(), principal(r), opts)
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: nonNil(notes)})
}

// ListShared handles GET /api/notes/shared.
//
//	@Summary		List notes other users shared with the caller
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes/shared [get]
func (h *Handler) ListShared(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, "list shared notes", err)
		return
	}
	notes, err := h.svc.ListShared(r.Context(), principal(r), opts)
	if err != nil {
		writeError(w, r, "list shared notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: nonNil(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	Note
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.GetNote(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new private note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "create note", err)
		return
	}
	n, err := h.svc.CreateNote(r.Context(), principal(r), req.Title, req.Content)
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeNote(w, http.StatusCreated, n)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note's title and content
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string				true	"Note id"
//	@Param			If-Match	header	string				false	"Checksum for optimistic concurrency"
//	@Param			body		body	UpdateNoteRequest	true	"Updated note"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "update note", err)
		return
	}
	n, err := h.svc.UpdateNote(r.Context(), principal(r), chi.URLParam(r, "id"), req.Title, req.Content, ifMatch(r))
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// PatchNote handles PATCH /api/notes/{id}.
//
//	@Summary		Partially update a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path	string				true	"Note id"
//	@Param			If-Match	header	string				false	"Checksum for optimistic concurrency"
//	@Param			body		body	PatchNoteRequest	true	"Fields to change"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) PatchNote(w http.ResponseWriter, r *http.Request) {
	var req PatchNoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, "patch note", err)
		return
	}
	patch := noteservice.NotePatch{Title: req.Title, Content: req.Content}
	n, err := h.svc.PatchNote(r.Context(), principal(r), chi.URLParam(r, "id"), patch, ifMatch(r))
	if err != nil {
		writeError(w, r, "patch note", err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204		"Note deleted"
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), principal(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShareNote handles POST /api/notes/{id}/share.
//
//	@Summary		Grant another user read access
//	@Tags			sharing
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note id"
//	@Param			body	body		ShareRequest	true	"User to share with"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/share [post]
func (h *Handler) ShareNote(w http.ResponseWriter, r *http.Request) {
	h.share(w, r, "share note", h.svc.ShareNote)
}

// UnshareNote handles POST /api/notes/{id}/unshare.
//
//	@Summary		Revoke another user's read access
//	@Tags			sharing
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note id"
//	@Param			body	body		ShareRequest	true	"User to unshare from"
//	@Success		200		{object}	Note
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/unshare [post]
func (h *Handler) UnshareNote(w http.ResponseWriter, r *http.Request) {
	h.share(w, r, "unshare note", h.svc.UnshareNote)
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, models.Principal, string, string) (*models.Note, error),
) {
	var req ShareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	n, err := fn(r.Context(), principal(r), chi.URLParam(r, "id"), req.Email)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// MakePublic handles POST /api/notes/{id}/make-public.
//
//	@Summary		Make a note readable by everyone
//	@Tags			sharing
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	Note
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/make-public [post]
func (h *Handler) MakePublic(w http.ResponseWriter, r *http.Request) {
	h.visibility(w, r, true)
}

// MakePrivate handles POST /api/notes/{id}/make-private.
//
//	@Summary		Make a note private again
//	@Tags			sharing
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	Note
//	@Failure		403	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/make-private [post]
func (h *Handler) MakePrivate(w http.ResponseWriter, r *http.Request) {
	h.visibility(w, r, false)
}

func (h *Handler) visibility(w http.ResponseWriter, r *http.Request, public bool) {
	n, err := h.svc.SetVisibility(r.Context(), principal(r), chi.URLParam(r, "id"), public)
	if err != nil {
		writeError(w, r, "set visibility", err)
		return
	}
	writeNote(w, http.StatusOK, n)
}

// Search handles GET /api/search.
//
//	@Summary		Ranked full-text search
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var limit int
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "search", &apperr.ValidationError{Fields: map[string]string{"limit": "must be a non-negative integer"}})
			return
		}
		limit = n
	}
	hits, err := h.svc.Search(r.Context(), principal(r), q.Get("q"), limit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	results := make([]SearchResult, len(hits))
	for i, hit := range hits {
		results[i] = SearchResult{Score: hit.Score, Note: hit.Note}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
