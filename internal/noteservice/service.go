// Package noteservice implements the access-gated note operations shared by the
// HTTP API and the MCP server. Every call takes the acting principal explicitly.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/notehub/internal/access"
	"github.com/starford/notehub/internal/analysis"
	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/metrics"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/store"
)

// Note event kinds.
const (
	EventCreated    = "note.created"
	EventUpdated    = "note.updated"
	EventDeleted    = "note.deleted"
	EventShared     = "note.shared"
	EventUnshared   = "note.unshared"
	EventVisibility = "note.visibility"
)

// Notifier receives a notification after each effective mutation.
// audience lists the user ids that should see the event.
type Notifier interface {
	PublishNoteEvent(kind, noteID string, audience []string)
}

// NotePatch carries a partial update. Nil fields keep their current value.
type NotePatch struct {
	Title   *string
	Content *string
}

// Option configures a Service.
type Option func(*Service)

// WithSearchScope sets which notes Search considers.
func WithSearchScope(scope store.Scope) Option {
	return func(s *Service) { s.scope = scope }
}

// WithDefaultLimit caps searches that do not request a limit. Zero means unlimited.
func WithDefaultLimit(n int) Option {
	return func(s *Service) { s.defaultLimit = n }
}

// WithNotifier registers a change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records operation counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service coordinates access control, storage and search.
type Service struct {
	notes store.Notes
	users store.Users

	scope        store.Scope
	defaultLimit int
	notifier     Notifier
	metrics      *metrics.Metrics
}

// New creates a note service. Search defaults to owner scope.
func New(notes store.Notes, users store.Users, opts ...Option) *Service {
	s := &Service{notes: notes, users: users, scope: store.ScopeOwner}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListOwned returns the principal's own notes.
func (s *Service) ListOwned(ctx context.Context, p models.Principal, opts store.ListOptions) (_ []*models.Note, err error) {
	defer s.observe("list", &err)
	if err := authenticated(p); err != nil {
		return nil, err
	}
	return s.notes.ListOwned(ctx, p.ID, opts)
}

// ListShared returns notes other users have shared with the principal.
func (s *Service) ListShared(ctx context.Context, p models.Principal, opts store.ListOptions) (_ []*models.Note, err error) {
	defer s.observe("list_shared", &err)
	if err := authenticated(p); err != nil {
		return nil, err
	}
	return s.notes.ListShared(ctx, p.ID, opts)
}

// CreateNote stores a new private note owned by the principal.
func (s *Service) CreateNote(ctx context.Context, p models.Principal, title, content string) (_ *models.Note, err error) {
	defer s.observe("create", &err)
	if err := authenticated(p); err != nil {
		return nil, err
	}
	n, err := s.notes.CreateNote(ctx, p.ID, title, content)
	if err != nil {
		return nil, err
	}
	s.notify(EventCreated, n.ID, []string{p.ID})
	return n, nil
}

// GetNote returns a note the principal may read.
func (s *Service) GetNote(ctx context.Context, p models.Principal, id string) (_ *models.Note, err error) {
	defer s.observe("get", &err)
	return s.load(ctx, p, id, access.CheckRead)
}

// UpdateNote replaces title and content. A non-empty ifMatch must equal the
// note's current checksum.
func (s *Service) UpdateNote(ctx context.Context, p models.Principal, id, title, content, ifMatch string) (_ *models.Note, err error) {
	defer s.observe("update", &err)
	if _, err := s.load(ctx, p, id, access.CheckWrite); err != nil {
		return nil, err
	}
	return s.update(ctx, id, title, content, ifMatch)
}

// PatchNote updates only the fields present in patch.
func (s *Service) PatchNote(ctx context.Context, p models.Principal, id string, patch NotePatch, ifMatch string) (_ *models.Note, err error) {
	defer s.observe("patch", &err)
	n, err := s.load(ctx, p, id, access.CheckWrite)
	if err != nil {
		return nil, err
	}
	if patch.Title == nil && patch.Content == nil {
		return nil, &apperr.ValidationError{Fields: map[string]string{"input": "no fields to update"}}
	}
	title, content := n.Title, n.Content
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Content != nil {
		content = *patch.Content
	}
	return s.update(ctx, id, title, content, ifMatch)
}

func (s *Service) update(ctx context.Context, id, title, content, ifMatch string) (*models.Note, error) {
	n, err := s.notes.UpdateNote(ctx, id, title, content, ifMatch)
	if err != nil {
		return nil, err
	}
	s.notify(EventUpdated, n.ID, audience(n))
	return n, nil
}

// DeleteNote removes a note together with its shares and index entries.
func (s *Service) DeleteNote(ctx context.Context, p models.Principal, id string) (err error) {
	defer s.observe("delete", &err)
	n, err := s.load(ctx, p, id, access.CheckWrite)
	if err != nil {
		return err
	}
	if err := s.notes.DeleteNote(ctx, id); err != nil {
		return err
	}
	s.notify(EventDeleted, id, audience(n))
	return nil
}

// ShareNote grants read access to the user with the given email. Sharing with
// the owner or re-sharing is a no-op.
func (s *Service) ShareNote(ctx context.Context, p models.Principal, id, email string) (_ *models.Note, err error) {
	defer s.observe("share", &err)
	n, target, err := s.loadShareTarget(ctx, p, id, email)
	if err != nil {
		return nil, err
	}
	if target.ID == n.OwnerID {
		return n, nil
	}
	changed, err := s.notes.AddShare(ctx, id, target.ID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(EventShared, id, []string{n.OwnerID, target.ID})
	}
	return s.notes.GetNote(ctx, id)
}

// UnshareNote revokes read access granted by ShareNote. Unsharing a user the
// note is not shared with is a no-op.
func (s *Service) UnshareNote(ctx context.Context, p models.Principal, id, email string) (_ *models.Note, err error) {
	defer s.observe("unshare", &err)
	n, target, err := s.loadShareTarget(ctx, p, id, email)
	if err != nil {
		return nil, err
	}
	changed, err := s.notes.RemoveShare(ctx, id, target.ID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(EventUnshared, id, []string{n.OwnerID, target.ID})
	}
	return s.notes.GetNote(ctx, id)
}

// SetVisibility makes a note public or private.
func (s *Service) SetVisibility(ctx context.Context, p models.Principal, id string, public bool) (_ *models.Note, err error) {
	defer s.observe("visibility", &err)
	if _, err := s.load(ctx, p, id, access.CheckWrite); err != nil {
		return nil, err
	}
	changed, err := s.notes.SetVisibility(ctx, id, public)
	if err != nil {
		return nil, err
	}
	n, err := s.notes.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		s.notify(EventVisibility, id, audience(n))
	}
	return n, nil
}

// Search ranks notes matching any term of query. Only a blank query is
// invalid; a query without index terms returns no hits. A limit of zero or
// less falls back to the configured default.
func (s *Service) Search(ctx context.Context, p models.Principal, query string, limit int) (_ []models.SearchHit, err error) {
	defer s.observe("search", &err)
	if err := authenticated(p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", apperr.ErrInvalidQuery)
	}
	terms := analysis.QueryTerms(query)
	if len(terms) == 0 {
		// Stop words and punctuation alone match nothing.
		s.metrics.ObserveSearch(0)
		return []models.SearchHit{}, nil
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	hits, err := s.notes.Search(ctx, store.SearchQuery{
		Terms:       terms,
		PrincipalID: p.ID,
		Scope:       s.scope,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSearch(len(hits))
	return hits, nil
}

// load fetches a note and applies check. A missing note is reported before
// any permission decision.
func (s *Service) load(ctx context.Context, p models.Principal, id string, check func(models.Principal, *models.Note) error) (*models.Note, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	n, err := s.notes.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(p, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) loadShareTarget(ctx context.Context, p models.Principal, id, email string) (*models.Note, *models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil, &apperr.ValidationError{Fields: map[string]string{"email": "cannot be blank"}}
	}
	n, err := s.load(ctx, p, id, access.CheckWrite)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil, fmt.Errorf("user %q: %w", email, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}
	return n, u, nil
}

func (s *Service) notify(kind, noteID string, to []string) {
	if s.notifier != nil {
		s.notifier.PublishNoteEvent(kind, noteID, to)
	}
}

func (s *Service) observe(op string, err *error) {
	s.metrics.ObserveOp(op, *err)
}

func authenticated(p models.Principal) error {
	if p.ID == "" {
		return apperr.ErrUnauthenticated
	}
	return nil
}

func audience(n *models.Note) []string {
	out := make([]string, 0, len(n.SharedWith)+1)
	out = append(out, n.OwnerID)
	return append(out, n.SharedWith...)
}
