package store

import (
	"context"

	"github.com/starford/notehub/internal/models"
)

// Scope selects which notes a search may return.
type Scope string

const (
	// ScopeOwner limits search to notes the principal owns.
	ScopeOwner Scope = "owner"
	// ScopeReadable searches every note the principal may read.
	ScopeReadable Scope = "readable"
)

// ListOptions controls ordering and paging of note listings.
// Listings are ordered by updated_at ascending unless Desc is set.
// A zero Limit means no limit.
type ListOptions struct {
	Desc   bool
	Limit  int
	Offset int
}

// SearchQuery is an analysed search request.
type SearchQuery struct {
	Terms       []string
	PrincipalID string
	Scope       Scope
	Limit       int
}

// Notes is the note persistence contract consumed by the note service.
type Notes interface {
	CreateNote(ctx context.Context, ownerID, title, content string) (*models.Note, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	UpdateNote(ctx context.Context, id, title, content, ifMatch string) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	ListOwned(ctx context.Context, ownerID string, opts ListOptions) ([]*models.Note, error)
	ListShared(ctx context.Context, userID string, opts ListOptions) ([]*models.Note, error)
	AddShare(ctx context.Context, noteID, userID string) (bool, error)
	RemoveShare(ctx context.Context, noteID, userID string) (bool, error)
	SetVisibility(ctx context.Context, noteID string, public bool) (bool, error)
	Search(ctx context.Context, q SearchQuery) ([]models.SearchHit, error)
}

// Users is the mirrored user directory.
type Users interface {
	UpsertUser(ctx context.Context, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id string) (*models.User, error)
	AllUsers(ctx context.Context) (map[string]string, error)
}

// Verify *DB satisfies both interfaces at compile time.
var (
	_ Notes = (*DB)(nil)
	_ Users = (*DB)(nil)
)
