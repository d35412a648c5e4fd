package noteservice_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/metrics"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/noteservice"
	"github.com/starford/notehub/internal/store"
	"github.com/starford/notehub/internal/testutil"
)

type event struct {
	kind     string
	noteID   string
	audience []string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) PublishNoteEvent(kind, noteID string, audience []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind, noteID, audience})
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

type fixture struct {
	svc   *noteservice.Service
	db    *store.DB
	rec   *recorder
	alice models.Principal
	bob   models.Principal
	carol models.Principal
}

func setup(t *testing.T, opts ...noteservice.Option) *fixture {
	t.Helper()
	db := testutil.TestDB(t)
	rec := &recorder{}
	opts = append([]noteservice.Option{noteservice.WithNotifier(rec), noteservice.WithMetrics(metrics.New())}, opts...)
	return &fixture{
		svc:   noteservice.New(db, db, opts...),
		db:    db,
		rec:   rec,
		alice: testutil.User(t, db, "alice@example.com"),
		bob:   testutil.User(t, db, "bob@example.com"),
		carol: testutil.User(t, db, "carol@example.com"),
	}
}

func hitIDs(hits []models.SearchHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Note.ID
	}
	return ids
}

func TestShareLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	n, err := f.svc.CreateNote(ctx, f.alice, "Test Note", "This is a test note.")
	require.NoError(t, err)

	_, err = f.svc.GetNote(ctx, f.bob, n.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	_, err = f.svc.ShareNote(ctx, f.alice, n.ID, "bob@example.com")
	require.NoError(t, err)

	got, err := f.svc.GetNote(ctx, f.bob, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Note", got.Title)

	_, err = f.svc.UnshareNote(ctx, f.alice, n.ID, "bob@example.com")
	require.NoError(t, err)

	_, err = f.svc.GetNote(ctx, f.bob, n.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)
}

func TestGetNote_NotFoundBeforePermission(t *testing.T) {
	f := setup(t)
	_, err := f.svc.GetNote(context.Background(), f.bob, "no-such-note")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSharedUserCannotWrite(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n, err := f.svc.CreateNote(ctx, f.alice, "Plan", "draft")
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, n.ID, "bob@example.com")
	require.NoError(t, err)

	_, err = f.svc.UpdateNote(ctx, f.bob, n.ID, "Mine", "now", "")
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	title := "x"
	_, err = f.svc.PatchNote(ctx, f.bob, n.ID, noteservice.NotePatch{Title: &title}, "")
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	_, err = f.svc.ShareNote(ctx, f.bob, n.ID, "carol@example.com")
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	_, err = f.svc.SetVisibility(ctx, f.bob, n.ID, true)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	assert.ErrorIs(t, f.svc.DeleteNote(ctx, f.bob, n.ID), apperr.ErrPermissionDenied)

	got, err := f.svc.GetNote(ctx, f.alice, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan", got.Title)
}

func TestVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n, err := f.svc.CreateNote(ctx, f.alice, "Announcement", "hello all")
	require.NoError(t, err)

	pub, err := f.svc.SetVisibility(ctx, f.alice, n.ID, true)
	require.NoError(t, err)
	assert.True(t, pub.IsPublic)
	assert.True(t, pub.UpdatedAt.After(n.UpdatedAt))

	_, err = f.svc.GetNote(ctx, f.carol, n.ID)
	require.NoError(t, err)

	again, err := f.svc.SetVisibility(ctx, f.alice, n.ID, true)
	require.NoError(t, err)
	assert.Equal(t, pub.UpdatedAt, again.UpdatedAt)

	_, err = f.svc.SetVisibility(ctx, f.alice, n.ID, false)
	require.NoError(t, err)
	_, err = f.svc.GetNote(ctx, f.carol, n.ID)
	assert.ErrorIs(t, err, apperr.ErrPermissionDenied)

	assert.Equal(t, []string{
		noteservice.EventCreated,
		noteservice.EventVisibility,
		noteservice.EventVisibility,
	}, f.rec.kinds())
}

func TestShareNote_EdgeCases(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n, err := f.svc.CreateNote(ctx, f.alice, "Note", "body")
	require.NoError(t, err)

	_, err = f.svc.ShareNote(ctx, f.alice, n.ID, "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.ShareNote(ctx, f.alice, n.ID, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	self, err := f.svc.ShareNote(ctx, f.alice, n.ID, "Alice@Example.com")
	require.NoError(t, err)
	assert.Empty(t, self.SharedWith)
	assert.Equal(t, n.UpdatedAt, self.UpdatedAt)

	first, err := f.svc.ShareNote(ctx, f.alice, n.ID, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{f.bob.ID}, first.SharedWith)
	assert.True(t, first.UpdatedAt.After(n.UpdatedAt))

	second, err := f.svc.ShareNote(ctx, f.alice, n.ID, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.SharedWith, second.SharedWith)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)

	_, err = f.svc.UnshareNote(ctx, f.alice, n.ID, "carol@example.com")
	require.NoError(t, err)

	_, err = f.svc.ShareNote(ctx, f.alice, "missing", "bob@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, []string{noteservice.EventCreated, noteservice.EventShared}, f.rec.kinds())
}

func TestUpdateNote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n, err := f.svc.CreateNote(ctx, f.alice, "Alpha", "first")
	require.NoError(t, err)

	_, err = f.svc.UpdateNote(ctx, f.alice, n.ID, "Beta", "second", "stale")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.svc.UpdateNote(ctx, f.alice, n.ID, "", "second", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	up, err := f.svc.UpdateNote(ctx, f.alice, n.ID, "Beta", "second", n.Checksum)
	require.NoError(t, err)
	assert.Equal(t, "Beta", up.Title)
	assert.NotEqual(t, n.Checksum, up.Checksum)

	hits, err := f.svc.Search(ctx, f.alice, "Alpha", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = f.svc.Search(ctx, f.alice, "Beta", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{n.ID}, hitIDs(hits))
}

func TestPatchNote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n, err := f.svc.CreateNote(ctx, f.alice, "Groceries", "milk, eggs")
	require.NoError(t, err)

	content := "milk, eggs, bread"
	got, err := f.svc.PatchNote(ctx, f.alice, n.ID, noteservice.NotePatch{Content: &content}, "")
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Title)
	assert.Equal(t, content, got.Content)

	_, err = f.svc.PatchNote(ctx, f.alice, n.ID, noteservice.NotePatch{}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	blank := "   "
	_, err = f.svc.PatchNote(ctx, f.alice, n.ID, noteservice.NotePatch{Title: &blank}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDeleteNote_RemovesFromSharedView(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	n, err := f.svc.CreateNote(ctx, f.alice, "Shared", "content")
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, n.ID, "bob@example.com")
	require.NoError(t, err)

	shared, err := f.svc.ListShared(ctx, f.bob, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, shared, 1)

	require.NoError(t, f.svc.DeleteNote(ctx, f.alice, n.ID))

	shared, err = f.svc.ListShared(ctx, f.bob, store.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, shared)

	_, err = f.svc.GetNote(ctx, f.alice, n.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteNote(ctx, f.alice, n.ID), apperr.ErrNotFound)

	f.rec.mu.Lock()
	last := f.rec.events[len(f.rec.events)-1]
	f.rec.mu.Unlock()
	assert.Equal(t, noteservice.EventDeleted, last.kind)
	assert.ElementsMatch(t, []string{f.alice.ID, f.bob.ID}, last.audience)
}

func TestListOwned_OnlyOwnNotes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.CreateNote(ctx, f.alice, "A1", "x")
	require.NoError(t, err)
	_, err = f.svc.CreateNote(ctx, f.bob, "B1", "x")
	require.NoError(t, err)

	notes, err := f.svc.ListOwned(ctx, f.alice, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "A1", notes[0].Title)
}

func TestSearch_InvalidQuery(t *testing.T) {
	f := setup(t)
	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := f.svc.Search(context.Background(), f.alice, q, 0)
		assert.ErrorIs(t, err, apperr.ErrInvalidQuery, "query %q", q)
	}
}

func TestSearch_QueryWithoutTermsIsEmpty(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CreateNote(context.Background(), f.alice, "The art of C", "a note about 7 things")
	require.NoError(t, err)

	for _, q := range []string{"the", "of the", "a", "7", "C", "!!!"} {
		hits, err := f.svc.Search(context.Background(), f.alice, q, 0)
		require.NoError(t, err, "query %q", q)
		assert.NotNil(t, hits, "query %q", q)
		assert.Empty(t, hits, "query %q", q)
	}
}

func TestSearch_DefaultScopeIsOwner(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	own, err := f.svc.CreateNote(ctx, f.bob, "Quarterly report", "numbers")
	require.NoError(t, err)
	shared, err := f.svc.CreateNote(ctx, f.alice, "Report draft", "text")
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, shared.ID, "bob@example.com")
	require.NoError(t, err)

	hits, err := f.svc.Search(ctx, f.bob, "report", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{own.ID}, hitIDs(hits))
}

func TestSearch_ReadableScope(t *testing.T) {
	f := setup(t, noteservice.WithSearchScope(store.ScopeReadable))
	ctx := context.Background()
	own, err := f.svc.CreateNote(ctx, f.bob, "Report", "mine")
	require.NoError(t, err)
	shared, err := f.svc.CreateNote(ctx, f.alice, "Report shared", "text")
	require.NoError(t, err)
	_, err = f.svc.ShareNote(ctx, f.alice, shared.ID, "bob@example.com")
	require.NoError(t, err)
	public, err := f.svc.CreateNote(ctx, f.carol, "Public report", "text")
	require.NoError(t, err)
	_, err = f.svc.SetVisibility(ctx, f.carol, public.ID, true)
	require.NoError(t, err)
	_, err = f.svc.CreateNote(ctx, f.carol, "Private report", "text")
	require.NoError(t, err)

	hits, err := f.svc.Search(ctx, f.bob, "report", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{own.ID, shared.ID, public.ID}, hitIDs(hits))
}

func TestSearch_DefaultLimit(t *testing.T) {
	f := setup(t, noteservice.WithDefaultLimit(2))
	ctx := context.Background()
	for _, title := range []string{"memo one", "memo two", "memo three"} {
		_, err := f.svc.CreateNote(ctx, f.alice, title, "body")
		require.NoError(t, err)
	}

	hits, err := f.svc.Search(ctx, f.alice, "memo", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = f.svc.Search(ctx, f.alice, "memo", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestUnauthenticatedPrincipal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var nobody models.Principal

	_, err := f.svc.CreateNote(ctx, nobody, "t", "c")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = f.svc.ListOwned(ctx, nobody, store.ListOptions{})
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	_, err = f.svc.Search(ctx, nobody, "anything", 0)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
