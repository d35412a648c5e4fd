package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/notehub/internal/auth"
	"github.com/starford/notehub/internal/models"
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg := <-ch:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return ""
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("u1")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishNoteEvent_OnlyAudience(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	alice := b.Subscribe("alice")
	defer b.Unsubscribe(alice)
	bob := b.Subscribe("bob")
	defer b.Unsubscribe(bob)

	b.PublishNoteEvent("note.shared", "n1", []string{"alice"})
	b.PublishNoteEvent("note.updated", "n2", []string{"alice", "bob"})

	first := receive(t, alice)
	if !strings.Contains(first, "event: note.shared") || !strings.Contains(first, `"id":"n1"`) {
		t.Errorf("unexpected first message %q", first)
	}
	receive(t, alice)

	msg := receive(t, bob)
	if !strings.Contains(msg, "event: note.updated") {
		t.Errorf("bob got %q, want note.updated only", msg)
	}
	select {
	case extra := <-bob:
		t.Errorf("bob received unexpected %q", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishNoteEvent_EmptyAudienceIsDropped(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe("alice")
	defer b.Unsubscribe(ch)

	b.PublishNoteEvent("note.updated", "n1", nil)
	select {
	case msg := <-ch:
		t.Errorf("unexpected message %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_WithoutAudienceReachesNobody(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	alice := b.Subscribe("alice")
	defer b.Unsubscribe(alice)
	bob := b.Subscribe("bob")
	defer b.Unsubscribe(bob)

	b.Publish(Event{Type: "directory.synced", Data: map[string]int{"added": 1}})
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"id": "n1"}, Audience: []string{"bob"}})

	if msg := receive(t, bob); !strings.Contains(msg, "event: note.updated") {
		t.Errorf("bob got %q, want note.updated", msg)
	}
	select {
	case msg := <-alice:
		t.Errorf("alice received %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResponseRecorder.Write(p)
}

func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResponseRecorder.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = auth.WithPrincipal(ctx, models.Principal{ID: "alice", Email: "alice@example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.PublishNoteEvent("note.updated", "n1", []string{"alice"})
	deadline = time.Now().Add(time.Second)
	for !strings.Contains(w.body(), "event: note.updated") {
		if time.Now().After(deadline) {
			t.Fatalf("handler output missing event: %q", w.body())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestSSEHandler_RequiresPrincipal(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	w := httptest.NewRecorder()
	b.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe("alice")
	defer b.Unsubscribe(ch)

	for i := 0; i < 70; i++ {
		b.PublishNoteEvent("note.updated", "n", []string{"alice"})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("alice")
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.PublishNoteEvent("note.updated", "n", []string{"alice"})
}
