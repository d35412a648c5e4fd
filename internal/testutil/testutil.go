// Package testutil provides shared test helpers for databases and users.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t testing.TB) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notehub-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// User registers email in db and returns it as a principal.
func User(t testing.TB, db store.Users, email string) models.Principal {
	t.Helper()
	u, err := db.UpsertUser(context.Background(), email)
	if err != nil {
		t.Fatalf("UpsertUser(%s): %v", email, err)
	}
	return models.Principal{ID: u.ID, Email: u.Email}
}
