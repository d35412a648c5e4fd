// Package directory mirrors an operator-maintained users file into the store.
//
// The file lists the identities allowed to use the service:
//
//	users:
//	  - email: alice@example.com
//	  - email: bob@example.com
//
// Ids are assigned by the store the first time an email is seen and stay
// stable across syncs. Emails removed from the file are removed from the
// store; share rows that still name them are ignored by readers.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/notehub/internal/store"
)

// File is the on-disk users file.
type File struct {
	Users []Entry `yaml:"users"`
}

// Entry is one user in the users file.
type Entry struct {
	Email string `yaml:"email"`
}

// Load reads and parses the users file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("directory: parse %s: %w", path, err)
	}
	return &f, nil
}

// Result summarises one sync pass.
type Result struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Sync brings the store's users in line with the file at path:
//   - new emails are created
//   - emails no longer listed are deleted
func Sync(ctx context.Context, users store.Users, path string, logger *slog.Logger) (Result, error) {
	var res Result

	f, err := Load(path)
	if err != nil {
		return res, err
	}

	known, err := users.AllUsers(ctx)
	if err != nil {
		return res, err
	}

	listed := make(map[string]struct{}, len(f.Users))
	for _, e := range f.Users {
		email := store.NormalizeEmail(e.Email)
		if email == "" {
			logger.Warn("directory: skipping entry without email")
			continue
		}
		listed[email] = struct{}{}

		if _, ok := known[email]; ok {
			continue
		}
		if _, err := users.UpsertUser(ctx, email); err != nil {
			logger.Warn("directory: add failed", slog.String("email", email), slog.String("error", err.Error()))
			continue
		}
		res.Added++
		logger.Debug("directory: added", slog.String("email", email))
	}

	for email, id := range known {
		if _, ok := listed[email]; ok {
			continue
		}
		if err := users.DeleteUser(ctx, id); err != nil {
			logger.Warn("directory: remove failed", slog.String("email", email), slog.String("error", err.Error()))
			continue
		}
		res.Removed++
		logger.Debug("directory: removed", slog.String("email", email))
	}

	return res, nil
}
