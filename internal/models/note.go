// Package models defines the domain types for notehub.
package models

import "time"

// MaxTitleLength is the maximum number of code points in a note title.
const MaxTitleLength = 255

// Note is a text note owned by a single user.
type Note struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	IsPublic   bool      `json:"is_public"`
	SharedWith []string  `json:"shared_with"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsSharedWith reports whether userID is in the note's share set.
func (n *Note) IsSharedWith(userID string) bool {
	for _, id := range n.SharedWith {
		if id == userID {
			return true
		}
	}
	return false
}

// SearchHit is a note matched by a search query together with its relevance score.
type SearchHit struct {
	Note  *Note   `json:"note"`
	Score float64 `json:"score"`
}
