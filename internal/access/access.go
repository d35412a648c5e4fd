// Package access decides what a principal may do with a note.
//
// Reads are granted to the owner, to anyone when the note is public, and to
// users in the note's share set. Every write (update, delete, share, unshare,
// visibility) is owner-only; sharing never delegates write access.
package access

import (
	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
)

// CanRead reports whether p may read n.
func CanRead(p models.Principal, n *models.Note) bool {
	if n == nil || p.ID == "" {
		return false
	}
	return n.OwnerID == p.ID || n.IsPublic || n.IsSharedWith(p.ID)
}

// CanWrite reports whether p may modify, delete, share or change the visibility of n.
func CanWrite(p models.Principal, n *models.Note) bool {
	if n == nil || p.ID == "" {
		return false
	}
	return n.OwnerID == p.ID
}

// CheckRead returns apperr.ErrPermissionDenied when p may not read n.
func CheckRead(p models.Principal, n *models.Note) error {
	if !CanRead(p, n) {
		return apperr.ErrPermissionDenied
	}
	return nil
}

// CheckWrite returns apperr.ErrPermissionDenied when p may not write n.
func CheckWrite(p models.Principal, n *models.Note) error {
	if !CanWrite(p, n) {
		return apperr.ErrPermissionDenied
	}
	return nil
}
