package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
)

const (
	owner    = "owner-id"
	reader   = "reader-id"
	stranger = "stranger-id"
)

func note(public bool, shared ...string) *models.Note {
	return &models.Note{ID: "n1", OwnerID: owner, IsPublic: public, SharedWith: shared}
}

func TestCanRead_TruthTable(t *testing.T) {
	cases := []struct {
		name      string
		principal string
		note      *models.Note
		want      bool
	}{
		{"owner private", owner, note(false), true},
		{"public note", stranger, note(true), true},
		{"shared note", reader, note(false, reader), true},
		{"private not shared", stranger, note(false, reader), false},
		{"owner public", owner, note(true), true},
		{"shared and public", reader, note(true, reader), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanRead(models.Principal{ID: tc.principal}, tc.note)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanWrite_OwnerOnly(t *testing.T) {
	n := note(true, reader)
	assert.True(t, CanWrite(models.Principal{ID: owner}, n))
	assert.False(t, CanWrite(models.Principal{ID: reader}, n), "sharing must not grant write")
	assert.False(t, CanWrite(models.Principal{ID: stranger}, n), "public must not grant write")
}

func TestCheck_ReturnsPermissionDenied(t *testing.T) {
	n := note(false)
	err := CheckRead(models.Principal{ID: stranger}, n)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))
	err = CheckWrite(models.Principal{ID: reader}, note(false, reader))
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))
	assert.NoError(t, CheckRead(models.Principal{ID: reader}, note(false, reader)))
	assert.NoError(t, CheckWrite(models.Principal{ID: owner}, n))
}

func TestEmptyPrincipalDenied(t *testing.T) {
	assert.False(t, CanRead(models.Principal{}, &models.Note{OwnerID: ""}))
	assert.False(t, CanWrite(models.Principal{}, &models.Note{OwnerID: ""}))
	assert.False(t, CanRead(models.Principal{ID: owner}, nil))
}

func TestCanRead_Property(t *testing.T) {
	ids := []string{"u1", "u2", "u3", "u4"}
	rapid.Check(t, func(t *rapid.T) {
		ownerID := rapid.SampledFrom(ids).Draw(t, "owner")
		principal := rapid.SampledFrom(ids).Draw(t, "principal")
		public := rapid.Bool().Draw(t, "public")
		shared := rapid.SliceOfDistinct(rapid.SampledFrom(ids), rapid.ID[string]).Draw(t, "shared")

		n := &models.Note{OwnerID: ownerID, IsPublic: public, SharedWith: shared}
		inShare := false
		for _, id := range shared {
			if id == principal {
				inShare = true
			}
		}
		want := principal == ownerID || public || inShare
		if got := CanRead(models.Principal{ID: principal}, n); got != want {
			t.Fatalf("CanRead = %v, want %v (owner=%s principal=%s public=%v shared=%v)",
				got, want, ownerID, principal, public, shared)
		}
		if got := CanWrite(models.Principal{ID: principal}, n); got != (principal == ownerID) {
			t.Fatalf("CanWrite = %v for owner=%s principal=%s", got, ownerID, principal)
		}
	})
}
