package store

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
)

type noteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

var notBlank = validation.By(func(v any) error {
	s, _ := v.(string)
	if s != "" && strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
})

// ValidateNoteInput checks title and content constraints and returns an
// *apperr.ValidationError describing every failing field.
func ValidateNoteInput(title, content string) error {
	in := noteInput{Title: title, Content: content}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, notBlank, validation.RuneLength(1, models.MaxTitleLength)),
		validation.Field(&in.Content, validation.Required, notBlank),
	)
	if err != nil {
		return apperr.NewValidationError(err)
	}
	return nil
}
