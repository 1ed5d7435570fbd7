// Package validation gates every collection write. The store performs no
// checks of its own, so callers must run Validate before create or update.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

// Kind identifies which rule a payload violated.
type Kind int

const (
	EmptyName Kind = iota + 1
	EmptyCardList
	IncompleteCard
)

func (k Kind) String() string {
	switch k {
	case EmptyName:
		return "EmptyName"
	case EmptyCardList:
		return "EmptyCardList"
	case IncompleteCard:
		return "IncompleteCard"
	default:
		return "Unknown"
	}
}

// ValidationError reports the first rule a payload violated. Index is the
// 1-based position of the offending card for IncompleteCard and zero otherwise.
type ValidationError struct {
	Kind  Kind
	Index int
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case EmptyName:
		return "Collection name is required"
	case EmptyCardList:
		return "At least one flashcard is required"
	case IncompleteCard:
		return fmt.Sprintf("Both sides of flashcard %d are required", e.Index)
	default:
		return "invalid collection"
	}
}

// Is matches another *ValidationError of the same kind and index, so callers
// can write errors.Is(err, &ValidationError{Kind: EmptyName}).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Index == 0 || t.Index == e.Index)
}

// Validate checks the fields present in p, failing fast on the first
// violation. Absent fields are not checked.
func Validate(p models.CollectionPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return &ValidationError{Kind: EmptyName}
	}
	if p.Cards == nil {
		return nil
	}
	cards := *p.Cards
	if len(cards) == 0 {
		return &ValidationError{Kind: EmptyCardList}
	}
	for i, card := range cards {
		if !card.Complete() {
			return &ValidationError{Kind: IncompleteCard, Index: i + 1}
		}
	}
	return nil
}

// ValidateInput validates a full create payload.
func ValidateInput(in models.CollectionInput) error {
	return Validate(in.Patch())
}

// AsValidationError extracts a *ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
