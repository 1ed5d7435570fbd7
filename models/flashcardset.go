package models

import (
	"time"
)

// Visibility controls whether a collection appears in the public catalogue.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Collection represents a named, owned set of cards.
type Collection struct {
	ID          string     `gorm:"primaryKey;size:32" json:"id"`
	Name        string     `gorm:"not null;size:100" json:"name"`
	Description string     `gorm:"size:1000" json:"description"`
	Visibility  Visibility `gorm:"not null;size:16;index" json:"visibility"`
	OwnerID     string     `gorm:"not null;size:128;index" json:"ownerId"`

	Cards []Card `gorm:"foreignKey:CollectionID" json:"cards"`

	CreatedAt time.Time `gorm:"autoCreateTime:false;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

// IsPublic reports whether the collection is visible in the public catalogue.
func (c Collection) IsPublic() bool {
	return c.Visibility == VisibilityPublic
}

// Clone returns a deep copy so snapshots handed to consumers never alias
// each other's card slices.
func (c Collection) Clone() Collection {
	dup := c
	if c.Cards != nil {
		dup.Cards = make([]Card, len(c.Cards))
		copy(dup.Cards, c.Cards)
	}
	return dup
}

// CloneCollections deep-copies a snapshot.
func CloneCollections(list []Collection) []Collection {
	if list == nil {
		return nil
	}
	dup := make([]Collection, len(list))
	for i := range list {
		dup[i] = list[i].Clone()
	}
	return dup
}

// CollectionInput is the payload for creating a collection.
type CollectionInput struct {
	Name        string     `json:"name" validate:"max=100"`
	Description string     `json:"description" validate:"max=1000"`
	Visibility  Visibility `json:"visibility" validate:"omitempty,oneof=public private"`
	Cards       []Card     `json:"cards" validate:"max=500,dive"`
}

// Patch converts a create payload into a patch with every field present.
func (in CollectionInput) Patch() CollectionPatch {
	cards := in.Cards
	if cards == nil {
		cards = []Card{}
	}
	visibility := in.Visibility
	return CollectionPatch{
		Name:        &in.Name,
		Description: &in.Description,
		Visibility:  &visibility,
		Cards:       &cards,
	}
}

// CollectionPatch is a partial update. Nil fields are left untouched.
type CollectionPatch struct {
	Name        *string     `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=1000"`
	Visibility  *Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
	Cards       *[]Card     `json:"cards,omitempty" validate:"omitempty,max=500,dive"`
}

// Empty reports whether the patch changes nothing.
func (p CollectionPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Visibility == nil && p.Cards == nil
}
