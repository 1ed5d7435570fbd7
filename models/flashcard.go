package models

import "strings"

// Card represents one front/back flashcard. Cards have no identity outside
// the collection that stores them; the storage columns are hidden from JSON.
type Card struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	CollectionID string `gorm:"not null;index;size:32" json:"-"`
	Position     int    `gorm:"not null" json:"-"`

	Front string `gorm:"not null;size:1000" json:"front" validate:"max=1000"`
	Back  string `gorm:"not null;size:2000" json:"back" validate:"max=2000"`
}

// Key is the content-derived identity used for "added" markers: front and
// back joined with a dash. Two cards with the same text share a key.
func (c Card) Key() string {
	return c.Front + "-" + c.Back
}

// Complete reports whether both sides are non-empty after trimming.
func (c Card) Complete() bool {
	return strings.TrimSpace(c.Front) != "" && strings.TrimSpace(c.Back) != ""
}

// Content strips storage fields, leaving only front and back.
func (c Card) Content() Card {
	return Card{Front: c.Front, Back: c.Back}
}

// CloneCards copies a card list, dropping storage fields.
func CloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	dup := make([]Card, len(cards))
	for i, c := range cards {
		dup[i] = c.Content()
	}
	return dup
}

// SameCards reports whether two card lists have identical content in order.
func SameCards(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Front != b[i].Front || a[i].Back != b[i].Back {
			return false
		}
	}
	return true
}
