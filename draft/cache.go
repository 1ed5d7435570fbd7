// Package draft stages AI-generated cards on the client until they are saved
// into a collection. The draft survives restarts through a kv.Storage and is
// written through on every change.
package draft

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/andrewpaige1/flashcardhero-api/kv"
	"github.com/andrewpaige1/flashcardhero-api/models"
)

// StateKey is the single storage slot holding the draft.
const StateKey = "flashcardhero_generated_state"

// DefaultCount is the card count a fresh draft asks for.
const DefaultCount = 5

// State is the persisted draft. Added holds the Key of every card the user
// has already put into a collection.
type State struct {
	Content    string          `json:"content"`
	Name       string          `json:"name"`
	Count      int             `json:"count"`
	Flashcards []models.Card   `json:"flashcards"`
	Added      map[string]bool `json:"addedFlashcards"`
}

// Default returns the empty draft.
func Default() State {
	return State{
		Count:      DefaultCount,
		Flashcards: []models.Card{},
		Added:      map[string]bool{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	dup := s
	dup.Flashcards = models.CloneCards(s.Flashcards)
	if dup.Flashcards == nil {
		dup.Flashcards = []models.Card{}
	}
	dup.Added = make(map[string]bool, len(s.Added))
	for k, v := range s.Added {
		dup.Added[k] = v
	}
	return dup
}

// Cache loads and stores the draft under StateKey.
type Cache struct {
	storage kv.Storage
}

// NewCache returns a Cache over storage.
func NewCache(storage kv.Storage) *Cache {
	return &Cache{storage: storage}
}

// Load returns the saved draft, or the default one when nothing usable is
// stored. A corrupt entry is logged and treated as absent.
func (c *Cache) Load() (State, error) {
	raw, ok, err := c.storage.Get(StateKey)
	if err != nil {
		return Default(), fmt.Errorf("load draft: %w", err)
	}
	if !ok {
		return Default(), nil
	}

	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		log.Printf("Cache.Load: discarding unreadable draft: %v", err)
		return Default(), nil
	}
	return s.Clone(), nil
}

// Save replaces the stored draft with s.
func (c *Cache) Save(s State) error {
	body, err := json.Marshal(s.Clone())
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := c.storage.Set(StateKey, string(body)); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Clear removes the stored draft entirely.
func (c *Cache) Clear() error {
	if err := c.storage.Remove(StateKey); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
