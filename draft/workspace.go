package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/andrewpaige1/flashcardhero-api/generation"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
	"github.com/andrewpaige1/flashcardhero-api/validation"
)

// GeneratedDescription is the description of collections created from a draft.
const GeneratedDescription = "Generated from content using AI"

var (
	ErrEmptyContent = errors.New("Please enter some content")
	ErrEmptyName    = errors.New("Please enter a collection name")
	ErrNoCards      = errors.New("Please generate flashcards first")
	ErrInvalidCount = fmt.Errorf("count must be between 1 and %d", generation.MaxCount)
	ErrCardIndex    = errors.New("flashcard index out of range")
)

// Workspace is the in-memory draft of one client session. Every mutation is
// saved before it becomes visible; when the save fails the previous state
// is kept.
type Workspace struct {
	mu    sync.Mutex
	cache *Cache
	state State
}

// Open loads the saved draft into a new Workspace.
func Open(cache *Cache) (*Workspace, error) {
	s, err := cache.Load()
	if err != nil {
		return nil, err
	}
	return &Workspace{cache: cache, state: s}, nil
}

// State returns a copy of the current draft.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// apply runs fn on a copy of the state, saves the result and commits it.
func (w *Workspace) apply(fn func(*State) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.state.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := w.cache.Save(next); err != nil {
		return err
	}
	w.state = next
	return nil
}

func (w *Workspace) SetContent(content string) error {
	return w.apply(func(s *State) error {
		s.Content = content
		return nil
	})
}

func (w *Workspace) SetName(name string) error {
	return w.apply(func(s *State) error {
		s.Name = name
		return nil
	})
}

func (w *Workspace) SetCount(count int) error {
	if count < 1 || count > generation.MaxCount {
		return ErrInvalidCount
	}
	return w.apply(func(s *State) error {
		s.Count = count
		return nil
	})
}

// ApplyGenerated replaces the cards with a fresh generation result and
// forgets every added marker. Content, name and count are kept.
func (w *Workspace) ApplyGenerated(cards []models.Card) error {
	return w.apply(func(s *State) error {
		s.Flashcards = models.CloneCards(cards)
		if s.Flashcards == nil {
			s.Flashcards = []models.Card{}
		}
		s.Added = map[string]bool{}
		return nil
	})
}

// Generate asks gen for cards from the draft's content and applies them.
// On failure the draft is left as it was.
func (w *Workspace) Generate(ctx context.Context, gen generation.Generator) error {
	s := w.State()
	if strings.TrimSpace(s.Content) == "" {
		return ErrEmptyContent
	}
	cards, err := gen.Generate(ctx, s.Content, s.Count)
	if err != nil {
		return err
	}
	return w.ApplyGenerated(cards)
}

// EditCard replaces the card at i. An added marker moves with the card to
// its new key.
func (w *Workspace) EditCard(i int, card models.Card) error {
	return w.apply(func(s *State) error {
		if i < 0 || i >= len(s.Flashcards) {
			return ErrCardIndex
		}
		oldKey := s.Flashcards[i].Key()
		s.Flashcards[i] = card.Content()
		if s.Added[oldKey] {
			delete(s.Added, oldKey)
			s.Added[card.Key()] = true
		}
		return nil
	})
}

// ImproveCard asks gen to rewrite the card at i and applies the result as an edit.
func (w *Workspace) ImproveCard(ctx context.Context, gen generation.Generator, i int) error {
	s := w.State()
	if i < 0 || i >= len(s.Flashcards) {
		return ErrCardIndex
	}
	improved, err := gen.Improve(ctx, s.Flashcards[i])
	if err != nil {
		return err
	}
	return w.EditCard(i, improved)
}

// MarkAdded records cards as added to a collection.
func (w *Workspace) MarkAdded(cards ...models.Card) error {
	return w.apply(func(s *State) error {
		for _, c := range cards {
			s.Added[c.Key()] = true
		}
		return nil
	})
}

// IsAdded reports whether card has been added to a collection.
func (w *Workspace) IsAdded(card models.Card) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Added[card.Key()]
}

// AddedCount returns how many of the draft's cards carry a marker.
func (w *Workspace) AddedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, c := range w.state.Flashcards {
		if w.state.Added[c.Key()] {
			n++
		}
	}
	return n
}

// Clear resets the draft and removes it from storage.
func (w *Workspace) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.cache.Clear(); err != nil {
		return err
	}
	w.state = Default()
	return nil
}

// CreateCollection saves the draft's cards as a new private collection
// owned by ownerID and clears the draft once the store accepts it.
func (w *Workspace) CreateCollection(ctx context.Context, s store.CollectionStore, ownerID string) (string, error) {
	st := w.State()
	name := strings.TrimSpace(st.Name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(st.Flashcards) == 0 {
		return "", ErrNoCards
	}

	in := models.CollectionInput{
		Name:        name,
		Description: GeneratedDescription,
		Visibility:  models.VisibilityPrivate,
		Cards:       st.Flashcards,
	}
	if err := validation.ValidateInput(in); err != nil {
		return "", err
	}
	id, err := s.Create(ctx, ownerID, in)
	if err != nil {
		return "", err
	}
	if err := w.Clear(); err != nil {
		return id, err
	}
	return id, nil
}

// AddCardToCollection appends the card at i to collection id and marks it added.
func (w *Workspace) AddCardToCollection(ctx context.Context, s store.CollectionStore, id string, i int) error {
	st := w.State()
	if i < 0 || i >= len(st.Flashcards) {
		return ErrCardIndex
	}
	card := st.Flashcards[i]
	if err := appendCards(ctx, s, id, []models.Card{card}); err != nil {
		return err
	}
	return w.MarkAdded(card)
}

// AddAllToCollection appends every draft card to collection id. The marker
// set is replaced by exactly the cards just added.
func (w *Workspace) AddAllToCollection(ctx context.Context, s store.CollectionStore, id string) error {
	st := w.State()
	if len(st.Flashcards) == 0 {
		return ErrNoCards
	}
	if err := appendCards(ctx, s, id, st.Flashcards); err != nil {
		return err
	}
	return w.apply(func(next *State) error {
		next.Added = make(map[string]bool, len(st.Flashcards))
		for _, c := range st.Flashcards {
			next.Added[c.Key()] = true
		}
		return nil
	})
}

func appendCards(ctx context.Context, s store.CollectionStore, id string, cards []models.Card) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	merged := append(models.CloneCards(existing.Cards), models.CloneCards(cards)...)
	patch := models.CollectionPatch{Cards: &merged}
	if err := validation.Validate(patch); err != nil {
		return err
	}
	return s.Update(ctx, id, patch)
}
