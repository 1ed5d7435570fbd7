// Package practice runs study sessions over a collection's cards: one card
// at a time, front first, with clamped navigation and shuffling.
package practice

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

// ErrEmptyCollection is returned when a session is started without cards.
var ErrEmptyCollection = errors.New("collection has no flashcards to practice")

// Face is the side of the current card being shown.
type Face int

const (
	Front Face = iota
	Back
)

func (f Face) String() string {
	if f == Back {
		return "back"
	}
	return "front"
}

// Session is the state of one run through a deck. It is not safe for
// concurrent use; Live serializes access for shared sessions.
type Session struct {
	cards []models.Card
	index int
	face  Face
	rng   *rand.Rand

	shuffled bool
}

// Option configures a Session.
type Option func(*Session)

// WithRand sets the source used by Shuffle.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// Start begins a session on a copy of cards, in their given order.
func Start(cards []models.Card, opts ...Option) (*Session, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyCollection
	}
	s := &Session{
		cards: models.CloneCards(cards),
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Flip turns the current card over and returns the side now shown.
func (s *Session) Flip() Face {
	if s.face == Front {
		s.face = Back
	} else {
		s.face = Front
	}
	return s.face
}

// Next moves to the following card, front up. It reports false and does
// nothing on the last card.
func (s *Session) Next() bool {
	if s.index >= len(s.cards)-1 {
		return false
	}
	s.index++
	s.face = Front
	return true
}

// Previous moves to the preceding card, front up. It reports false and does
// nothing on the first card.
func (s *Session) Previous() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	s.face = Front
	return true
}

// Shuffle reorders the deck with a Fisher-Yates shuffle and returns to the
// first card, front up.
func (s *Session) Shuffle() {
	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}
	s.index = 0
	s.face = Front
	s.shuffled = true
}

func (s *Session) Current() models.Card { return s.cards[s.index] }
func (s *Session) Index() int           { return s.index }
func (s *Session) Len() int             { return len(s.cards) }
func (s *Session) Face() Face           { return s.face }
func (s *Session) HasNext() bool        { return s.index < len(s.cards)-1 }
func (s *Session) HasPrevious() bool    { return s.index > 0 }

// Shown returns the text on the visible side of the current card.
func (s *Session) Shown() string {
	if s.face == Back {
		return s.cards[s.index].Back
	}
	return s.cards[s.index].Front
}

// Cards returns the deck in its current order.
func (s *Session) Cards() []models.Card {
	return models.CloneCards(s.cards)
}

// Progress renders the position as "Card i of n".
func (s *Session) Progress() string {
	return fmt.Sprintf("Card %d of %d", s.index+1, len(s.cards))
}

// seek moves to i, clamped to the deck, front up.
func (s *Session) seek(i int) {
	s.index = max(0, min(i, len(s.cards)-1))
	s.face = Front
}

// rebase starts a session on cards that carries on from prev. A shuffled
// order is kept for the cards that are still there, with new cards after
// them, and the current card stays current if it survived the edit.
// Otherwise the position is prev's index, clamped.
func rebase(prev *Session, cards []models.Card, opts ...Option) (*Session, error) {
	s, err := Start(cards, opts...)
	if err != nil || prev == nil {
		return s, err
	}
	if prev.shuffled {
		s.cards = keepOrder(prev.cards, s.cards)
		s.shuffled = true
	}

	current := prev.Current()
	nth := 0
	for _, c := range prev.cards[:prev.index] {
		if c == current {
			nth++
		}
	}

	s.seek(prev.index)
	seen := 0
	for i, c := range s.cards {
		if c != current {
			continue
		}
		s.seek(i)
		if seen == nth {
			break
		}
		seen++
	}
	return s, nil
}

// keepOrder arranges cards in the order they had in prev, then appends the
// ones prev did not hold in collection order. Duplicates are matched by count.
func keepOrder(prev, cards []models.Card) []models.Card {
	left := make(map[models.Card]int, len(cards))
	for _, c := range cards {
		left[c]++
	}
	out := make([]models.Card, 0, len(cards))
	for _, c := range prev {
		if left[c] > 0 {
			left[c]--
			out = append(out, c)
		}
	}
	for _, c := range cards {
		if left[c] > 0 {
			left[c]--
			out = append(out, c)
		}
	}
	return out
}
