package practice

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

func deck(n int) []models.Card {
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.Card{Front: string(rune('a' + i)), Back: string(rune('A' + i))}
	}
	return cards
}

func TestStartRejectsEmptyDeck(t *testing.T) {
	_, err := Start(nil)
	assert.ErrorIs(t, err, ErrEmptyCollection)
}

func TestStartCopiesDeck(t *testing.T) {
	cards := deck(2)
	s, err := Start(cards)
	require.NoError(t, err)

	cards[0].Front = "changed"
	assert.Equal(t, "a", s.Current().Front)
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, Front, s.Face())
	assert.Equal(t, "Card 1 of 2", s.Progress())
}

func TestNextClampsAtEnd(t *testing.T) {
	const n = 5
	s, err := Start(deck(n))
	require.NoError(t, err)

	for range n - 1 {
		assert.True(t, s.Next())
	}
	assert.Equal(t, n-1, s.Index())
	assert.False(t, s.HasNext())

	assert.False(t, s.Next())
	assert.Equal(t, n-1, s.Index())
}

func TestPreviousClampsAtStart(t *testing.T) {
	s, err := Start(deck(3))
	require.NoError(t, err)

	assert.False(t, s.Previous())
	assert.Equal(t, 0, s.Index())
	assert.False(t, s.HasPrevious())

	s.Next()
	s.Next()
	assert.True(t, s.Previous())
	assert.Equal(t, 1, s.Index())
}

func TestNavigationShowsFront(t *testing.T) {
	s, err := Start(deck(3))
	require.NoError(t, err)

	s.Flip()
	s.Next()
	assert.Equal(t, Front, s.Face())
	s.Flip()
	s.Previous()
	assert.Equal(t, Front, s.Face())
}

func TestFlipIsItsOwnInverse(t *testing.T) {
	s, err := Start(deck(1))
	require.NoError(t, err)

	assert.Equal(t, Back, s.Flip())
	assert.Equal(t, "A", s.Shown())
	assert.Equal(t, Front, s.Flip())
	assert.Equal(t, "a", s.Shown())
	assert.Equal(t, 0, s.Index())
}

func TestShuffleKeepsMultisetAndResets(t *testing.T) {
	cards := deck(8)
	s, err := Start(cards, WithRand(rand.New(rand.NewPCG(7, 11))))
	require.NoError(t, err)

	s.Next()
	s.Next()
	s.Flip()
	s.Shuffle()

	assert.Equal(t, 0, s.Index())
	assert.Equal(t, Front, s.Face())
	assert.ElementsMatch(t, cards, s.Cards())
	assert.Equal(t, len(cards), s.Len())
}

func TestShuffleReachesEveryPermutation(t *testing.T) {
	cards := deck(3)
	rng := rand.New(rand.NewPCG(1, 1))
	seen := map[string]int{}
	for range 600 {
		s, err := Start(cards, WithRand(rng))
		require.NoError(t, err)
		s.Shuffle()
		order := ""
		for _, c := range s.Cards() {
			order += c.Front
		}
		seen[order]++
	}
	assert.Len(t, seen, 6)
	for order, n := range seen {
		assert.Greater(t, n, 50, "permutation %s drawn too rarely", order)
	}
}

func TestSeekClamps(t *testing.T) {
	s, err := Start(deck(3))
	require.NoError(t, err)
	s.seek(10)
	assert.Equal(t, 2, s.Index())
	s.seek(-1)
	assert.Equal(t, 0, s.Index())
}

func TestRebaseFollowsCurrentCard(t *testing.T) {
	prev, err := Start(deck(3))
	require.NoError(t, err)
	prev.Next()
	prev.Next()

	// unshuffled decks take the new collection order
	next, err := rebase(prev, []models.Card{{Front: "c", Back: "C"}, {Front: "a", Back: "A"}})
	require.NoError(t, err)
	assert.Equal(t, "c", next.Current().Front)
	assert.Equal(t, 0, next.Index())
	assert.False(t, next.shuffled)

	// removed current card falls back to the clamped index
	next, err = rebase(prev, deck(2))
	require.NoError(t, err)
	assert.Equal(t, 1, next.Index())
}

func TestKeepOrderMatchesDuplicatesByCount(t *testing.T) {
	x := models.Card{Front: "x", Back: "X"}
	y := models.Card{Front: "y", Back: "Y"}
	z := models.Card{Front: "z", Back: "Z"}

	got := keepOrder([]models.Card{y, x, y, x}, []models.Card{x, y, z, x})
	assert.Equal(t, []models.Card{y, x, x, z}, got)
}
