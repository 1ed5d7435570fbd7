package collectionsync

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

// DefaultSampleSize is how many public collections the browse view shows.
const DefaultSampleSize = 12

// Sampler draws a random subset of a public snapshot for browsing. The
// subset is held stable across snapshots: chosen collections keep their
// place, refreshed with new data, deleted ones drop out and free slots are
// refilled at random. Shuffle draws a fresh subset. A new Sampler, as made
// for a re-issued subscription, starts with a fresh draw.
type Sampler struct {
	mu        sync.Mutex
	size      int
	rng       *rand.Rand
	reshuffle bool

	latest   []models.Collection
	selected []string
}

// SamplerOption configures a Sampler.
type SamplerOption func(*Sampler)

// WithRand sets the random source.
func WithRand(r *rand.Rand) SamplerOption {
	return func(s *Sampler) { s.rng = r }
}

// WithReshuffleOnSnapshot redraws the subset on every snapshot instead of
// holding it stable.
func WithReshuffleOnSnapshot() SamplerOption {
	return func(s *Sampler) { s.reshuffle = true }
}

// NewSampler returns a Sampler showing at most size collections.
func NewSampler(size int, opts ...SamplerOption) *Sampler {
	if size <= 0 {
		size = DefaultSampleSize
	}
	s := &Sampler{
		size: size,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply feeds a new snapshot and returns the subset to display.
func (s *Sampler) Apply(snapshot []models.Collection) []models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = models.CloneCollections(snapshot)
	if s.selected == nil || s.reshuffle {
		s.draw()
	} else {
		s.keep()
	}
	return s.current()
}

// Shuffle draws a fresh subset from the latest snapshot.
func (s *Sampler) Shuffle() []models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draw()
	return s.current()
}

// Current returns the subset without changing it.
func (s *Sampler) Current() []models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Sampler) draw() {
	s.selected = make([]string, 0, s.size)
	for _, i := range s.rng.Perm(len(s.latest)) {
		if len(s.selected) == s.size {
			break
		}
		s.selected = append(s.selected, s.latest[i].ID)
	}
}

func (s *Sampler) keep() {
	present := make(map[string]bool, len(s.latest))
	for _, c := range s.latest {
		present[c.ID] = true
	}

	kept := make([]string, 0, s.size)
	chosen := make(map[string]bool, s.size)
	for _, id := range s.selected {
		if present[id] && len(kept) < s.size {
			kept = append(kept, id)
			chosen[id] = true
		}
	}
	for _, i := range s.rng.Perm(len(s.latest)) {
		if len(kept) == s.size {
			break
		}
		id := s.latest[i].ID
		if !chosen[id] {
			kept = append(kept, id)
			chosen[id] = true
		}
	}
	s.selected = kept
}

func (s *Sampler) current() []models.Collection {
	byID := make(map[string]models.Collection, len(s.latest))
	for _, c := range s.latest {
		byID[c.ID] = c
	}
	out := make([]models.Collection, 0, len(s.selected))
	for _, id := range s.selected {
		if c, ok := byID[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Search keeps collections whose name or description contains query,
// case-insensitively. An empty query keeps everything.
func Search(list []models.Collection, query string) []models.Collection {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := make([]models.Collection, 0, len(list))
	for _, c := range list {
		if strings.Contains(strings.ToLower(c.Name), q) || strings.Contains(strings.ToLower(c.Description), q) {
			out = append(out, c)
		}
	}
	return out
}
