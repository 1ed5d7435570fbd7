// Package generation turns free text into flashcards through a language
// model. A response that does not parse into complete cards fails as a
// whole; partial lists are never returned.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/andrewpaige1/flashcardhero-api/metrics"
	"github.com/andrewpaige1/flashcardhero-api/models"
)

// DefaultCount is the number of cards requested when the caller asks for none.
const DefaultCount = 5

// MaxCount bounds a single generate request.
const MaxCount = 200

// ErrGenerationFailed matches every generate or improve failure.
var ErrGenerationFailed = errors.New("generation failed")

// Error reports a failed generate or improve call.
type Error struct {
	Op  string // "generate" or "improve"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Failed to %s flashcards. Please try again.", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrGenerationFailed }

// Generator is the black-box generation function.
type Generator interface {
	Generate(ctx context.Context, topic string, count int) ([]models.Card, error)
	Improve(ctx context.Context, card models.Card) (models.Card, error)
}

// Completer sends one user prompt to a model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LLM implements Generator on top of any Completer.
type LLM struct {
	completer Completer
}

// New returns a Generator that prompts c.
func New(c Completer) *LLM {
	return &LLM{completer: c}
}

// Generate asks for count cards about topic.
func (g *LLM) Generate(ctx context.Context, topic string, count int) (cards []models.Card, err error) {
	defer func() { metrics.GenerationRequests.WithLabelValues("generate", metrics.Result(err)).Inc() }()

	if strings.TrimSpace(topic) == "" {
		return nil, &Error{Op: "generate", Err: errors.New("empty topic")}
	}
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}

	raw, err := g.completer.Complete(ctx, GeneratePrompt(topic, count))
	if err != nil {
		log.Printf("LLM.Generate: completion failed: %v", err)
		return nil, &Error{Op: "generate", Err: err}
	}
	cards, err = ParseCards(raw)
	if err != nil {
		log.Printf("LLM.Generate: unusable response: %v", err)
		return nil, &Error{Op: "generate", Err: err}
	}
	return cards, nil
}

// Improve asks for a clearer version of card.
func (g *LLM) Improve(ctx context.Context, card models.Card) (improved models.Card, err error) {
	defer func() { metrics.GenerationRequests.WithLabelValues("improve", metrics.Result(err)).Inc() }()

	raw, err := g.completer.Complete(ctx, ImprovePrompt(card))
	if err != nil {
		log.Printf("LLM.Improve: completion failed: %v", err)
		return models.Card{}, &Error{Op: "improve", Err: err}
	}
	improved, err = ParseCard(raw)
	if err != nil {
		log.Printf("LLM.Improve: unusable response: %v", err)
		return models.Card{}, &Error{Op: "improve", Err: err}
	}
	return improved, nil
}
