package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

type cardsEnvelope struct {
	Flashcards []models.Card `json:"flashcards"`
}

type cardEnvelope struct {
	Flashcard models.Card `json:"flashcard"`
}

// ParseCards extracts the {"flashcards": [...]} object from a model reply.
// Every card must have both sides.
func ParseCards(raw string) ([]models.Card, error) {
	var env cardsEnvelope
	if err := decode(raw, &env); err != nil {
		return nil, err
	}
	if len(env.Flashcards) == 0 {
		return nil, errors.New("response contained no flashcards")
	}
	cards := make([]models.Card, len(env.Flashcards))
	for i, c := range env.Flashcards {
		if !c.Complete() {
			return nil, fmt.Errorf("flashcard %d is incomplete", i+1)
		}
		cards[i] = c.Content()
	}
	return cards, nil
}

// ParseCard extracts the {"flashcard": {...}} object from a model reply.
func ParseCard(raw string) (models.Card, error) {
	var env cardEnvelope
	if err := decode(raw, &env); err != nil {
		return models.Card{}, err
	}
	if !env.Flashcard.Complete() {
		return models.Card{}, errors.New("flashcard is incomplete")
	}
	return env.Flashcard.Content(), nil
}

// decode tolerates a markdown code fence or chatter around the JSON object.
func decode(raw string, v any) error {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return errors.New("response contained no JSON object")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("parse response JSON: %w", err)
	}
	return nil
}
