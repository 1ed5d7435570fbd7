package client

import (
	"context"
	"net/http"

	"github.com/andrewpaige1/flashcardhero-api/generation"
	"github.com/andrewpaige1/flashcardhero-api/models"
)

// Generate asks the server to generate count cards about topic.
func (r *Remote) Generate(ctx context.Context, topic string, count int) ([]models.Card, error) {
	var out struct {
		Flashcards []models.Card `json:"flashcards"`
	}
	body := map[string]any{"prompt": topic}
	if count > 0 {
		body["count"] = min(count, generation.MaxCount)
	}
	if err := r.do(ctx, http.MethodPost, "/api/generate", nil, body, &out); err != nil {
		return nil, &generation.Error{Op: "generate", Err: err}
	}
	return out.Flashcards, nil
}

// Improve asks the server to rewrite one card.
func (r *Remote) Improve(ctx context.Context, card models.Card) (models.Card, error) {
	var out struct {
		Flashcard models.Card `json:"flashcard"`
	}
	body := map[string]string{"front": card.Front, "back": card.Back}
	if err := r.do(ctx, http.MethodPost, "/api/improve", nil, body, &out); err != nil {
		return models.Card{}, &generation.Error{Op: "improve", Err: err}
	}
	return out.Flashcard, nil
}
