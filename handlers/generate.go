package handlers

import (
	"log"
	"net/http"

	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/utils"
)

type generateRequest struct {
	Prompt string `json:"prompt" validate:"required,max=20000"`
	Count  int    `json:"count" validate:"omitempty,min=1,max=200"`
}

type improveRequest struct {
	Front string `json:"front" validate:"required,max=1000"`
	Back  string `json:"back" validate:"required,max=2000"`
}

// POST /api/generate
func (db *DBHandler) GenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	auth0ID, ok := db.allowGeneration(w, r, "GenerateFlashcards")
	if !ok {
		return
	}

	var req generateRequest
	if err := db.decode(r, &req); err != nil {
		log.Printf("GenerateFlashcards: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cards, err := db.Generator.Generate(r.Context(), req.Prompt, req.Count)
	if err != nil {
		writeError(w, "GenerateFlashcards", err)
		return
	}
	log.Printf("GenerateFlashcards: generated %d cards for user=%s", len(cards), auth0ID)
	utils.WriteJSON(w, http.StatusOK, map[string][]models.Card{"flashcards": cards})
}

// POST /api/improve
func (db *DBHandler) ImproveFlashcard(w http.ResponseWriter, r *http.Request) {
	if _, ok := db.allowGeneration(w, r, "ImproveFlashcard"); !ok {
		return
	}

	var req improveRequest
	if err := db.decode(r, &req); err != nil {
		log.Printf("ImproveFlashcard: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	card, err := db.Generator.Improve(r.Context(), models.Card{Front: req.Front, Back: req.Back})
	if err != nil {
		writeError(w, "ImproveFlashcard", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]models.Card{"flashcard": card})
}

// allowGeneration requires a caller, a configured generator and a free slot
// in the caller's rate limit.
func (db *DBHandler) allowGeneration(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	auth0ID, ok := utils.GetAuth0ID(r)
	if !ok {
		log.Printf("%s: Unauthorized request", op)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if db.Generator == nil {
		http.Error(w, "Generation is not configured", http.StatusServiceUnavailable)
		return "", false
	}
	if !db.limits.allow(auth0ID) {
		log.Printf("%s: rate limited user=%s", op, auth0ID)
		http.Error(w, "Too many generation requests, slow down", http.StatusTooManyRequests)
		return "", false
	}
	return auth0ID, true
}
