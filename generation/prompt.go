package generation

import (
	"encoding/json"
	"fmt"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

// GeneratePrompt builds the request for count cards about topic.
func GeneratePrompt(topic string, count int) string {
	return fmt.Sprintf(`Generate %d flashcards about %s. Return them in this exact JSON format without any additional text:
{
  "flashcards": [
    {
      "front": "question or concept",
      "back": "answer or explanation"
    }
  ]
}`, count, topic)
}

// ImprovePrompt builds the request to rewrite one card. The card text is
// embedded as JSON so quotes in it cannot break the template.
func ImprovePrompt(card models.Card) string {
	body, _ := json.MarshalIndent(cardEnvelope{Flashcard: card.Content()}, "", "  ")
	return fmt.Sprintf("Improve this flashcard by making it more clear, concise, and educational. Return in this exact JSON format without any additional text:\n%s", body)
}
