package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

// formatDate renders t relative to now for the last day and as a short
// date before that. The year is shown only when it differs from now's.
func formatDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < 24*time.Hour {
		if diff < time.Hour {
			return plural(int(diff/time.Minute), "minute") + " ago"
		}
		return plural(int(diff/time.Hour), "hour") + " ago"
	}
	t = t.In(now.Location())
	if t.Year() != now.Year() {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("Jan 2")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func printCollections(w io.Writer, list []models.Collection, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No collections.")
		return
	}
	for _, c := range list {
		fmt.Fprintf(w, "%-22s %-40s %s, %s, %s\n",
			c.ID, truncate(c.Name, 40), plural(len(c.Cards), "card"), c.Visibility, formatDate(c.CreatedAt, now))
		if d := strings.TrimSpace(c.Description); d != "" {
			fmt.Fprintf(w, "%22s %s\n", "", truncate(d, 70))
		}
	}
}

func printCards(w io.Writer, cards []models.Card, marked func(models.Card) bool) {
	for i, card := range cards {
		mark := " "
		if marked != nil && marked(card) {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s %3d. %s\n        %s\n", mark, i+1, card.Front, card.Back)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// parseCard reads "front::back".
func parseCard(s string) (models.Card, error) {
	front, back, ok := strings.Cut(s, "::")
	if !ok {
		return models.Card{}, fmt.Errorf("card %q: expected front::back", s)
	}
	return models.Card{Front: strings.TrimSpace(front), Back: strings.TrimSpace(back)}, nil
}
