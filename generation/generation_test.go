package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

type fakeCompleter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func TestParseCards(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []models.Card
		wantErr bool
	}{
		{
			name: "plain object",
			raw:  `{"flashcards":[{"front":"hola","back":"hello"},{"front":"adios","back":"bye"}]}`,
			want: []models.Card{{Front: "hola", Back: "hello"}, {Front: "adios", Back: "bye"}},
		},
		{
			name: "fenced with chatter",
			raw:  "Here you go:\n```json\n{\"flashcards\":[{\"front\":\"a\",\"back\":\"b\"}]}\n```",
			want: []models.Card{{Front: "a", Back: "b"}},
		},
		{name: "not json", raw: "I cannot help with that", wantErr: true},
		{name: "empty list", raw: `{"flashcards":[]}`, wantErr: true},
		{name: "incomplete card", raw: `{"flashcards":[{"front":"a","back":"b"},{"front":"c","back":" "}]}`, wantErr: true},
		{name: "wrong shape", raw: `{"cards":[{"front":"a","back":"b"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCard(t *testing.T) {
	card, err := ParseCard(`{"flashcard":{"front":"What is H2O?","back":"Water"}}`)
	require.NoError(t, err)
	assert.Equal(t, models.Card{Front: "What is H2O?", Back: "Water"}, card)

	_, err = ParseCard(`{"flashcard":{"front":"What is H2O?"}}`)
	assert.Error(t, err)
}

func TestGenerateWrapsFailures(t *testing.T) {
	fc := &fakeCompleter{reply: "sorry"}
	_, err := New(fc).Generate(context.Background(), "photosynthesis", 3)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, "Failed to generate flashcards. Please try again.", err.Error())

	boom := errors.New("timeout")
	fc = &fakeCompleter{err: boom}
	_, err = New(fc).Improve(context.Background(), models.Card{Front: "a", Back: "b"})
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, boom)
}

func TestGenerateDefaultsCount(t *testing.T) {
	fc := &fakeCompleter{reply: `{"flashcards":[{"front":"a","back":"b"}]}`}
	cards, err := New(fc).Generate(context.Background(), "cells", 0)
	require.NoError(t, err)
	assert.Len(t, cards, 1)
	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "Generate 5 flashcards about cells.")
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	fc := &fakeCompleter{}
	_, err := New(fc).Generate(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Empty(t, fc.prompts)
}

func TestImprovePromptEscapesCardText(t *testing.T) {
	prompt := ImprovePrompt(models.Card{Front: `say "hi"`, Back: "ok"})
	assert.Contains(t, prompt, `"front": "say \"hi\""`)
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, DefaultClaudeModel, req.Model)
		assert.Equal(t, defaultMaxTokens, req.MaxTokens)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "user", req.Messages[0].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": `{"flashcards":[{"front":"q","back":"a"}]}`}},
		})
	}))
	defer srv.Close()

	a, err := NewAnthropic("secret", "", WithAnthropicURL(srv.URL))
	require.NoError(t, err)

	cards, err := New(a).Generate(context.Background(), "trivia", 1)
	require.NoError(t, err)
	assert.Equal(t, []models.Card{{Front: "q", Back: "a"}}, cards)
}

func TestAnthropicErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded_error"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a, err := NewAnthropic("secret", "", WithAnthropicURL(srv.URL))
	require.NoError(t, err)
	_, err = a.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	_, err := NewAnthropic("", "")
	assert.Error(t, err)
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]string{"role": "assistant", "content": `{"flashcard":{"front":"Q","back":"A"}}`},
			}},
		})
	}))
	defer srv.Close()

	o, err := NewOpenAI("secret", "", srv.URL+"/v1")
	require.NoError(t, err)

	card, err := New(o).Improve(context.Background(), models.Card{Front: "q", Back: "a"})
	require.NoError(t, err)
	assert.Equal(t, models.Card{Front: "Q", Back: "A"}, card)
}
