package prompts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	tmpl := NewAnswerTemplate("History:\n{chat_history}\nFacts:\n{knowledge_base}\nAdvice: {api_results}\nUser: {user_message}\nBot:")

	out, err := tmpl.Render(context.Background(), AnswerVars{
		UserMessage:   "I farm in Musanze",
		ChatHistory:   "User: hi\nBot: hello",
		KnowledgeBase: `[{"id": "location", "value": null}]`,
		APIResults:    "",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "User: I farm in Musanze")
	assert.Contains(t, out, "History:\nUser: hi\nBot: hello")
	assert.Contains(t, out, `[{"id": "location", "value": null}]`)
	assert.Contains(t, out, "Advice: \n")
	assert.NotContains(t, out, "{user_message}")
	assert.NotContains(t, out, "{chat_history}")
	assert.NotContains(t, out, "{knowledge_base}")
	assert.NotContains(t, out, "{api_results}")
}

func TestRenderSurvivesBracesInValues(t *testing.T) {
	tmpl := NewAnswerTemplate("U:{user_message} K:{knowledge_base}")

	out, err := tmpl.Render(context.Background(), AnswerVars{
		UserMessage:   "my field is {big}",
		KnowledgeBase: `{"location": {"value": "Musanze"}}`,
	})
	require.NoError(t, err)
	assert.Equal(t, `U:my field is {big} K:{"location": {"value": "Musanze"}}`, out)
}

func TestLoadAnswerTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello {user_message}"), 0o644))

	tmpl, err := LoadAnswerTemplate(path)
	require.NoError(t, err)

	out, err := tmpl.Render(context.Background(), AnswerVars{UserMessage: "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestLoadAnswerTemplateMissingFile(t *testing.T) {
	_, err := LoadAnswerTemplate(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestShippedTemplateCarriesAllPlaceholders(t *testing.T) {
	tmpl, err := LoadAnswerTemplate(filepath.Join("..", "..", "..", "..", "prompts", "generate_answer.txt"))
	require.NoError(t, err)

	for _, ph := range []string{PlaceholderUserMessage, PlaceholderChatHistory, PlaceholderKnowledgeBase, PlaceholderAPIResults} {
		assert.Contains(t, tmpl.text, ph)
	}
}
