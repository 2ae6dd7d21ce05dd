package prompts

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Placeholder tokens of the answer template.
const (
	PlaceholderUserMessage   = "{user_message}"
	PlaceholderChatHistory   = "{chat_history}"
	PlaceholderKnowledgeBase = "{knowledge_base}"
	PlaceholderAPIResults    = "{api_results}"
)

// AnswerTemplate is the single prompt template of the response generator,
// loaded once at construction.
type AnswerTemplate struct {
	text string
}

// NewAnswerTemplate wraps raw template text. Used directly by tests;
// production loads from disk via LoadAnswerTemplate.
func NewAnswerTemplate(text string) *AnswerTemplate {
	return &AnswerTemplate{text: text}
}

// LoadAnswerTemplate reads the template file. A missing or unreadable file is
// a construction-time fatal error for the caller.
func LoadAnswerTemplate(path string) (*AnswerTemplate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load answer template %q: %w", path, err)
	}
	return NewAnswerTemplate(string(b)), nil
}

// AnswerVars are the four named inputs of the answer template.
type AnswerVars struct {
	UserMessage   string
	ChatHistory   string
	KnowledgeBase string
	APIResults    string
}

// Render substitutes the known tokens and runs the result through the Eino
// prompt component. Substitution happens with a plain replacer so slot-state
// JSON braces in {knowledge_base} (and braces typed by users) never collide
// with FString parsing; the component wrap exists to emit prompt callbacks.
func (t *AnswerTemplate) Render(ctx context.Context, vars AnswerVars) (string, error) {
	content := strings.NewReplacer(
		PlaceholderUserMessage, vars.UserMessage,
		PlaceholderChatHistory, vars.ChatHistory,
		PlaceholderKnowledgeBase, vars.KnowledgeBase,
		PlaceholderAPIResults, vars.APIResults,
	).Replace(t.text)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("prompt_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"prompt_messages": []*schema.Message{schema.UserMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("answer prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("answer prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}
