package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/potatobot-core/server/internal/agent/model"
	logx "github.com/potatobot-core/server/pkg/logger"
)

const (
	userPrefix      = "User: "
	assistantPrefix = "Bot: "
)

// MessagesManager mediates between the turn pipeline and the conversation
// archive. The caller-supplied chat history stays authoritative for prompt
// assembly; the archive is a best-effort server-side record that also serves
// as fallback when a caller sends no history at all.
type MessagesManager struct {
	repo model.ConversationRepository
}

func NewMessagesManager(repo model.ConversationRepository) *MessagesManager {
	return &MessagesManager{repo: repo}
}

// ResolveHistory returns the history lines to use for this turn. A non-nil
// provided slice (even an empty one) wins; otherwise the archive is loaded.
// Archive failures degrade to an empty history with a warning, because the
// turn must not depend on archive availability.
func (m *MessagesManager) ResolveHistory(ctx context.Context, sessionID string, provided []string) []string {
	if provided != nil {
		return provided
	}

	history, err := m.repo.LoadHistory(ctx, sessionID)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("history fallback unavailable, continuing with empty history")
		return []string{}
	}
	return FormatHistory(history.Messages)
}

// RecordUserMessage archives the inbound user message. Best-effort: failures
// are logged, never propagated.
func (m *MessagesManager) RecordUserMessage(ctx context.Context, sessionID, content string) {
	if err := m.repo.AddMessage(ctx, sessionID, schema.UserMessage(content)); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to archive user message")
	}
}

// RecordAssistantMessage archives the generated reply. Best-effort.
func (m *MessagesManager) RecordAssistantMessage(ctx context.Context, sessionID, content string) {
	if err := m.repo.AddMessage(ctx, sessionID, schema.AssistantMessage(content, nil)); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to archive assistant message")
	}
}

// History returns the archived history of a session as flat "role: text"
// lines, for the read-only history endpoint.
func (m *MessagesManager) History(ctx context.Context, sessionID string) ([]string, error) {
	history, err := m.repo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return FormatHistory(history.Messages), nil
}

// MessageCount returns the number of archived messages for a session.
func (m *MessagesManager) MessageCount(ctx context.Context, sessionID string) (int, error) {
	return m.repo.GetMessageCount(ctx, sessionID)
}

// Clear drops the archived history of a session.
func (m *MessagesManager) Clear(ctx context.Context, sessionID string) error {
	return m.repo.ClearHistory(ctx, sessionID)
}

// FormatHistory renders archived messages as the flat "role: text" lines the
// NER collaborator and the prompt template consume.
func FormatHistory(messages []*schema.Message) []string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			lines = append(lines, userPrefix+msg.Content)
		case schema.Assistant:
			lines = append(lines, assistantPrefix+msg.Content)
		}
	}
	return lines
}

// JoinHistory collapses history lines into the single block the prompt
// template's {chat_history} placeholder receives.
func JoinHistory(lines []string) string {
	return strings.Join(lines, "\n")
}
