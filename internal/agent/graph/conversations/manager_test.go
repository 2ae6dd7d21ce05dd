package conversations

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potatobot-core/server/internal/agent/model"
	"github.com/potatobot-core/server/internal/agent/repo"
)

type failingRepo struct{}

func (failingRepo) AddMessage(ctx context.Context, sessionID string, msg *schema.Message) error {
	return errors.New("archive down")
}

func (failingRepo) LoadHistory(ctx context.Context, sessionID string) (*model.ConversationHistory, error) {
	return nil, errors.New("archive down")
}

func (failingRepo) ClearHistory(ctx context.Context, sessionID string) error {
	return errors.New("archive down")
}

func (failingRepo) GetMessageCount(ctx context.Context, sessionID string) (int, error) {
	return 0, errors.New("archive down")
}

func TestResolveHistoryProvidedWins(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(repo.NewMemoryConversationRepository())

	m.RecordUserMessage(ctx, "s1", "archived question")

	got := m.ResolveHistory(ctx, "s1", []string{"User: from caller"})
	assert.Equal(t, []string{"User: from caller"}, got)

	// an explicit empty history also wins over the archive
	got = m.ResolveHistory(ctx, "s1", []string{})
	assert.Empty(t, got)
}

func TestResolveHistoryFallsBackToArchive(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(repo.NewMemoryConversationRepository())

	m.RecordUserMessage(ctx, "s1", "hi")
	m.RecordAssistantMessage(ctx, "s1", "hello, when did you last spray?")

	got := m.ResolveHistory(ctx, "s1", nil)
	assert.Equal(t, []string{"User: hi", "Bot: hello, when did you last spray?"}, got)
}

func TestResolveHistoryArchiveFailureDegradesToEmpty(t *testing.T) {
	m := NewMessagesManager(failingRepo{})

	got := m.ResolveHistory(context.Background(), "s1", nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecordIsBestEffort(t *testing.T) {
	m := NewMessagesManager(failingRepo{})

	// must not panic or propagate
	m.RecordUserMessage(context.Background(), "s1", "hi")
	m.RecordAssistantMessage(context.Background(), "s1", "hello")
}

func TestHistoryAndCountAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMessagesManager(repo.NewMemoryConversationRepository())

	m.RecordUserMessage(ctx, "s1", "hi")
	m.RecordAssistantMessage(ctx, "s1", "hello")
	m.RecordUserMessage(ctx, "s2", "other session")

	lines, err := m.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"User: hi", "Bot: hello"}, lines)

	count, err := m.MessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, m.Clear(ctx, "s1"))

	count, err = m.MessageCount(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, count)

	// other sessions untouched
	count, err = m.MessageCount(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFormatHistorySkipsEmptyAndSystem(t *testing.T) {
	lines := FormatHistory([]*schema.Message{
		schema.SystemMessage("internal instructions"),
		schema.UserMessage("hi"),
		nil,
		schema.AssistantMessage("", nil),
		schema.AssistantMessage("hello", nil),
	})
	assert.Equal(t, []string{"User: hi", "Bot: hello"}, lines)
}

func TestJoinHistory(t *testing.T) {
	assert.Equal(t, "User: hi\nBot: hello", JoinHistory([]string{"User: hi", "Bot: hello"}))
	assert.Empty(t, JoinHistory(nil))
}
