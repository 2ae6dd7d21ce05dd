package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/potatobot-core/server/internal/agent/model"
)

// MemoryConversationRepository keeps session archives in process memory. It
// backs tests and deployments without a configured Redis URL; archives are
// lost at process exit, matching the service's best-effort durability stance.
type MemoryConversationRepository struct {
	mu       sync.RWMutex
	sessions map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		sessions: make(map[string][]*schema.Message),
	}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *message
	r.sessions[sessionID] = append(r.sessions[sessionID], &copied)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.sessions[sessionID]
	msgs := make([]*schema.Message, len(stored))
	copy(msgs, stored)
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, sessionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[sessionID]), nil
}

var _ model.ConversationRepository = (*MemoryConversationRepository)(nil)
