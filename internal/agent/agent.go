package agent

import (
	"context"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"

	"github.com/potatobot-core/server/internal/agent/extraction"
	"github.com/potatobot-core/server/internal/agent/graph"
	"github.com/potatobot-core/server/internal/agent/graph/conversations"
	"github.com/potatobot-core/server/internal/agent/graph/prompts"
	"github.com/potatobot-core/server/internal/agent/model"
	"github.com/potatobot-core/server/internal/agent/slots"
	logx "github.com/potatobot-core/server/pkg/logger"
)

// Deps are the shared collaborators an Agent is built from. The chat model,
// extraction client and template are process-wide; each agent owns only its
// slot store and compiled pipeline.
type Deps struct {
	ChatModel   einomodel.BaseChatModel
	ModelName   string
	Extractor   *extraction.Client
	Template    *prompts.AnswerTemplate
	Messages    *conversations.MessagesManager
	Definitions []slots.Definition // nil means slots.DefaultDefinitions
}

// Agent is the per-session conversation agent: one slot store plus one
// compiled turn pipeline. It stays alive for the process lifetime; there is
// no teardown beyond process exit.
type Agent struct {
	mu        sync.Mutex
	sessionID string
	store     *slots.Store
	runner    graph.Runner
}

// NewAgent constructs an agent with every slot unset and compiles its turn
// pipeline.
func NewAgent(ctx context.Context, sessionID string, deps Deps) (*Agent, error) {
	defs := deps.Definitions
	if defs == nil {
		defs = slots.DefaultDefinitions()
	}

	a := &Agent{
		sessionID: sessionID,
		store:     slots.NewStore(defs),
	}

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		ChatModel: deps.ChatModel,
		ModelName: deps.ModelName,
		Extractor: deps.Extractor,
		Template:  deps.Template,
		Session:   a,
		Messages:  deps.Messages,
	})
	if err != nil {
		return nil, err
	}
	a.runner = runner

	logx.Debug().Str("session_id", sessionID).Msg("agent created")
	return a, nil
}

// StageSlots hands the pipeline an independent copy of the live store.
// Called while Turn holds the agent mutex; the store itself needs no locking.
func (a *Agent) StageSlots() *slots.Store {
	return a.store.Clone()
}

// CommitSlots replaces the live store with the staged one. Only the pipeline
// calls this, and only after generation has succeeded.
func (a *Agent) CommitSlots(s *slots.Store) {
	a.store = s
}

var _ model.SlotSession = (*Agent)(nil)

// Turn runs one full conversation turn: extraction, side-channel fill check,
// prompt assembly, generation, record assembly. Turns of one agent are
// serialized; a failed turn leaves the slot store exactly as it was.
func (a *Agent) Turn(ctx context.Context, message string, history []string) (*model.TurnRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out, err := a.runner.Invoke(ctx, model.TurnInput{
		SessionID: a.sessionID,
		Message:   message,
		History:   history,
	})
	if err != nil {
		return nil, err
	}

	return &model.TurnRecord{
		TurnID:          uuid.NewString(),
		SessionID:       a.sessionID,
		UserMessage:     message,
		ChatbotResponse: out.Reply,
		Slots:           a.store.Snapshot(),
		Generation:      out.Trace,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// Slots returns a value snapshot of the agent's current slot state.
func (a *Agent) Slots() []slots.Slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.Snapshot()
}

// AllFilled reports whether every slot of the agent has a value.
func (a *Agent) AllFilled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.store.AllFilled()
}
