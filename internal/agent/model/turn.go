package model

import (
	"time"

	"github.com/potatobot-core/server/internal/agent/slots"
)

// AllSlotsFilledInstruction is the side-channel text handed to the response
// model once every slot has a value. It is a fixed business rule computed
// before generation, never model output.
const AllSlotsFilledInstruction = "All slots filled. Please instruct the user to spray potatoes in three days."

// TurnInput is the public input of one conversation turn. History entries are
// flat "role: text" strings ("User: ...", "Bot: ..."); a nil History means the
// caller supplied none and the archived history is used instead.
type TurnInput struct {
	SessionID string   `json:"session_id"`
	Message   string   `json:"message"`
	History   []string `json:"chat_history"`
}

// TurnOutput is what the turn pipeline hands back to the agent.
type TurnOutput struct {
	Reply string
	Trace *GenerationTrace
}

// TurnRecord is the immutable per-turn snapshot handed to the conversation
// log. Slots is a value snapshot and shares nothing with the live store. All
// fields are natively JSON-representable, so marshalling never fails on type
// grounds.
type TurnRecord struct {
	TurnID          string           `json:"turn_id"`
	SessionID       string           `json:"session_id"`
	UserMessage     string           `json:"user_message"`
	ChatbotResponse string           `json:"chatbot_response"`
	Slots           []slots.Slot     `json:"slots"`
	Generation      *GenerationTrace `json:"answer_generation_llm_details"`
	CreatedAt       time.Time        `json:"created_at"`
}

// GenerationTrace captures the prompt(s) and raw generation(s) of one model
// call for audit logging. It is returned synchronously by the pipeline and is
// attached to no control-flow decision.
type GenerationTrace struct {
	Model        string       `json:"model"`
	Prompts      []string     `json:"prompts"`
	APIResults   string       `json:"api_results"`
	Generations  []Generation `json:"generations"`
	TotalCostUSD float64      `json:"total_cost_usd"`
}

// Generation is one raw completion from the response model.
type Generation struct {
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// TokenUsage mirrors the provider-reported token counts.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SlotSession is the slice of the agent the turn pipeline needs: staging a
// copy of the slot store at turn start and committing it once generation has
// succeeded. A failed turn simply discards the stage.
type SlotSession interface {
	StageSlots() *slots.Store
	CommitSlots(*slots.Store)
}

// TurnState stores per-invocation state for the Eino graph.
// Concurrency model:
//   - This struct is registered as graph local state via compose.WithGenLocalState.
//   - All reads/writes happen only inside Eino state handlers
//     (WithStatePreHandler, WithStatePostHandler, compose.ProcessState), which
//     Eino serializes, so no mutex is required.
//   - The owning Agent additionally serializes whole turns with its own mutex.
type TurnState struct {
	SessionID string
	Message   string
	History   []string     // resolved "role: text" lines for this turn
	Staged    *slots.Store // clone of the live store; extraction mutates this

	RenderedPrompt string // final prompt text, kept for the audit trace
	APIResults     string // side-channel text fed to the response model
}

// turn_trace is the Extra key the response-model post-handler uses to carry
// the finished GenerationTrace out of the graph.
const TurnTraceExtraKey = "turn_trace"
