package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/potatobot-core/server/internal/agent/extraction"
	"github.com/potatobot-core/server/internal/agent/graph/conversations"
	"github.com/potatobot-core/server/internal/agent/graph/prompts"
	"github.com/potatobot-core/server/internal/agent/model"
	logx "github.com/potatobot-core/server/pkg/logger"
)

// NewExtractorPreHandler resolves the turn's history and archives the user
// message before extraction runs.
func NewExtractorPreHandler(mm *conversations.MessagesManager) func(context.Context, model.TurnInput, *model.TurnState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.TurnState) (model.TurnInput, error) {
		s.SessionID = in.SessionID
		s.Message = in.Message
		s.History = mm.ResolveHistory(ctx, in.SessionID, in.History)
		mm.RecordUserMessage(ctx, in.SessionID, in.Message)
		return in, nil
	}
}

// NewExtractorNode creates the node that calls the external NER service with
// the current message and the resolved history.
func NewExtractorNode(client *extraction.Client) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) ([]extraction.Entity, error) {
		var history []string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			history = s.History
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		entities, err := client.Extract(ctx, in.Message, history)
		if err != nil {
			logx.Error().Err(err).Str("session_id", in.SessionID).Msg("extraction failed, aborting turn")
			return nil, err
		}
		return entities, nil
	})
}

// NewExtractorPostHandler applies every extracted entity to the staged slot
// store. An entity class outside the slot schema is a hard failure
// (UnknownSlotError), surfacing extraction/schema drift immediately.
func NewExtractorPostHandler() func(context.Context, []extraction.Entity, *model.TurnState) ([]extraction.Entity, error) {
	return func(ctx context.Context, out []extraction.Entity, s *model.TurnState) ([]extraction.Entity, error) {
		for _, e := range out {
			if err := s.Staged.Fill(e.EntityClass, e.SurfaceValue); err != nil {
				logx.Error().Err(err).
					Str("session_id", s.SessionID).
					Str("entity_class", e.EntityClass).
					Msg("extraction returned an entity class outside the slot schema")
				return nil, err
			}
			logx.Debug().
				Str("session_id", s.SessionID).
				Str("slot", e.EntityClass).
				Msg("slot filled from extraction")
		}
		return out, nil
	}
}

// NewPromptAssemblerNode builds the single response prompt from the staged
// slot state, the history and the side-channel api-results text. The
// side-channel text is a fixed business rule: the spray instruction iff every
// slot is filled, the empty string otherwise.
func NewPromptAssemblerNode(tmpl *prompts.AnswerTemplate) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ []extraction.Entity) ([]*schema.Message, error) {
		var rendered string
		err := compose.ProcessState(ctx, func(ctx context.Context, s *model.TurnState) error {
			apiResults := ""
			if s.Staged.AllFilled() {
				apiResults = model.AllSlotsFilledInstruction
			}

			knowledgeBase, err := json.MarshalIndent(s.Staged.Snapshot(), "", "    ")
			if err != nil {
				return fmt.Errorf("marshal slot state: %w", err)
			}

			rendered, err = tmpl.Render(ctx, prompts.AnswerVars{
				UserMessage:   s.Message,
				ChatHistory:   conversations.JoinHistory(s.History),
				KnowledgeBase: string(knowledgeBase),
				APIResults:    apiResults,
			})
			if err != nil {
				return fmt.Errorf("render answer prompt: %w", err)
			}

			s.RenderedPrompt = rendered
			s.APIResults = apiResults
			return nil
		})
		if err != nil {
			return nil, err
		}

		return []*schema.Message{schema.UserMessage(rendered)}, nil
	})
}

// NewResponseModelPostHandler finishes a successful generation: it assembles
// the synchronous generation trace, commits the staged slot store, and
// archives the reply. Running here means a failed generation leaves the live
// slot store untouched.
func NewResponseModelPostHandler(
	mm *conversations.MessagesManager,
	session model.SlotSession,
	modelName string,
) func(context.Context, *schema.Message, *model.TurnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, s *model.TurnState) (*schema.Message, error) {
		trace := &model.GenerationTrace{
			Model:      modelName,
			Prompts:    []string{s.RenderedPrompt},
			APIResults: s.APIResults,
		}

		gen := model.Generation{Text: out.Content}
		if out.ResponseMeta != nil {
			gen.FinishReason = out.ResponseMeta.FinishReason
			if out.ResponseMeta.Usage != nil {
				gen.Usage = &model.TokenUsage{
					PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
					CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
					TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
				}
			}
		}
		trace.Generations = append(trace.Generations, gen)

		if model.CostEnabled() && gen.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(gen.Usage, pricing)
			trace.TotalCostUSD = totalC
			logx.Debug().
				Str("session_id", s.SessionID).
				Str("model", modelName).
				Int("prompt_tokens", gen.Usage.PromptTokens).
				Int("completion_tokens", gen.Usage.CompletionTokens).
				Int("total_tokens", gen.Usage.TotalTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", totalC).
				Msg("LLM usage")
		}

		if out.Extra == nil {
			out.Extra = map[string]any{}
		}
		out.Extra[model.TurnTraceExtraKey] = trace

		// Generation succeeded; this turn's slot mutations become visible.
		session.CommitSlots(s.Staged)

		mm.RecordAssistantMessage(ctx, s.SessionID, out.Content)

		return out, nil
	}
}
