package graph

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/potatobot-core/server/internal/agent/extraction"
	"github.com/potatobot-core/server/internal/agent/graph/conversations"
	"github.com/potatobot-core/server/internal/agent/graph/nodes"
	"github.com/potatobot-core/server/internal/agent/graph/observers"
	"github.com/potatobot-core/server/internal/agent/graph/prompts"
	"github.com/potatobot-core/server/internal/agent/model"
	logx "github.com/potatobot-core/server/pkg/logger"
)

// Runner executes the compiled turn pipeline for one agent.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error)
}

// Config holds everything needed to compose one agent's turn pipeline.
type Config struct {
	ChatModel einomodel.BaseChatModel
	ModelName string
	Extractor *extraction.Client
	Template  *prompts.AnswerTemplate
	Session   model.SlotSession
	Messages  *conversations.MessagesManager
}

// graphBuilder handles the construction of the turn graph.
type graphBuilder struct {
	config *Config
	graph  *compose.Graph[model.TurnInput, *schema.Message]
}

type turnRunner struct {
	runnable compose.Runnable[model.TurnInput, *schema.Message]
}

func (r *turnRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewTurnCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("turn pipeline returned no message")
	}

	trace, _ := out.Extra[model.TurnTraceExtraKey].(*model.GenerationTrace)
	if trace == nil {
		return nil, fmt.Errorf("turn pipeline returned no generation trace")
	}

	return &model.TurnOutput{
		Reply: strings.TrimSpace(out.Content),
		Trace: trace,
	}, nil
}

// BuildTurnGraph constructs and compiles the per-agent turn pipeline:
// Extractor -> PromptAssembler -> ResponseChatModel. Extraction always runs
// first so slot state reflects the current turn before the reply is produced.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extraction client is nil")
	}
	if cfg.Template == nil {
		return nil, fmt.Errorf("answer template is nil")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("slot session is nil")
	}
	if cfg.Messages == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}

	builder := &graphBuilder{
		config: &cfg,
		graph: compose.NewGraph[model.TurnInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{Staged: cfg.Session.StageSlots()}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *graphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeExtractor,
		nodes.NewExtractorNode(b.config.Extractor),
		compose.WithStatePreHandler(nodes.NewExtractorPreHandler(b.config.Messages)),
		compose.WithStatePostHandler(nodes.NewExtractorPostHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodePromptAssembler,
		nodes.NewPromptAssemblerNode(b.config.Template),
	)

	b.graph.AddChatModelNode(nodes.NodeResponseModel,
		b.config.ChatModel,
		compose.WithStatePostHandler(nodes.NewResponseModelPostHandler(b.config.Messages, b.config.Session, b.config.ModelName)),
	)
}

// addEdges creates the strictly linear flow between nodes.
func (b *graphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeExtractor},
		{nodes.NodeExtractor, nodes.NodePromptAssembler},
		{nodes.NodePromptAssembler, nodes.NodeResponseModel},
		{nodes.NodeResponseModel, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// compile finalizes and compiles the graph.
func (b *graphBuilder) compile(ctx context.Context) (Runner, error) {
	runnable, err := b.graph.Compile(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling turn graph")
		return nil, fmt.Errorf("error compiling turn graph: %w", err)
	}

	logx.Debug().Msg("Turn graph compiled successfully")
	return &turnRunner{runnable: runnable}, nil
}
