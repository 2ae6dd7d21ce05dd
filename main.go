package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/potatobot-core/server/internal/agent"
	"github.com/potatobot-core/server/internal/agent/convlog"
	"github.com/potatobot-core/server/internal/agent/extraction"
	"github.com/potatobot-core/server/internal/agent/graph/conversations"
	"github.com/potatobot-core/server/internal/agent/graph/nodes"
	"github.com/potatobot-core/server/internal/agent/graph/prompts"
	"github.com/potatobot-core/server/internal/agent/model"
	"github.com/potatobot-core/server/internal/agent/repo"
	"github.com/potatobot-core/server/internal/core"
	"github.com/potatobot-core/server/internal/server"
	logx "github.com/potatobot-core/server/pkg/logger"
	pkgredis "github.com/potatobot-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service, sourced from
// environment variables (loaded from .env for local runs). The API key is
// required up front: this is a service process, so configuration validation
// fails fast instead of prompting interactively.
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8000"`

	// LLM provider (OpenAI-compatible)
	APIKey  string `envconfig:"OPENAI_API_KEY" required:"true"`
	BaseURL string `envconfig:"OPENAI_BASE_URL"`

	// Infrastructure
	Redis pkgredis.Config

	// Agent configs
	Response     model.ResponseModelConfig
	Extraction   model.ExtractionConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Log          model.LogConfig
}

func main() {
	ctx := context.Background()

	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	// Conversation archive: Redis when configured, process memory otherwise.
	var conversationRepo model.ConversationRepository
	if cfg.Redis.Enabled() {
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			logx.Fatal().Err(err).Str("ttl", cfg.Conversation.TTL).Msg("Invalid CONVERSATION_TTL")
		}
		rdb, err := cfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		conversationRepo = repo.NewRedisConversationRepository(rdb, ttl)
		logx.Info().Msg("conversation archive backed by redis")
	} else {
		conversationRepo = repo.NewMemoryConversationRepository()
		logx.Info().Msg("conversation archive backed by process memory")
	}
	messages := conversations.NewMessagesManager(conversationRepo)

	// Prompt template: loaded once, missing file is fatal.
	template, err := prompts.LoadAnswerTemplate(cfg.Prompt.Path)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.Prompt.Path).Msg("Failed to load answer template")
	}

	// One chat model client and one extraction client, shared by all agents.
	chatModel, err := nodes.NewResponseChatModel(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		RespConfig: &cfg.Response,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create response model")
	}
	extractor := extraction.NewClient(cfg.Extraction)

	registry := agent.NewRegistry(func(ctx context.Context, sessionID string) (*agent.Agent, error) {
		return agent.NewAgent(ctx, sessionID, agent.Deps{
			ChatModel: chatModel,
			ModelName: cfg.Response.Model,
			Extractor: extractor,
			Template:  template,
			Messages:  messages,
		})
	})

	logbook, err := convlog.NewWriter(cfg.Log.Path)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.Log.Path).Msg("Failed to open conversation log")
	}
	defer logbook.Close()

	srv := server.New(registry, logbook, messages)
	if err := srv.Start(cfg.ListenAddr); err != nil {
		logx.Fatal().Err(err).Msg("http server stopped")
	}
}
