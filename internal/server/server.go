package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/potatobot-core/server/internal/agent"
	"github.com/potatobot-core/server/internal/agent/convlog"
	"github.com/potatobot-core/server/internal/agent/extraction"
	"github.com/potatobot-core/server/internal/agent/graph/conversations"
	"github.com/potatobot-core/server/internal/agent/model"
	errx "github.com/potatobot-core/server/internal/core/error"
	logx "github.com/potatobot-core/server/pkg/logger"
)

// ChatRequest is the inbound chat payload. SessionID is opaque and never
// validated for format; first use implicitly creates the agent. A missing
// chat_history means "use the server-side archive"; an explicit empty array
// means "no history".
type ChatRequest struct {
	Message     string   `json:"message"`
	ChatHistory []string `json:"chat_history"`
	SessionID   string   `json:"session_id"`
}

// ChatResponse carries the reply plus the full turn record, mirroring what
// lands in the conversation log.
type ChatResponse struct {
	Response   string            `json:"response"`
	LogMessage *model.TurnRecord `json:"log_message"`
}

// HistoryResponse is the read-only view of a session's archived history.
type HistoryResponse struct {
	SessionID string   `json:"session_id"`
	Messages  []string `json:"messages"`
	Count     int      `json:"count"`
}

// Server is the thin HTTP surface over the dialogue core. It owns no
// business logic: it binds requests, delegates to the registry/agent, and
// forwards turn records to the conversation log.
type Server struct {
	echo     *echo.Echo
	registry *agent.Registry
	logbook  *convlog.Writer
	messages *conversations.MessagesManager
}

func New(registry *agent.Registry, logbook *convlog.Writer, messages *conversations.MessagesManager) *Server {
	s := &Server{
		echo:     echo.New(),
		registry: registry,
		logbook:  logbook,
		messages: messages,
	}

	s.echo.Use(allowAllCORS)
	s.echo.POST("/chat", s.handleChat)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/api/history/:session", s.handleHistory)
	s.echo.DELETE("/api/history/:session", s.handleClearHistory)

	return s
}

// ServeHTTP makes the server mountable on a plain http.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	srv := http.Server{Addr: addr, Handler: s}
	logx.Info().Str("addr", addr).Msg("http server listening")
	return srv.ListenAndServe()
}

func (s *Server) handleChat(c *echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	ag, err := s.registry.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to create agent")
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	record, err := ag.Turn(ctx, req.Message, req.ChatHistory)
	if err != nil {
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("turn failed")
		return echo.NewHTTPError(statusFor(err), err.Error())
	}

	// Best-effort: a log write failure must not cost the user their reply.
	if err := s.logbook.Write(record); err != nil {
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to write conversation log")
	}

	return c.JSON(http.StatusOK, ChatResponse{
		Response:   record.ChatbotResponse,
		LogMessage: record,
	})
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(c *echo.Context) error {
	sessionID := c.Param("session")
	ctx := c.Request().Context()

	messages, err := s.messages.History(ctx, sessionID)
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	count, err := s.messages.MessageCount(ctx, sessionID)
	if err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}

	return c.JSON(http.StatusOK, HistoryResponse{
		SessionID: sessionID,
		Messages:  messages,
		Count:     count,
	})
}

func (s *Server) handleClearHistory(c *echo.Context) error {
	sessionID := c.Param("session")
	if err := s.messages.Clear(c.Request().Context(), sessionID); err != nil {
		return echo.NewHTTPError(statusFor(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// statusFor maps core error types to HTTP statuses. Anything unrecognized is
// a generic server error carrying the error's string form as detail.
func statusFor(err error) int {
	var appErr *errx.AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	var svcErr *extraction.ServiceError
	if errors.As(err, &svcErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// allowAllCORS is the permissive CORS policy of the local-development setup.
func allowAllCORS(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		h := c.Response().Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusNoContent)
		}
		return next(c)
	}
}
