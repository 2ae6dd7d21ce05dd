package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/potatobot-core/server/internal/agent/model"
	logx "github.com/potatobot-core/server/pkg/logger"
)

// Entity is one extraction result from the NER collaborator. EntityClass is
// expected to be a subset of the agent's slot-id schema.
type Entity struct {
	EntityClass  string `json:"entity_class"`
	SurfaceValue string `json:"surface_value"`
}

// Kind classifies extraction service failures so callers can tell a network
// problem from a malformed response.
type Kind int

const (
	// KindTransport covers connection, timeout and cancellation failures.
	KindTransport Kind = iota
	// KindStatus covers non-2xx responses from the service.
	KindStatus
	// KindDecode covers responses whose body is not the expected shape.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// ServiceError wraps a failure of the NER collaborator.
type ServiceError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("extraction service: unexpected status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("extraction service: %s failure: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

type nerRequest struct {
	UserMessage string   `json:"user_message"`
	ChatHistory []string `json:"chat_history"`
}

type nerResponse struct {
	NERResults []Entity `json:"ner_results"`
}

// Client calls the external NER service over HTTP with a bounded timeout.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(cfg model.ExtractionConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpc: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Extract sends the current user message and the prior turn history to the
// NER endpoint and returns the extracted entities. A nil history is sent as
// an empty array.
func (c *Client) Extract(ctx context.Context, userMessage string, chatHistory []string) ([]Entity, error) {
	if chatHistory == nil {
		chatHistory = []string{}
	}

	body, err := json.Marshal(nerRequest{UserMessage: userMessage, ChatHistory: chatHistory})
	if err != nil {
		return nil, fmt.Errorf("marshal ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ner", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		logx.Error().Err(err).Str("base_url", c.baseURL).Msg("extraction request failed")
		return nil, &ServiceError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logx.Error().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("extraction service returned error status")
		return nil, &ServiceError{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("body %q", string(snippet)),
		}
	}

	var out nerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logx.Error().Err(err).Msg("extraction response is not valid JSON")
		return nil, &ServiceError{Kind: KindDecode, Err: err}
	}
	if out.NERResults == nil {
		return nil, &ServiceError{Kind: KindDecode, Err: fmt.Errorf("response missing ner_results")}
	}

	logx.Debug().Int("entities", len(out.NERResults)).Msg("extraction completed")
	return out.NERResults, nil
}
