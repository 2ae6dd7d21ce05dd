package model

// ================ Config ================

type ConversationConfig struct {
	TTL string `envconfig:"CONVERSATION_TTL" default:"15m"`
}

type ExtractionConfig struct {
	BaseURL        string `envconfig:"NLU_BASE_URL" default:"http://localhost:8001"`
	TimeoutSeconds int    `envconfig:"NLU_TIMEOUT_SECONDS" default:"10"`
}

type ResponseModelConfig struct {
	Model          string  `envconfig:"RESPONSE_MODEL" default:"gpt-4o"`
	MaxTokens      int     `envconfig:"RESPONSE_MAX_TOKENS" default:"512"`
	Temperature    float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.6"`
	TimeoutSeconds int     `envconfig:"RESPONSE_TIMEOUT_SECONDS" default:"60"`
}

type PromptConfig struct {
	Path string `envconfig:"PROMPT_PATH" default:"prompts/generate_answer.txt"`
}

type LogConfig struct {
	Path string `envconfig:"CONVERSATION_LOG_PATH" default:"conversation.jsonl"`
}
