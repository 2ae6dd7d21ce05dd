package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewTurnCallbacks aggregates the prompt and model observer handlers into one
// callbacks.Handler attached to every turn invocation. The handlers are pure
// operational logging; audit data travels synchronously through the turn
// result instead.
func NewTurnCallbacks() einocb.Handler {
	promptHandler := newPromptHandler()
	modelHandler := newModelHandler()

	return callbackHelper.NewHandlerHelper().
		ChatModel(modelHandler).
		Prompt(promptHandler).
		Handler()
}
