package translate

import (
	"context"

	"docqa/internal/llm"
)

// Completer is the chat-completion call the OpenAI provider needs.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// OpenAI translates through a chat completion. Rate limiting and retries are
// handled by the client.
type OpenAI struct {
	client Completer
}

func NewOpenAI(client Completer) *OpenAI {
	return &OpenAI{client: client}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Translate(ctx context.Context, text, source, target string) (string, error) {
	return o.client.Complete(ctx, []llm.Message{
		llm.System(translatorPrompt),
		llm.User(translationPrompt(text, source, target)),
	})
}
