package enrich

import (
	"context"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Enricher is the free-text enrichment backend: one blocking call, no
// streaming. Implementations are treated as fallible and possibly slow;
// the normalizer applies its own fallback on any error.
type Enricher interface {
	Enrich(ctx context.Context, prompt string) (string, error)
}

// OllamaEnricher calls a local Ollama model through langchaingo.
type OllamaEnricher struct {
	llm     *ollama.LLM
	timeout time.Duration
}

// NewOllamaEnricher connects to an Ollama server. serverURL may be empty
// for the default localhost endpoint.
func NewOllamaEnricher(serverURL, modelName string, timeout time.Duration) (*OllamaEnricher, error) {
	opts := []ollama.Option{ollama.WithModel(modelName)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: ollama init")
	}
	return &OllamaEnricher{llm: llm, timeout: timeout}, nil
}

func (e *OllamaEnricher) Enrich(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, e.llm, prompt)
	if err != nil {
		return "", eris.Wrap(err, "enrich: ollama generate")
	}
	return out, nil
}

// AnthropicEnricher calls the Anthropic Messages API.
type AnthropicEnricher struct {
	client    sdk.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicEnricher creates an enricher backed by the official SDK.
func NewAnthropicEnricher(apiKey, modelName string, timeout time.Duration) *AnthropicEnricher {
	return &AnthropicEnricher{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     modelName,
		maxTokens: 1024,
		timeout:   timeout,
	}
}

func (e *AnthropicEnricher) Enrich(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	msg, err := e.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(e.model),
		MaxTokens: e.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "enrich: anthropic create message")
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", eris.New("enrich: anthropic response had no text content")
}
