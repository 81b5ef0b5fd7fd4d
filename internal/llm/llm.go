// Package llm is the text-completion collaborator used for generating study
// resources and improvement tips.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	openai "github.com/sashabaranov/go-openai"
)

// ErrDisabled is returned when no provider is configured.
var ErrDisabled = errors.New("text generation is not configured")

// Request is one completion call.
type Request struct {
	System      string
	User        string
	JSON        bool
	Temperature float64
}

// Completer turns a prompt into text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Pinger is implemented by completers that can check their endpoint at startup.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// NewCompleter builds the completer for a provider name.
func NewCompleter(provider, baseURL, apiKey, modelName string) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI:
		return NewOpenAI(baseURL, apiKey, modelName), nil
	case ProviderAnthropic:
		return NewAnthropic(baseURL, apiKey, modelName), nil
	case ProviderNone, "":
		return Disabled{}, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", provider)
}

// Disabled is a Completer that always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	api   *openai.Client
	model string
}

// NewOpenAI creates an OpenAI-compatible client. An empty baseURL uses the
// public API.
func NewOpenAI(baseURL, apiKey, modelName string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping checks that the endpoint answers.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: float32(req.Temperature),
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "provider", ProviderOpenAI, "chars", len(raw),
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return raw, nil
}

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client   *anthropic.Client
	model    string
	attempts int
}

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// NewAnthropic creates an Anthropic client. An empty baseURL uses the public API.
func NewAnthropic(baseURL, apiKey, modelName string) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, model: modelName, attempts: 2}
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	if req.JSON {
		system += "\n\nReply with the JSON object only, without any surrounding prose."
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	for _, block := range message.Content {
		if block.Type == "text" {
			slog.Debug("LLM response", "provider", ProviderAnthropic, "chars", len(block.Text),
				"input_tokens", message.Usage.InputTokens, "output_tokens", message.Usage.OutputTokens)
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

func (c *AnthropicClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			slog.Warn("retrying Anthropic API call", "wait", wait, "attempt", attempt+1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		slog.Warn("Anthropic API call failed", "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}
