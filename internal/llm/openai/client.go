// Package openai talks to OpenAI-compatible chat completion endpoints. The
// same client serves a local Ollama server through its /v1 API.
package openai

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"reelcrew/internal/llm"
)

var _ llm.Client = (*Client)(nil)

// Ollama ignores the key but the SDK refuses to send a request without one.
const ollamaAPIKey = "placeholder"

type Client struct {
	client      openai.Client
	model       string
	temperature float64
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxRetries  int
	HTTPClient  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai api key is required")
		}
		apiKey = ollamaAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, r llm.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(r.System),
			openai.UserMessage(r.User),
		},
		Temperature: openai.Float(c.temperature),
	}
	if r.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.ErrNoChoices
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}
