package groq

import (
	"context"
	"fmt"

	"github.com/conneroisu/groq-go"

	"reelcrew/internal/llm"
)

var _ llm.Client = (*Client)(nil)

type Client struct {
	client      *groq.Client
	model       groq.ChatModel
	temperature float32
}

type Option func(*options)

type options struct {
	baseURL string
}

// WithBaseURL points the client at another endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func NewClient(apiKey, model string, temperature float64, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var client *groq.Client
	var err error
	if o.baseURL != "" {
		client, err = groq.NewClient(apiKey, groq.WithBaseURL(o.baseURL))
	} else {
		client, err = groq.NewClient(apiKey)
	}
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{
		client:      client,
		model:       groq.ChatModel(model),
		temperature: float32(temperature),
	}, nil
}

func (c *Client) Model() string {
	return string(c.model)
}

func (c *Client) Complete(ctx context.Context, r llm.Request) (string, error) {
	req := groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: r.System},
			{Role: groq.RoleUser, Content: r.User},
		},
		Temperature: c.temperature,
	}

	if r.JSON {
		req.ResponseFormat = &groq.ChatResponseFormat{Type: "json_object"}
	}

	resp, err := c.client.ChatCompletion(ctx, req)
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
