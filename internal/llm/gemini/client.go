package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"reelcrew/internal/llm"
)

var _ llm.Client = (*Client)(nil)

type Client struct {
	client      *genai.Client
	model       string
	temperature float32
}

type Config struct {
	// APIKey selects the Gemini API backend. Without it the client goes
	// through Vertex AI using Project and Location.
	APIKey      string
	Project     string
	Location    string
	Model       string
	Temperature float64
	BaseURL     string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIKey == "" {
		if cfg.Project == "" {
			return nil, fmt.Errorf("gemini needs an api key or a gcp project")
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) Complete(ctx context.Context, r llm.Request) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(r.User), c.contentConfig(r))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return firstText(resp)
}

func (c *Client) contentConfig(r llm.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: r.System}},
		},
		Temperature: &c.temperature,
	}
	if r.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", llm.ErrNoChoices
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == "" {
		return "", llm.ErrEmptyResponse
	}
	return content.Parts[0].Text, nil
}
