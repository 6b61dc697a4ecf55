package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"reelcrew/internal/imagegen"
)

var _ imagegen.Provider = (*Client)(nil)

type Client struct {
	client openai.Client
	model  string
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Extension() string { return ".png" }

// Generate requests a portrait image; the assembler scales it to the
// output frame.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(c.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1792,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai image: empty response")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
