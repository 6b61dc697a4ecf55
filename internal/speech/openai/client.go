package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"reelcrew/internal/speech"
)

var _ speech.Provider = (*Client)(nil)

type Client struct {
	client openai.Client
	model  string
	voice  string
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Voice      string
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

	return &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		voice:  cfg.Voice,
	}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Extension() string { return ".mp3" }

func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(c.model),
		Voice:          openai.AudioSpeechNewParamsVoice(c.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech: empty audio")
	}
	return audio, nil
}
