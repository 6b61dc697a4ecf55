package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelcrew/internal/speech"
	"reelcrew/pkg/httputil"
)

const (
	baseURL             = "https://api.elevenlabs.io/v1"
	timeout             = 120 * time.Second
	defaultModel        = "eleven_multilingual_v2"
	defaultOutputFormat = "mp3_22050_32"
)

var _ speech.Provider = (*Client)(nil)

type Client struct {
	apiKey       string
	httpClient   httputil.Doer
	voiceID      string
	model        string
	outputFormat string
	baseURL      string
}

type Config struct {
	APIKey       string
	VoiceID      string
	Model        string
	OutputFormat string
	MaxRetries   int
}

type option func(*Client)

func withBaseURL(url string) option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func withHTTPClient(client httputil.Doer) option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	if cfg.VoiceID == "" {
		return nil, fmt.Errorf("elevenlabs voice id is required")
	}
	retry := httputil.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	return newClient(cfg, withHTTPClient(httputil.NewRetryClient(&http.Client{Timeout: timeout}, retry))), nil
}

func newClient(cfg Config, opts ...option) *Client {
	c := &Client{
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		voiceID:      cfg.VoiceID,
		model:        cfg.Model,
		outputFormat: cfg.OutputFormat,
		baseURL:      baseURL,
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.outputFormat == "" {
		c.outputFormat = defaultOutputFormat
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Name() string { return "elevenlabs" }

// Extension follows the codec prefix of the output format, e.g. mp3_22050_32.
func (c *Client) Extension() string {
	codec, _, _ := strings.Cut(c.outputFormat, "_")
	return "." + codec
}

func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req, err := c.buildRequest(ctx, text)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: %s - %s", resp.Status, string(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("elevenlabs: empty audio")
	}

	return body, nil
}

func (c *Client) buildRequest(ctx context.Context, text string) (*http.Request, error) {
	payload := map[string]any{
		"text":     text,
		"model_id": c.model,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(c.voiceID), url.QueryEscape(c.outputFormat))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	return req, nil
}
