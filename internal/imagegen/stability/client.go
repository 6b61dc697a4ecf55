package stability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"reelcrew/internal/imagegen"
	"reelcrew/pkg/httputil"
)

const (
	defaultEndpoint = "https://api.stability.ai/v2beta/stable-image/generate/core"
	timeout         = 120 * time.Second
)

var _ imagegen.Provider = (*Client)(nil)

type Client struct {
	apiKey       string
	endpoint     string
	width        int
	height       int
	seed         int
	outputFormat string
	httpClient   httputil.Doer
}

type Config struct {
	APIKey       string
	Endpoint     string
	Width        int
	Height       int
	Seed         int
	OutputFormat string
	MaxRetries   int
}

type option func(*Client)

func withHTTPClient(client httputil.Doer) option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stability api key is required")
	}
	retry := httputil.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	return newClient(cfg, withHTTPClient(httputil.NewRetryClient(&http.Client{Timeout: timeout}, retry))), nil
}

func newClient(cfg Config, opts ...option) *Client {
	c := &Client{
		apiKey:       cfg.APIKey,
		endpoint:     cfg.Endpoint,
		width:        cfg.Width,
		height:       cfg.Height,
		seed:         cfg.Seed,
		outputFormat: cfg.OutputFormat,
		httpClient:   &http.Client{Timeout: timeout},
	}
	if c.endpoint == "" {
		c.endpoint = defaultEndpoint
	}
	if c.outputFormat == "" {
		c.outputFormat = "webp"
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return "stability" }

func (c *Client) Extension() string { return "." + c.outputFormat }

func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, error) {
	body, contentType, err := c.buildForm(prompt)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stability: %s - %s", resp.Status, string(data))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("stability: empty image")
	}
	return data, nil
}

func (c *Client) buildForm(prompt string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"prompt", prompt},
		{"output_format", c.outputFormat},
		{"height", strconv.Itoa(c.height)},
		{"width", strconv.Itoa(c.width)},
		{"seed", strconv.Itoa(c.seed)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
