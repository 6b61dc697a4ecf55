package llm

import (
	"context"
	"errors"
)

var (
	ErrNoChoices     = errors.New("no response")
	ErrEmptyResponse = errors.New("empty response")
)

type Request struct {
	System string
	User   string
	// JSON asks the provider for a JSON object response when it supports it.
	JSON bool
}

// Client is a chat completion backend.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}
