package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelcrew/internal/llm"
	"reelcrew/pkg/prompts"
)

type Writer struct {
	client  llm.Client
	prompts *prompts.Prompts
}

func NewWriter(client llm.Client, p *prompts.Prompts) *Writer {
	return &Writer{client: client, prompts: p}
}

// Write asks the model for a script about topic. A malformed response is
// returned as *FormatError and is not retried.
func (w *Writer) Write(ctx context.Context, topic string) (*Script, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is empty")
	}

	user, err := w.prompts.RenderScript(prompts.ScriptParams{Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	slog.Info("Writing script...", "model", w.client.Model(), "topic", topic)
	raw, err := w.client.Complete(ctx, llm.Request{
		System: w.prompts.Script.System,
		User:   user,
		JSON:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("complete script: %w", err)
	}
	slog.Debug("LLM script raw response", "content", raw)

	s, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return s, nil
}
