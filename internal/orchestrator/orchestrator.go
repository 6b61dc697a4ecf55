// Package orchestrator drives the pipeline stages either as a round robin
// of role agents or as a crew of dependent tasks. Both styles produce the
// same artifacts and transcript.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"reelcrew/internal/app"
	"reelcrew/pkg/prompts"
)

const (
	ModeRoundRobin = "roundrobin"
	ModeCrew       = "crew"
)

// Stages is the part of the pipeline the orchestrators call.
type Stages interface {
	Start(topic string) (*app.Run, error)
	WriteScript(ctx context.Context, run *app.Run) (string, error)
	ProduceVoiceovers(ctx context.Context, run *app.Run) (string, error)
	ProduceImages(ctx context.Context, run *app.Run) (string, error)
	Assemble(ctx context.Context, run *app.Run) (string, error)
	Finish(run *app.Run) *app.GenerateResult
}

var _ Stages = (*app.Pipeline)(nil)

// ErrNoVideo means every stage ran but no video was assembled.
var ErrNoVideo = errors.New("run ended without a video")

// Orchestrator runs a topic through the stages. After the run has started
// the result is returned with any error, carrying the transcript so far.
type Orchestrator interface {
	Run(ctx context.Context, topic string) (*app.GenerateResult, error)
	Name() string
}

type step func(ctx context.Context, run *app.Run) (string, error)

func finish(stages Stages, run *app.Run) (*app.GenerateResult, error) {
	result := stages.Finish(run)
	if run.Result == nil {
		return result, ErrNoVideo
	}
	return result, nil
}

func New(mode string, stages Stages, p *prompts.Prompts, maxTurns int) (Orchestrator, error) {
	switch mode {
	case ModeRoundRobin, "":
		return NewRoundRobin(stages, p, maxTurns), nil
	case ModeCrew:
		crew, err := NewCrew(stages, p)
		if err != nil {
			return nil, err
		}
		return crew, nil
	default:
		return nil, fmt.Errorf("unknown orchestrator mode %q", mode)
	}
}
