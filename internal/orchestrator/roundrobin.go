package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reelcrew/internal/app"
	"reelcrew/pkg/prompts"
)

// ErrNoTermination means the turn budget ran out before the director
// announced the stop keyword.
var ErrNoTermination = errors.New("turn limit reached without termination")

type Agent struct {
	Name          string
	SystemMessage string
	act           step
}

// RoundRobin lets the agents speak in a fixed order, one turn each, until
// the director announces the stop keyword or maxTurns turns have been
// taken. Other agents may quote the keyword, for example in a topic,
// without ending the run.
type RoundRobin struct {
	stages      Stages
	agents      []Agent
	maxTurns    int
	stopKeyword string
}

func NewRoundRobin(stages Stages, p *prompts.Prompts, maxTurns int) *RoundRobin {
	rr := &RoundRobin{
		stages:      stages,
		maxTurns:    maxTurns,
		stopKeyword: p.StopKeyword,
	}
	if rr.maxTurns <= 0 {
		rr.maxTurns = 4
	}
	rr.agents = []Agent{
		{Name: app.RoleScriptWriter, SystemMessage: p.Role(app.RoleScriptWriter), act: stages.WriteScript},
		{Name: app.RoleVoiceActor, SystemMessage: p.Role(app.RoleVoiceActor), act: stages.ProduceVoiceovers},
		{Name: app.RoleGraphicDesigner, SystemMessage: p.Role(app.RoleGraphicDesigner), act: stages.ProduceImages},
		{Name: app.RoleDirector, SystemMessage: p.Role(app.RoleDirector), act: rr.direct},
	}
	return rr
}

func (rr *RoundRobin) Name() string { return ModeRoundRobin }

func (rr *RoundRobin) Agents() []Agent {
	return rr.agents
}

func (rr *RoundRobin) Run(ctx context.Context, topic string) (*app.GenerateResult, error) {
	run, err := rr.stages.Start(topic)
	if err != nil {
		return nil, err
	}

	for turn := 0; turn < rr.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return rr.stages.Finish(run), err
		}
		agent := rr.agents[turn%len(rr.agents)]
		slog.Debug("Agent turn", "turn", turn+1, "agent", agent.Name)

		out, err := agent.act(ctx, run)
		if err != nil {
			return rr.stages.Finish(run), fmt.Errorf("%s: %w", agent.Name, err)
		}
		run.Say(agent.Name, out)

		if agent.Name == app.RoleDirector && strings.Contains(out, rr.stopKeyword) {
			slog.Info("Conversation terminated", "agent", agent.Name, "turns", turn+1)
			return finish(rr.stages, run)
		}
	}
	return rr.stages.Finish(run), fmt.Errorf("%w: %d turns", ErrNoTermination, rr.maxTurns)
}

// direct assembles the video and closes the conversation.
func (rr *RoundRobin) direct(ctx context.Context, run *app.Run) (string, error) {
	out, err := rr.stages.Assemble(ctx, run)
	if err != nil {
		return "", err
	}
	return out + "\n" + rr.stopKeyword, nil
}
