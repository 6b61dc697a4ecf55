package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelcrew/internal/app"
	"reelcrew/pkg/prompts"
)

// Task is one unit of crew work. Context lists the tasks whose output it
// needs; they always run first.
type Task struct {
	ID             string
	Description    string
	ExpectedOutput string
	Agent          string
	Context        []string
	execute        step
}

type TaskResult struct {
	TaskID   string
	Output   string
	Met      bool
	Duration time.Duration
}

// Crew runs its tasks sequentially in dependency order.
type Crew struct {
	stages Stages
	order  []Task
}

func NewCrew(stages Stages, p *prompts.Prompts) (*Crew, error) {
	return newCrew(stages, []Task{
		{
			ID:          "script",
			Description: p.Role(app.RoleScriptWriter),
			Agent:       app.RoleScriptWriter,
			execute:     stages.WriteScript,
		},
		{
			ID:             "voiceover",
			Description:    p.Role(app.RoleVoiceActor),
			ExpectedOutput: app.VoiceoversReady,
			Agent:          app.RoleVoiceActor,
			Context:        []string{"script"},
			execute:        stages.ProduceVoiceovers,
		},
		{
			ID:             "images",
			Description:    p.Role(app.RoleGraphicDesigner),
			ExpectedOutput: app.ImagesReady,
			Agent:          app.RoleGraphicDesigner,
			Context:        []string{"script"},
			execute:        stages.ProduceImages,
		},
		{
			ID:             "video",
			Description:    p.Role(app.RoleDirector),
			ExpectedOutput: app.VideoAssemblyComplete,
			Agent:          app.RoleDirector,
			Context:        []string{"script", "voiceover", "images"},
			execute:        stages.Assemble,
		},
	})
}

func newCrew(stages Stages, tasks []Task) (*Crew, error) {
	order, err := sequence(tasks)
	if err != nil {
		return nil, err
	}
	return &Crew{stages: stages, order: order}, nil
}

func (c *Crew) Name() string { return ModeCrew }

// Order returns the task IDs in execution order.
func (c *Crew) Order() []string {
	ids := make([]string, len(c.order))
	for i, t := range c.order {
		ids[i] = t.ID
	}
	return ids
}

func (c *Crew) Run(ctx context.Context, topic string) (*app.GenerateResult, error) {
	run, err := c.stages.Start(topic)
	if err != nil {
		return nil, err
	}

	for _, task := range c.order {
		if err := ctx.Err(); err != nil {
			return c.stages.Finish(run), err
		}
		res, err := c.execute(ctx, run, task)
		if err != nil {
			return c.stages.Finish(run), err
		}
		if !res.Met {
			slog.Warn("Task output differs from expected", "task", task.ID, "expected", task.ExpectedOutput)
		}
	}
	return finish(c.stages, run)
}

func (c *Crew) execute(ctx context.Context, run *app.Run, task Task) (*TaskResult, error) {
	slog.Info("Starting task", "task", task.ID, "agent", task.Agent)
	start := time.Now()

	out, err := task.execute(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}
	run.Say(task.Agent, out)

	res := &TaskResult{
		TaskID:   task.ID,
		Output:   out,
		Met:      task.ExpectedOutput == "" || strings.HasPrefix(out, task.ExpectedOutput),
		Duration: time.Since(start),
	}
	slog.Debug("Task finished", "task", task.ID, "duration", res.Duration)
	return res, nil
}

// sequence orders tasks so every task follows its context tasks. Ties keep
// declaration order.
func sequence(tasks []Task) ([]Task, error) {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("task %d has no id", i+1)
		}
		if _, dup := index[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task %q", t.ID)
		}
		index[t.ID] = i
	}

	pending := make([]int, len(tasks))
	for i, t := range tasks {
		for _, dep := range t.Context {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("task %q depends on unknown task %q", t.ID, dep)
			}
			pending[i]++
		}
	}

	done := make([]bool, len(tasks))
	order := make([]Task, 0, len(tasks))
	for len(order) < len(tasks) {
		next := -1
		for i := range tasks {
			if !done[i] && pending[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("task dependencies form a cycle")
		}
		done[next] = true
		order = append(order, tasks[next])
		for i, t := range tasks {
			for _, dep := range t.Context {
				if dep == tasks[next].ID {
					pending[i]--
				}
			}
		}
	}
	return order, nil
}
