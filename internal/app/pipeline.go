package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"reelcrew/internal/job"
	"reelcrew/internal/video"
	"reelcrew/pkg/prompts"
)

// Agent names used in the run transcript.
const (
	RoleScriptWriter    = "script_writer"
	RoleVoiceActor      = "voice_actor"
	RoleGraphicDesigner = "graphic_designer"
	RoleDirector        = "director"
	RoleUser            = "user"
)

// Stage results announced by the producers.
const (
	VoiceoversReady       = "VOICEOVERS_READY"
	ImagesReady           = "IMAGES_READY"
	VideoAssemblyComplete = "VIDEO_ASSEMBLY_COMPLETE"
)

type Message struct {
	Agent   string `json:"agent"`
	Content string `json:"content"`
}

// Run is the shared state of one topic-to-video job while the stages
// execute.
type Run struct {
	Topic    string
	Job      *job.Job
	Messages []Message
	Result   *video.AssembleResult
}

func (r *Run) Say(agent, content string) {
	r.Messages = append(r.Messages, Message{Agent: agent, Content: content})
}

type GenerateResult struct {
	VideoPath string
	Duration  float64
	Job       *job.Job
	Messages  []Message
	Finished  time.Time
}

type Pipeline struct {
	service *Service
}

func NewPipeline(service *Service) *Pipeline {
	return &Pipeline{service: service}
}

func (pipeline *Pipeline) Service() *Service {
	return pipeline.service
}

// Start validates the topic and opens a run.
func (pipeline *Pipeline) Start(topic string) (*Run, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is empty")
	}
	run := &Run{Topic: topic}
	run.Say(RoleUser, topic)
	return run, nil
}

// Generate runs the four stages in order. Once the run has started, the
// result is returned even on error so the transcript and job survive.
func (pipeline *Pipeline) Generate(ctx context.Context, topic string) (*GenerateResult, error) {
	run, err := pipeline.Start(topic)
	if err != nil {
		return nil, err
	}

	stages := []struct {
		agent string
		fn    func(context.Context, *Run) (string, error)
	}{
		{RoleScriptWriter, pipeline.WriteScript},
		{RoleVoiceActor, pipeline.ProduceVoiceovers},
		{RoleGraphicDesigner, pipeline.ProduceImages},
		{RoleDirector, pipeline.Assemble},
	}
	for _, stage := range stages {
		out, err := stage.fn(ctx, run)
		if err != nil {
			return pipeline.Finish(run), err
		}
		run.Say(stage.agent, out)
	}
	return pipeline.Finish(run), nil
}

func (pipeline *Pipeline) Finish(run *Run) *GenerateResult {
	result := &GenerateResult{Job: run.Job, Messages: run.Messages, Finished: time.Now()}
	if run.Result != nil {
		result.VideoPath = run.Result.OutputPath
		result.Duration = run.Result.Duration
	}
	return result
}

// WriteScript produces the script and plans the job. A job already in the
// workspace for the same topic is resumed with its saved script; a job for
// a different topic is cleared first. A workspace with a script but no job
// record is adopted when the script is for the same topic.
func (pipeline *Pipeline) WriteScript(ctx context.Context, run *Run) (string, error) {
	ws := pipeline.service.Workspace()
	layout := ws.Layout(pipeline.service.Speech().Extension(), pipeline.service.Images().Extension())

	if j, ok := pipeline.resumable(run.Topic); ok {
		s, err := ws.LoadScript()
		if err == nil {
			j.Plan(s, layout)
			found, err := j.Reconcile()
			if err != nil {
				return "", err
			}
			slog.Info("Resuming job", "id", j.ID, "reused", found)
			run.Job = j
			if err := ws.SaveJob(j); err != nil {
				return "", err
			}
			return pipeline.scriptMessage(run)
		}
		slog.Warn("Saved script unusable, writing a new one", "error", err)
	}

	if err := ws.Clear(); err != nil {
		return "", fmt.Errorf("clear workspace: %w", err)
	}
	if err := ws.EnsureDirectories(); err != nil {
		return "", err
	}

	s, err := pipeline.service.Writer().Write(ctx, run.Topic)
	if err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	if err := ws.SaveScript(s); err != nil {
		return "", err
	}

	j := job.New(run.Topic)
	j.Plan(s, layout)
	if _, err := j.Reconcile(); err != nil {
		return "", err
	}
	run.Job = j
	if err := ws.SaveJob(j); err != nil {
		return "", err
	}
	slog.Info("Script ready", "id", j.ID, "takeaway", s.Takeaway)
	return pipeline.scriptMessage(run)
}

func (pipeline *Pipeline) resumable(topic string) (*job.Job, bool) {
	ws := pipeline.service.Workspace()
	j, err := ws.LoadJob()
	if errors.Is(err, fs.ErrNotExist) {
		s, err := ws.LoadScript()
		if err != nil || !sameTopic(s.Topic, topic) {
			return nil, false
		}
		slog.Info("Adopting workspace without a job record", "topic", topic)
		return job.New(topic), true
	}
	if err != nil {
		slog.Warn("Ignoring unreadable job record", "error", err)
		return nil, false
	}
	return j, sameTopic(j.Topic, topic)
}

func sameTopic(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (pipeline *Pipeline) scriptMessage(run *Run) (string, error) {
	data, err := run.Job.Script.JSON()
	if err != nil {
		return "", fmt.Errorf("encode script: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ProduceVoiceovers synthesizes every caption that has no voiceover yet.
func (pipeline *Pipeline) ProduceVoiceovers(ctx context.Context, run *Run) (string, error) {
	provider := pipeline.service.Speech()
	return pipeline.produce(ctx, run, job.KindVoiceover, provider.Name(), VoiceoversReady,
		func(ctx context.Context, it job.Item) ([]byte, error) {
			return provider.Synthesize(ctx, it.Caption)
		})
}

// ProduceImages generates a still for every caption that has no image yet.
func (pipeline *Pipeline) ProduceImages(ctx context.Context, run *Run) (string, error) {
	provider := pipeline.service.Images()
	topic := run.Topic
	if run.Job != nil && run.Job.Script != nil && run.Job.Script.Topic != "" {
		topic = run.Job.Script.Topic
	}

	return pipeline.produce(ctx, run, job.KindImage, provider.Name(), ImagesReady,
		func(ctx context.Context, it job.Item) ([]byte, error) {
			prompt, err := pipeline.service.Prompts().RenderImage(prompts.ImageParams{
				Caption: it.Caption,
				Topic:   topic,
			})
			if err != nil {
				return nil, fmt.Errorf("render image prompt: %w", err)
			}
			slog.Debug("Image prompt", "position", it.Position, "prompt", prompt)
			return provider.Generate(ctx, prompt)
		})
}

type producer func(ctx context.Context, it job.Item) ([]byte, error)

// produce walks the pending items one at a time. A failed provider call is
// recorded on the item and does not stop the stage; a cancelled context
// does.
func (pipeline *Pipeline) produce(ctx context.Context, run *Run, kind job.Kind, provider, ready string, fn producer) (string, error) {
	if run.Job == nil {
		return "", errors.New("no script: run the script stage first")
	}
	ws := pipeline.service.Workspace()
	pending := run.Job.Pending(kind)
	total := len(run.Job.Items)

	if skipped := total - len(pending); skipped > 0 {
		slog.Info("Skipping existing files", "kind", kind, "count", skipped)
	}

	for _, it := range pending {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		slog.Info("Generating "+string(kind), "index", it.Position, "total", total, "provider", provider)

		data, err := fn(ctx, it)
		if err == nil && len(data) == 0 {
			err = errors.New("empty response")
		}
		if err == nil {
			err = ws.WriteArtifact(it.Artifact(kind).Path, data)
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			upstream := &UpstreamAPIError{Kind: kind, Position: it.Position, Provider: provider, Err: err}
			slog.Warn("Generation failed", "kind", kind, "index", it.Position, "error", upstream)
			run.Job.MarkFailed(kind, it.Position, upstream)
			continue
		}
		run.Job.MarkDone(kind, it.Position)
	}

	if err := ws.SaveJob(run.Job); err != nil {
		return "", err
	}

	missing := run.Job.Missing(kind)
	if len(missing) > 0 {
		return fmt.Sprintf("%s files missing for positions %s", kind, joinPositions(missing)), nil
	}
	return fmt.Sprintf("%s: %d %s files", ready, total, kind), nil
}

// Assemble renders the video once every caption has both artifacts.
func (pipeline *Pipeline) Assemble(ctx context.Context, run *Run) (string, error) {
	if run.Job == nil {
		return "", errors.New("no script: run the script stage first")
	}
	j := run.Job

	if !j.Complete() {
		voiceovers := j.Paths(job.KindVoiceover)
		images := j.Paths(job.KindImage)
		missing := append(j.Missing(job.KindVoiceover), j.Missing(job.KindImage)...)
		slices.Sort(missing)
		return "", fmt.Errorf("assemble video: %w", &video.CountMismatchError{
			Captions:   len(j.Items),
			Voiceovers: len(voiceovers),
			Images:     len(images),
			Missing:    slices.Compact(missing),
		})
	}

	if music := pipeline.service.Music(); music != nil {
		if _, err := music.Prepare(ctx); err != nil {
			slog.Warn("Background music unavailable, continuing without", "error", err)
		}
	}

	slog.Info("Assembling video...", "segments", len(j.Items))
	result, err := pipeline.service.Assembler().Assemble(ctx, video.AssembleRequest{
		Captions:   j.Captions(),
		Images:     j.Paths(job.KindImage),
		Voiceovers: j.Paths(job.KindVoiceover),
		OutputPath: pipeline.service.Workspace().OutputPath(),
	})
	if err != nil {
		return "", fmt.Errorf("assemble video: %w", err)
	}
	run.Result = result

	slog.Info("Video saved", "path", result.OutputPath, "duration", fmt.Sprintf("%.1fs", result.Duration))
	return fmt.Sprintf("%s: %s (%.1fs)", VideoAssemblyComplete, result.OutputPath, result.Duration), nil
}

func joinPositions(positions []int) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}
