package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"reelcrew/internal/job"
	"reelcrew/internal/script"
	"reelcrew/internal/storage"
	"reelcrew/internal/video"
	"reelcrew/pkg/config"
	"reelcrew/pkg/prompts"
)

type fakeWriter struct {
	calls int
	err   error
}

func (f *fakeWriter) Write(_ context.Context, topic string) (*script.Script, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &script.Script{
		Topic:    topic,
		Takeaway: "Black holes bend light itself.",
		Captions: []string{
			"Gravity so strong light cannot escape",
			"Born when giant stars collapse",
			"Time slows near the event horizon",
			"Our galaxy hides a monster: Sagittarius A*",
			"Some spin at 90% light speed",
		},
	}, nil
}

type fakeSpeech struct {
	calls  int
	failOn map[string]bool
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.calls++
	if f.failOn[text] {
		return nil, errors.New("status 500: quota exceeded")
	}
	return []byte("audio:" + text), nil
}

func (f *fakeSpeech) Extension() string { return ".mp3" }
func (f *fakeSpeech) Name() string      { return "fake-tts" }

type fakeImages struct {
	prompts []string
	failAt  int
}

func (f *fakeImages) Generate(_ context.Context, prompt string) ([]byte, error) {
	f.prompts = append(f.prompts, prompt)
	if f.failAt == len(f.prompts) {
		return nil, errors.New("status 403: content moderation")
	}
	return []byte("image"), nil
}

func (f *fakeImages) Extension() string { return ".webp" }
func (f *fakeImages) Name() string      { return "fake-images" }

type fakeAssembler struct {
	calls int
	req   video.AssembleRequest
}

func (f *fakeAssembler) Assemble(_ context.Context, req video.AssembleRequest) (*video.AssembleResult, error) {
	f.calls++
	f.req = req
	if err := os.WriteFile(req.OutputPath, []byte("video"), 0644); err != nil {
		return nil, err
	}
	return &video.AssembleResult{OutputPath: req.OutputPath, Duration: 30, Segments: make([]video.SegmentPlan, len(req.Captions))}, nil
}

type fakeMusic struct {
	calls int
}

func (f *fakeMusic) Prepare(context.Context) (string, error) {
	f.calls++
	return "", errors.New("bucket unreachable")
}

type fixture struct {
	dir       string
	writer    *fakeWriter
	speech    *fakeSpeech
	images    *fakeImages
	assembler *fakeAssembler
	music     *fakeMusic
	pipeline  *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p, err := prompts.Default()
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		dir:       t.TempDir(),
		writer:    &fakeWriter{},
		speech:    &fakeSpeech{},
		images:    &fakeImages{},
		assembler: &fakeAssembler{},
		music:     &fakeMusic{},
	}
	cfg := &config.Config{}

	f.pipeline = NewPipeline(NewService(ServiceOptions{
		Config:    cfg,
		Prompts:   p,
		Writer:    f.writer,
		Speech:    f.speech,
		Images:    f.images,
		Assembler: f.assembler,
		Workspace: storage.NewWorkspace(f.dir, "yt_shorts_video.mp4"),
		Music:     f.music,
	}))
	return f
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline.Generate(context.Background(), "  black holes ")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if result.VideoPath != filepath.Join(f.dir, "yt_shorts_video.mp4") {
		t.Errorf("VideoPath = %q", result.VideoPath)
	}
	if result.Duration != 30 {
		t.Errorf("Duration = %v, want 30", result.Duration)
	}
	if f.writer.calls != 1 || f.speech.calls != 5 || len(f.images.prompts) != 5 || f.assembler.calls != 1 {
		t.Errorf("calls: writer=%d speech=%d images=%d assembler=%d",
			f.writer.calls, f.speech.calls, len(f.images.prompts), f.assembler.calls)
	}
	if f.music.calls != 1 {
		t.Errorf("music prepared %d times, want 1", f.music.calls)
	}

	for i := 1; i <= 5; i++ {
		voice := filepath.Join(f.dir, "voiceovers", fmt.Sprintf("voiceover_%d.mp3", i))
		image := filepath.Join(f.dir, "images", fmt.Sprintf("image_%d.webp", i))
		if f.assembler.req.Voiceovers[i-1] != voice || f.assembler.req.Images[i-1] != image {
			t.Errorf("segment %d inputs = %q, %q", i, f.assembler.req.Voiceovers[i-1], f.assembler.req.Images[i-1])
		}
		if _, err := os.Stat(voice); err != nil {
			t.Errorf("voiceover %d not written: %v", i, err)
		}
	}
	if f.assembler.req.Captions[3] != "Our galaxy hides a monster: Sagittarius A*" {
		t.Errorf("caption 4 = %q", f.assembler.req.Captions[3])
	}

	if !strings.HasPrefix(f.images.prompts[0], "Abstract Art Style / Ultra High Quality. Gravity so strong") {
		t.Errorf("image prompt = %q", f.images.prompts[0])
	}

	agents := make([]string, len(result.Messages))
	for i, m := range result.Messages {
		agents[i] = m.Agent
	}
	wantAgents := []string{RoleUser, RoleScriptWriter, RoleVoiceActor, RoleGraphicDesigner, RoleDirector}
	if !slices.Equal(agents, wantAgents) {
		t.Errorf("agents = %v, want %v", agents, wantAgents)
	}
	for i, want := range []string{VoiceoversReady, ImagesReady, VideoAssemblyComplete} {
		if !strings.HasPrefix(result.Messages[i+2].Content, want) {
			t.Errorf("message %d = %q, want prefix %s", i+2, result.Messages[i+2].Content, want)
		}
	}

	if _, err := os.Stat(filepath.Join(f.dir, storage.JobFile)); err != nil {
		t.Errorf("job record not saved: %v", err)
	}
}

func TestGenerateRejectsEmptyTopic(t *testing.T) {
	f := newFixture(t)
	if _, err := f.pipeline.Generate(context.Background(), " \n"); err == nil {
		t.Fatal("Generate() should reject an empty topic")
	}
	if f.writer.calls != 0 {
		t.Error("writer called for an empty topic")
	}
}

func TestGenerateResumeMakesNoProviderCalls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.pipeline.Generate(ctx, "black holes"); err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	writes, speech, images := f.writer.calls, f.speech.calls, len(f.images.prompts)

	result, err := f.pipeline.Generate(ctx, "Black Holes")
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}

	if f.writer.calls != writes || f.speech.calls != speech || len(f.images.prompts) != images {
		t.Errorf("provider calls on resume: writer +%d, speech +%d, images +%d",
			f.writer.calls-writes, f.speech.calls-speech, len(f.images.prompts)-images)
	}
	if f.assembler.calls != 2 {
		t.Errorf("assembler calls = %d, want 2", f.assembler.calls)
	}
	for _, it := range result.Job.Items {
		if !it.Voiceover.Reused || !it.Image.Reused {
			t.Errorf("item %d not marked reused: %+v", it.Position, it)
		}
	}
}

func TestGenerateResumesOnlyMissingFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.pipeline.Generate(ctx, "black holes"); err != nil {
		t.Fatal(err)
	}
	_ = os.Remove(filepath.Join(f.dir, "voiceovers", "voiceover_2.mp3"))
	_ = os.Remove(filepath.Join(f.dir, "images", "image_5.webp"))
	f.speech.calls, f.images.prompts = 0, nil

	if _, err := f.pipeline.Generate(ctx, "black holes"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if f.speech.calls != 1 || len(f.images.prompts) != 1 {
		t.Errorf("speech calls = %d, image calls = %d, want 1 each", f.speech.calls, len(f.images.prompts))
	}
	if f.writer.calls != 1 {
		t.Errorf("writer calls = %d, want 1", f.writer.calls)
	}
}

func TestGenerateAdoptsFilesWithoutJobRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.pipeline.Generate(ctx, "black holes"); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(f.dir, "job.json")); err != nil {
		t.Fatal(err)
	}
	_ = os.Remove(filepath.Join(f.dir, "images", "image_4.webp"))
	f.writer.calls, f.speech.calls, f.images.prompts = 0, 0, nil

	result, err := f.pipeline.Generate(ctx, "black holes")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if f.writer.calls != 0 || f.speech.calls != 0 || len(f.images.prompts) != 1 {
		t.Errorf("calls: writer=%d speech=%d images=%d, want 0, 0, 1",
			f.writer.calls, f.speech.calls, len(f.images.prompts))
	}
	if !result.Job.Items[0].Voiceover.Reused {
		t.Error("existing voiceover should be reused")
	}
	if _, err := os.Stat(filepath.Join(f.dir, "job.json")); err != nil {
		t.Errorf("job record not written: %v", err)
	}
}

func TestGenerateNewTopicStartsOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.pipeline.Generate(ctx, "black holes"); err != nil {
		t.Fatal(err)
	}
	result, err := f.pipeline.Generate(ctx, "deep sea")
	if err != nil {
		t.Fatal(err)
	}

	if f.writer.calls != 2 || f.speech.calls != 10 || len(f.images.prompts) != 10 {
		t.Errorf("calls: writer=%d speech=%d images=%d", f.writer.calls, f.speech.calls, len(f.images.prompts))
	}
	if result.Job.Topic != "deep sea" {
		t.Errorf("job topic = %q", result.Job.Topic)
	}
}

func TestGenerateItemFailureStopsBeforeAssembly(t *testing.T) {
	f := newFixture(t)
	f.speech.failOn = map[string]bool{"Time slows near the event horizon": true}
	f.images.failAt = 5

	run, err := f.pipeline.Start("black holes")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := f.pipeline.WriteScript(ctx, run); err != nil {
		t.Fatal(err)
	}

	out, err := f.pipeline.ProduceVoiceovers(ctx, run)
	if err != nil {
		t.Fatalf("ProduceVoiceovers() error = %v", err)
	}
	if !strings.Contains(out, "missing for positions 3") {
		t.Errorf("voiceover summary = %q", out)
	}
	if f.speech.calls != 5 {
		t.Errorf("speech calls = %d, a failure must not stop the stage", f.speech.calls)
	}

	if _, err := f.pipeline.ProduceImages(ctx, run); err != nil {
		t.Fatalf("ProduceImages() error = %v", err)
	}

	failed := run.Job.Items[2].Voiceover
	if failed.Status != job.StatusFailed || !strings.Contains(failed.Error, "fake-tts voiceover 3") {
		t.Errorf("item 3 voiceover = %+v", failed)
	}

	_, err = f.pipeline.Assemble(ctx, run)
	var mismatch *video.CountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Assemble() error = %v, want *video.CountMismatchError", err)
	}
	if !slices.Equal(mismatch.Missing, []int{3, 5}) {
		t.Errorf("Missing = %v, want [3 5]", mismatch.Missing)
	}
	if mismatch.Voiceovers != 4 || mismatch.Images != 4 {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if f.assembler.calls != 0 {
		t.Error("assembler must not run with missing files")
	}
	if _, err := os.Stat(filepath.Join(f.dir, "yt_shorts_video.mp4")); !os.IsNotExist(err) {
		t.Error("no video should be written")
	}
}

func TestGenerateFailureKeepsTranscript(t *testing.T) {
	f := newFixture(t)
	f.images.failAt = 2

	result, err := f.pipeline.Generate(context.Background(), "black holes")
	var mismatch *video.CountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want *video.CountMismatchError", err)
	}
	if result == nil || result.Job == nil {
		t.Fatal("result should carry the job and transcript")
	}
	if result.VideoPath != "" {
		t.Errorf("VideoPath = %q, want empty", result.VideoPath)
	}
	agents := make([]string, len(result.Messages))
	for i, m := range result.Messages {
		agents[i] = m.Agent
	}
	want := []string{RoleUser, RoleScriptWriter, RoleVoiceActor, RoleGraphicDesigner}
	if !slices.Equal(agents, want) {
		t.Errorf("agents = %v, want %v", agents, want)
	}
	if got := result.Job.Items[1].Image.Status; got != job.StatusFailed {
		t.Errorf("image 2 status = %q, want failed", got)
	}
}

func TestGenerateScriptErrorAborts(t *testing.T) {
	f := newFixture(t)
	f.writer.err = &script.FormatError{Reason: "got 4 captions, want 5"}

	_, err := f.pipeline.Generate(context.Background(), "black holes")
	var formatErr *script.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error = %v, want *script.FormatError", err)
	}
	if f.speech.calls != 0 {
		t.Error("no voiceovers should be produced without a script")
	}
}

func TestProduceStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	run, _ := f.pipeline.Start("black holes")
	if _, err := f.pipeline.WriteScript(context.Background(), run); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.pipeline.ProduceVoiceovers(ctx, run); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if f.speech.calls != 0 {
		t.Errorf("speech calls = %d after cancel", f.speech.calls)
	}
}

func TestStagesRequireScript(t *testing.T) {
	f := newFixture(t)
	run, _ := f.pipeline.Start("black holes")

	if _, err := f.pipeline.ProduceImages(context.Background(), run); err == nil {
		t.Error("ProduceImages() should fail before the script stage")
	}
	if _, err := f.pipeline.Assemble(context.Background(), run); err == nil {
		t.Error("Assemble() should fail before the script stage")
	}
}

func TestUpstreamAPIError(t *testing.T) {
	cause := errors.New("status 429")
	err := &UpstreamAPIError{Kind: job.KindImage, Position: 2, Provider: "stability", Err: cause}

	if err.Error() != "stability image 2: status 429" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("UpstreamAPIError should unwrap to its cause")
	}
}

func TestBuildService(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"dry run", func(c *config.Config) {}, false},
		{"groq", func(c *config.Config) { c.LLM.Provider = "groq"; c.GroqAPIKey = "gsk" }, false},
		{"ollama without key", func(c *config.Config) {
			c.LLM.Provider = "ollama"
			c.OpenAIAPIKey = ""
			c.LLM.BaseURL = "http://localhost:11434/v1"
		}, false},
		{"gemini", func(c *config.Config) { c.LLM = config.LLMConfig{Provider: "gemini", Model: "gemini-2.0-flash"}; c.GeminiAPIKey = "g-key" }, false},
		{"gemini without credentials", func(c *config.Config) { c.LLM.Provider = "gemini" }, true},
		{"elevenlabs without key", func(c *config.Config) { c.Speech.Provider = "elevenlabs" }, true},
		{"stability without key", func(c *config.Config) { c.Images.Provider = "stability" }, true},
		{"openai without key", func(c *config.Config) { c.OpenAIAPIKey = "" }, true},
		{"bad resolution", func(c *config.Config) { c.Video.Resolution = "tall" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{OpenAIAPIKey: "sk-test"}
			cfg.LLM = config.LLMConfig{Provider: "openai", Model: "gpt-4o", Temperature: 0.7}
			cfg.Speech.Provider = "stub"
			cfg.Images.Provider = "placeholder"
			cfg.Video.Resolution = "1080x1920"
			cfg.Workspace.Dir = t.TempDir()
			tt.mutate(cfg)

			svc, err := BuildService(context.Background(), cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildService() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer func() { _ = svc.Close() }()
			if svc.Workspace().Dir() != cfg.Workspace.Dir {
				t.Errorf("workspace = %q", svc.Workspace().Dir())
			}
			if svc.Writer() == nil || svc.Speech() == nil || svc.Images() == nil || svc.Assembler() == nil {
				t.Error("service has nil components")
			}
		})
	}
}
