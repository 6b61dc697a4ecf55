package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"reelcrew/internal/imagegen"
	openaiimage "reelcrew/internal/imagegen/openai"
	"reelcrew/internal/imagegen/stability"
	"reelcrew/internal/llm"
	"reelcrew/internal/llm/gemini"
	"reelcrew/internal/llm/groq"
	openaillm "reelcrew/internal/llm/openai"
	"reelcrew/internal/script"
	"reelcrew/internal/speech"
	"reelcrew/internal/speech/elevenlabs"
	openaitts "reelcrew/internal/speech/openai"
	"reelcrew/internal/storage"
	"reelcrew/internal/video"
	"reelcrew/pkg/config"
	"reelcrew/pkg/prompts"
)

// BuildService wires the providers selected in cfg. The returned service
// must be closed.
func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	p, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	speechProvider, err := buildSpeech(cfg)
	if err != nil {
		return nil, err
	}

	width, height, err := config.ParseResolution(cfg.Video.Resolution)
	if err != nil {
		return nil, err
	}

	imageProvider, err := buildImages(cfg, width, height)
	if err != nil {
		return nil, err
	}

	assembler := video.NewAssemblerWithOptions(video.AssemblerOptions{
		FFmpegPath:  cfg.Video.FFmpegPath,
		FFprobePath: cfg.Video.FFprobePath,
		Width:       width,
		Height:      height,
		FPS:         cfg.Video.FPS,
		Preset:      cfg.Video.Preset,
		Caption: video.CaptionStyle{
			FontFile:     cfg.Caption.FontFile,
			FontSize:     cfg.Caption.FontSize,
			FontColor:    cfg.Caption.FontColor,
			BorderColor:  cfg.Caption.BorderColor,
			BorderWidth:  cfg.Caption.BorderWidth,
			YPosition:    cfg.Caption.YPosition,
			MaxLineChars: cfg.Caption.MaxLineChars,
		},
		MusicPath:   cfg.Music.Path,
		MusicVolume: cfg.Music.Volume,
	})

	var music storage.MusicProvider = storage.LocalMusic{Path: cfg.Music.Path}
	var closers []io.Closer
	if cfg.Music.GCSBucket != "" {
		gcs, err := storage.NewGCSMusic(ctx, cfg.Music.GCSBucket, cfg.Music.GCSObject, cfg.Music.Path, cfg.GCP.CredentialsFile)
		if err != nil {
			return nil, err
		}
		music = gcs
		closers = append(closers, gcs)
	}

	return NewService(ServiceOptions{
		Config:    cfg,
		Prompts:   p,
		Writer:    script.NewWriter(llmClient, p),
		Speech:    speechProvider,
		Images:    imageProvider,
		Assembler: assembler,
		Workspace: storage.NewWorkspace(cfg.Workspace.Dir, cfg.Video.OutputName),
		Music:     music,
		Closers:   closers,
	}), nil
}

func buildLLM(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	switch cfg.LLM.Provider {
	case "groq":
		if cfg.LLM.BaseURL != "" {
			return groq.NewClient(cfg.GroqAPIKey, cfg.LLM.Model, cfg.LLM.Temperature, groq.WithBaseURL(cfg.LLM.BaseURL))
		}
		return groq.NewClient(cfg.GroqAPIKey, cfg.LLM.Model, cfg.LLM.Temperature)
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Project:     cfg.GCP.Project,
			Location:    cfg.GCP.Location,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			BaseURL:     cfg.LLM.BaseURL,
		})
	case "openai", "ollama":
		return openaillm.NewClient(openaillm.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxRetries:  cfg.HTTP.MaxRetries,
			HTTPClient:  &http.Client{Timeout: cfg.HTTP.Timeout},
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func buildSpeech(cfg *config.Config) (speech.Provider, error) {
	switch cfg.Speech.Provider {
	case "elevenlabs":
		return elevenlabs.NewClient(elevenlabs.Config{
			APIKey:       cfg.ElevenLabsAPIKey,
			VoiceID:      cfg.ElevenLabs.VoiceID,
			Model:        cfg.ElevenLabs.Model,
			OutputFormat: cfg.ElevenLabs.OutputFormat,
			MaxRetries:   cfg.HTTP.MaxRetries,
		})
	case "openai":
		return openaitts.NewClient(openaitts.Config{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAITTS.Model,
			Voice:      cfg.OpenAITTS.Voice,
			MaxRetries: cfg.HTTP.MaxRetries,
			HTTPClient: &http.Client{Timeout: cfg.HTTP.Timeout},
		})
	case "stub":
		return speech.NewStubProvider(speech.DefaultWordsPerMinute), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}
}

func buildImages(cfg *config.Config, width, height int) (imagegen.Provider, error) {
	switch cfg.Images.Provider {
	case "stability":
		return stability.NewClient(stability.Config{
			APIKey:       cfg.StabilityAPIKey,
			Endpoint:     cfg.Stability.Endpoint,
			Width:        width,
			Height:       height,
			Seed:         cfg.Stability.Seed,
			OutputFormat: cfg.Stability.OutputFormat,
			MaxRetries:   cfg.HTTP.MaxRetries,
		})
	case "openai":
		return openaiimage.NewClient(openaiimage.Config{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.Images.OpenAIModel,
			MaxRetries: cfg.HTTP.MaxRetries,
			HTTPClient: &http.Client{Timeout: cfg.HTTP.Timeout},
		})
	case "placeholder":
		return imagegen.NewPlaceholder(width, height), nil
	default:
		return nil, fmt.Errorf("unknown image provider %q", cfg.Images.Provider)
	}
}
