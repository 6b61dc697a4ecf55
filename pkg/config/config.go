package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath      = "config.yaml"
	defaultLLMProvider     = "openai"
	defaultOpenAIModel     = "gpt-4o"
	defaultOllamaModel     = "llama3.2:latest"
	defaultOllamaBaseURL   = "http://localhost:11434/v1"
	defaultGroqModel       = "llama-3.3-70b-versatile"
	defaultGeminiModel     = "gemini-2.0-flash"
	defaultGeminiLocation  = "us-central1"
	defaultTemperature     = 0.7
	defaultSpeechProvider  = "elevenlabs"
	defaultElevenLabsVoice = "onwK4e9ZLuTAKqWW03F9"
	defaultElevenLabsModel = "eleven_multilingual_v2"
	defaultElevenLabsFmt   = "mp3_22050_32"
	defaultOpenAITTSModel  = "tts-1"
	defaultOpenAITTSVoice  = "onyx"
	defaultImageProvider   = "stability"
	defaultStabilityURL    = "https://api.stability.ai/v2beta/stable-image/generate/core"
	defaultStabilitySeed   = 42
	defaultStabilityFormat = "webp"
	defaultOpenAIImage     = "dall-e-3"
	defaultResolution      = "1080x1920"
	defaultFPS             = 30
	defaultOutputName      = "yt_shorts_video.mp4"
	defaultPreset          = "fast"
	defaultFFmpegPath      = "ffmpeg"
	defaultFFprobePath     = "ffprobe"
	defaultFontSize        = 72
	defaultFontColor       = "white"
	defaultBorderColor     = "black"
	defaultBorderWidth     = 4
	defaultCaptionY        = 0.72
	defaultMaxLineChars    = 22
	defaultMusicPath       = "./assets/music/background.mp3"
	defaultMusicVolume     = 0.15
	defaultOrchestrator    = "roundrobin"
	defaultMaxTurns        = 4
	defaultWorkspaceDir    = "."
	defaultServerAddr      = ":8080"
	defaultHTTPTimeout     = 120 * time.Second
)

type Config struct {
	OpenAIAPIKey     string `yaml:"-"`
	GroqAPIKey       string `yaml:"-"`
	ElevenLabsAPIKey string `yaml:"-"`
	StabilityAPIKey  string `yaml:"-"`
	GeminiAPIKey     string `yaml:"-"`

	LLM          LLMConfig          `yaml:"llm"`
	Speech       SpeechConfig       `yaml:"speech"`
	ElevenLabs   ElevenLabsConfig   `yaml:"elevenlabs"`
	OpenAITTS    OpenAITTSConfig    `yaml:"openai_tts"`
	Images       ImagesConfig       `yaml:"images"`
	Stability    StabilityConfig    `yaml:"stability"`
	Video        VideoConfig        `yaml:"video"`
	Caption      CaptionConfig      `yaml:"caption"`
	Music        MusicConfig        `yaml:"music"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Workspace    WorkspaceConfig    `yaml:"workspace"`
	Server       ServerConfig       `yaml:"server"`
	HTTP         HTTPConfig         `yaml:"http"`
	GCP          GCPConfig          `yaml:"gcp"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "ollama", "groq" or "gemini"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

type SpeechConfig struct {
	Provider string `yaml:"provider"` // "elevenlabs", "openai" or "stub"
}

type ElevenLabsConfig struct {
	VoiceID      string `yaml:"voice_id"`
	Model        string `yaml:"model"`
	OutputFormat string `yaml:"output_format"`
}

type OpenAITTSConfig struct {
	Model string `yaml:"model"`
	Voice string `yaml:"voice"`
}

type ImagesConfig struct {
	Provider    string `yaml:"provider"` // "stability", "openai" or "placeholder"
	OpenAIModel string `yaml:"openai_model"`
}

type StabilityConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Seed         int    `yaml:"seed"`
	OutputFormat string `yaml:"output_format"`
}

type VideoConfig struct {
	Resolution  string `yaml:"resolution"`
	FPS         int    `yaml:"fps"`
	OutputName  string `yaml:"output_name"`
	Preset      string `yaml:"preset"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

type CaptionConfig struct {
	FontFile     string  `yaml:"font_file"`
	FontSize     int     `yaml:"font_size"`
	FontColor    string  `yaml:"font_color"`
	BorderColor  string  `yaml:"border_color"`
	BorderWidth  int     `yaml:"border_width"`
	YPosition    float64 `yaml:"y_position"`
	MaxLineChars int     `yaml:"max_line_chars"`
}

type MusicConfig struct {
	Path      string  `yaml:"path"`
	Volume    float64 `yaml:"volume"`
	GCSBucket string  `yaml:"gcs_bucket"`
	GCSObject string  `yaml:"gcs_object"`
}

type OrchestratorConfig struct {
	Mode     string `yaml:"mode"` // "roundrobin" or "crew"
	MaxTurns int    `yaml:"max_turns"`
}

type WorkspaceConfig struct {
	Dir string `yaml:"dir"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

type GCPConfig struct {
	Project         string `yaml:"project"`
	Location        string `yaml:"location"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads .env and config.yaml from the working directory. A missing
// config.yaml is not an error; every field has a default.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, defaultConfigPath, false)
}

// LoadFrom is like Load but requires the file at path to exist.
func LoadFrom(ctx context.Context, path string) (*Config, error) {
	return load(ctx, path, true)
}

func load(ctx context.Context, path string, required bool) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		GroqAPIKey:       os.Getenv("GROQ_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		StabilityAPIKey:  os.Getenv("STABILITY_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
	}

	if err := loadYAMLConfig(cfg, path, required); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.GCP.Project != "" && cfg.missingSecrets() {
		src, err := NewSecretManagerSource(ctx, cfg.GCP.Project, cfg.GCP.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("connect secret manager: %w", err)
		}
		defer func() { _ = src.Close() }()
		if err := resolveSecrets(ctx, cfg, src); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func loadYAMLConfig(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		slog.Debug("No config file found, using defaults", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" && cfg.GCP.Project == "" {
		cfg.GCP.Project = v
	}
	if v := os.Getenv("REELCREW_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("REELCREW_WORKSPACE"); v != "" {
		cfg.Workspace.Dir = v
	}
}

func applyDefaults(cfg *Config) {
	applyLLMDefaults(cfg)
	applySpeechDefaults(cfg)
	applyImageDefaults(cfg)
	applyVideoDefaults(cfg)
	applyCaptionDefaults(cfg)
	applyMusicDefaults(cfg)
	applyOrchestratorDefaults(cfg)
	applyRuntimeDefaults(cfg)
}

func applyLLMDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaultLLMProvider
	}
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "ollama":
			cfg.LLM.Model = defaultOllamaModel
		case "groq":
			cfg.LLM.Model = defaultGroqModel
		case "gemini":
			cfg.LLM.Model = defaultGeminiModel
		default:
			cfg.LLM.Model = defaultOpenAIModel
		}
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = defaultOllamaBaseURL
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = defaultTemperature
	}
}

func applySpeechDefaults(cfg *Config) {
	if cfg.Speech.Provider == "" {
		cfg.Speech.Provider = defaultSpeechProvider
	}
	if cfg.ElevenLabs.VoiceID == "" {
		cfg.ElevenLabs.VoiceID = defaultElevenLabsVoice
	}
	if cfg.ElevenLabs.Model == "" {
		cfg.ElevenLabs.Model = defaultElevenLabsModel
	}
	if cfg.ElevenLabs.OutputFormat == "" {
		cfg.ElevenLabs.OutputFormat = defaultElevenLabsFmt
	}
	if cfg.OpenAITTS.Model == "" {
		cfg.OpenAITTS.Model = defaultOpenAITTSModel
	}
	if cfg.OpenAITTS.Voice == "" {
		cfg.OpenAITTS.Voice = defaultOpenAITTSVoice
	}
}

func applyImageDefaults(cfg *Config) {
	if cfg.Images.Provider == "" {
		cfg.Images.Provider = defaultImageProvider
	}
	if cfg.Images.OpenAIModel == "" {
		cfg.Images.OpenAIModel = defaultOpenAIImage
	}
	if cfg.Stability.Endpoint == "" {
		cfg.Stability.Endpoint = defaultStabilityURL
	}
	if cfg.Stability.Seed == 0 {
		cfg.Stability.Seed = defaultStabilitySeed
	}
	if cfg.Stability.OutputFormat == "" {
		cfg.Stability.OutputFormat = defaultStabilityFormat
	}
}

func applyVideoDefaults(cfg *Config) {
	if cfg.Video.Resolution == "" {
		cfg.Video.Resolution = defaultResolution
	}
	if cfg.Video.FPS == 0 {
		cfg.Video.FPS = defaultFPS
	}
	if cfg.Video.OutputName == "" {
		cfg.Video.OutputName = defaultOutputName
	}
	if cfg.Video.Preset == "" {
		cfg.Video.Preset = defaultPreset
	}
	if cfg.Video.FFmpegPath == "" {
		cfg.Video.FFmpegPath = defaultFFmpegPath
	}
	if cfg.Video.FFprobePath == "" {
		cfg.Video.FFprobePath = defaultFFprobePath
	}
}

func applyCaptionDefaults(cfg *Config) {
	if cfg.Caption.FontSize == 0 {
		cfg.Caption.FontSize = defaultFontSize
	}
	if cfg.Caption.FontColor == "" {
		cfg.Caption.FontColor = defaultFontColor
	}
	if cfg.Caption.BorderColor == "" {
		cfg.Caption.BorderColor = defaultBorderColor
	}
	if cfg.Caption.BorderWidth == 0 {
		cfg.Caption.BorderWidth = defaultBorderWidth
	}
	if cfg.Caption.YPosition == 0 {
		cfg.Caption.YPosition = defaultCaptionY
	}
	if cfg.Caption.MaxLineChars == 0 {
		cfg.Caption.MaxLineChars = defaultMaxLineChars
	}
}

func applyMusicDefaults(cfg *Config) {
	if cfg.Music.Path == "" {
		cfg.Music.Path = defaultMusicPath
	}
	if cfg.Music.Volume == 0 {
		cfg.Music.Volume = defaultMusicVolume
	}
}

func applyOrchestratorDefaults(cfg *Config) {
	if cfg.Orchestrator.Mode == "" {
		cfg.Orchestrator.Mode = defaultOrchestrator
	}
	if cfg.Orchestrator.MaxTurns == 0 {
		cfg.Orchestrator.MaxTurns = defaultMaxTurns
	}
}

func applyRuntimeDefaults(cfg *Config) {
	if cfg.Workspace.Dir == "" {
		cfg.Workspace.Dir = defaultWorkspaceDir
	}
	if cfg.GCP.Location == "" {
		cfg.GCP.Location = defaultGeminiLocation
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultServerAddr
	}
	if cfg.HTTP.Timeout == 0 {
		cfg.HTTP.Timeout = defaultHTTPTimeout
	}
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama", "groq", "gemini":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Speech.Provider {
	case "elevenlabs", "openai", "stub":
	default:
		return fmt.Errorf("unknown speech provider %q", c.Speech.Provider)
	}
	switch c.Images.Provider {
	case "stability", "openai", "placeholder":
	default:
		return fmt.Errorf("unknown image provider %q", c.Images.Provider)
	}
	switch c.Orchestrator.Mode {
	case "roundrobin", "crew":
	default:
		return fmt.Errorf("unknown orchestrator mode %q", c.Orchestrator.Mode)
	}
	if _, _, err := ParseResolution(c.Video.Resolution); err != nil {
		return err
	}
	if c.Music.Volume < 0 || c.Music.Volume > 1 {
		return fmt.Errorf("music volume %.2f out of range [0,1]", c.Music.Volume)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http max_retries must not be negative")
	}
	return nil
}

func (c *Config) missingSecrets() bool {
	for _, s := range c.secretFields() {
		if *s.value == "" {
			return true
		}
	}
	return false
}

type secretField struct {
	name  string
	value *string
}

func (c *Config) secretFields() []secretField {
	return []secretField{
		{"OPENAI_API_KEY", &c.OpenAIAPIKey},
		{"GROQ_API_KEY", &c.GroqAPIKey},
		{"ELEVENLABS_API_KEY", &c.ElevenLabsAPIKey},
		{"STABILITY_API_KEY", &c.StabilityAPIKey},
		{"GEMINI_API_KEY", &c.GeminiAPIKey},
	}
}

// ParseResolution parses "WIDTHxHEIGHT".
func ParseResolution(res string) (int, int, error) {
	parts := strings.Split(strings.ToLower(res), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q", res)
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q", res)
	}
	return w, h, nil
}
