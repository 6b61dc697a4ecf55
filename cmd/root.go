package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"reelcrew/internal/app"
	"reelcrew/internal/orchestrator"
	"reelcrew/pkg/config"
)

var (
	verbose          bool
	configPath       string
	workspaceDir     string
	orchestratorMode string
)

var rootCmd = &cobra.Command{
	Use:   "reelcrew",
	Short: "Turn a topic into a captioned short video",
	Long: `Reelcrew writes a five caption script for a topic, voices each caption,
generates an abstract image per caption and assembles a vertical video with
Ken Burns motion, burned-in captions and optional background music.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default ./config.yaml, optional)")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Directory for voiceovers, images and the video")
	rootCmd.PersistentFlags().StringVarP(&orchestratorMode, "orchestrator", "o", "", "Orchestration style: roundrobin or crew")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	return rootCmd.Execute()
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func loadConfig(ctx context.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(ctx, configPath)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if workspaceDir != "" {
		cfg.Workspace.Dir = workspaceDir
	}
	if orchestratorMode != "" {
		cfg.Orchestrator.Mode = orchestratorMode
	}
	return cfg, cfg.Validate()
}

// buildRunner wires the service and the configured orchestrator. The
// caller closes the service.
func buildRunner(ctx context.Context) (orchestrator.Orchestrator, *app.Service, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	orch, err := orchestrator.New(cfg.Orchestrator.Mode, app.NewPipeline(service), service.Prompts(), cfg.Orchestrator.MaxTurns)
	if err != nil {
		_ = service.Close()
		return nil, nil, err
	}
	slog.Debug("Runner ready", "orchestrator", orch.Name(), "workspace", cfg.Workspace.Dir,
		"llm", cfg.LLM.Provider, "speech", service.Speech().Name(), "images", service.Images().Name())
	return orch, service, nil
}
