package cmd

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	onceTopic      string
	onceTranscript bool
)

var onceCmd = &cobra.Command{
	Use:   "once [topic]",
	Short: "Generate a single video",
	Long: `Generate a single video for a topic. Re-running in the same workspace with
the same topic resumes: the saved script is reused and only missing
voiceovers and images are requested.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOnce,
}

func init() {
	onceCmd.Flags().StringVarP(&onceTopic, "topic", "t", "", "Topic for video generation")
	onceCmd.Flags().BoolVar(&onceTranscript, "transcript", false, "Print the agent transcript when done")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	topic := onceTopic
	if len(args) == 1 {
		topic = args[0]
	}
	if strings.TrimSpace(topic) == "" {
		return errors.New("please provide a topic")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, service, err := buildRunner(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	slog.Info("Generating video...", "topic", topic, "orchestrator", orch.Name())
	result, err := orch.Run(ctx, topic)
	if onceTranscript && result != nil {
		printTranscript(result.Messages)
	}
	if err != nil {
		return err
	}

	printResult(result)
	return nil
}
