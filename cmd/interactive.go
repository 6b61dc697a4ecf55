package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"reelcrew/internal/app"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Prompt for topics and generate a video for each",
	Long:  `Ask for a topic, generate its video, and repeat until you type exit.`,
	RunE:  runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, service, err := buildRunner(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	fmt.Println(titleStyle.Render("🎬 Reelcrew"))
	fmt.Println(infoStyle.Render("Workspace: " + service.Workspace().Dir()))

	for {
		topic, err := askTopic()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(topic) {
		case "exit", "quit":
			fmt.Println(infoStyle.Render("Bye"))
			return nil
		case "":
			continue
		}

		var result *app.GenerateResult
		err = runWithSpinner("Generating video about "+topic, func() error {
			var runErr error
			result, runErr = orch.Run(ctx, topic)
			return runErr
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if result != nil {
			printTranscript(result.Messages)
		}
		if err != nil {
			fmt.Println(warnStyle.Render("✗ " + err.Error()))
			continue
		}

		printResult(result)
	}
}

func askTopic() (string, error) {
	var topic string
	err := huh.NewInput().
		Title("Enter video topic").
		Description("Type exit to quit").
		Value(&topic).
		Run()
	return strings.TrimSpace(topic), err
}
