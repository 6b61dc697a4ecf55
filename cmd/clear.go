package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelcrew/internal/storage"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove generated content",
	Long:  `Remove the workspace voiceovers, images, script, job record and final video.`,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	ws := storage.NewWorkspace(cfg.Workspace.Dir, cfg.Video.OutputName)
	if err := ws.Clear(); err != nil {
		return fmt.Errorf("clear workspace: %w", err)
	}

	fmt.Println(successStyle.Render("✓ Cleared generated content in " + ws.Dir()))
	return nil
}
