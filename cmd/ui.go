package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"

	"reelcrew/internal/app"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	agentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
)

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}

func printTranscript(msgs []app.Message) {
	for _, m := range msgs {
		fmt.Println(agentStyle.Render(m.Agent))
		fmt.Println(indent(m.Content))
	}
}

func printResult(result *app.GenerateResult) {
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Video saved to %s (%.1fs)", result.VideoPath, result.Duration)))
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n  ")
}
