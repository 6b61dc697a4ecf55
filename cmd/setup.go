package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Long:  `Check for ffmpeg, create the asset directories and write API keys to .env.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 Reelcrew Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking tools", checkTools},
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func checkTools() error {
	if commandExists("ffmpeg") && commandExists("ffprobe") {
		fmt.Println(successStyle.Render("✓ Found ffmpeg and ffprobe"))
		return nil
	}

	var install bool
	if err := huh.NewConfirm().
		Title("ffmpeg not found").
		Description("ffmpeg and ffprobe render the video. Install them?").
		Affirmative("Yes").
		Negative("No").
		Value(&install).
		Run(); err != nil {
		return err
	}
	if !install {
		fmt.Println(warnStyle.Render("Skipped ffmpeg install; videos cannot be assembled until it is on PATH"))
		return nil
	}

	return runWithSpinner("Installing ffmpeg", func() error {
		switch runtime.GOOS {
		case "darwin":
			return runSetupCmd("brew", "install", "ffmpeg")
		case "linux":
			return runSetupCmd("sh", "-c", "sudo apt-get install -y ffmpeg")
		default:
			return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
		}
	})
}

func createDirectories() error {
	dirs := []string{"assets/music", "assets/fonts"}
	if workspaceDir != "" {
		dirs = append(dirs, workspaceDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureProviderKeys(env); err != nil {
		return err
	}

	if err := configureGCP(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureProviderKeys(env map[string]string) error {
	var openaiKey, groqKey, elevenKey, stabilityKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("OpenAI API Key").
				Description("Script writing, and voices or images when those providers are set to openai").
				Value(&openaiKey).
				EchoMode(huh.EchoModePassword).
				Validate(required("OpenAI API Key")),
			huh.NewInput().
				Title("Groq API Key (optional)").
				Description("https://console.groq.com/keys").
				Value(&groqKey).
				EchoMode(huh.EchoModePassword),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("ElevenLabs API Key").
				Description("https://elevenlabs.io/app/settings/api-keys").
				Value(&elevenKey).
				EchoMode(huh.EchoModePassword),
			huh.NewInput().
				Title("Stability API Key").
				Description("https://platform.stability.ai/account/keys").
				Value(&stabilityKey).
				EchoMode(huh.EchoModePassword),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["OPENAI_API_KEY"] = strings.TrimSpace(openaiKey)
	env["GROQ_API_KEY"] = strings.TrimSpace(groqKey)
	env["ELEVENLABS_API_KEY"] = strings.TrimSpace(elevenKey)
	env["STABILITY_API_KEY"] = strings.TrimSpace(stabilityKey)
	return nil
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Use Google Cloud?").
		Description("Secret Manager for missing API keys and a Cloud Storage music bucket").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}
	if !setupGCP {
		return nil
	}

	project := getActiveProject()
	if err := huh.NewInput().
		Title("Google Cloud Project").
		Value(&project).
		Run(); err != nil {
		return err
	}

	project = strings.TrimSpace(project)
	if project == "" {
		fmt.Println(warnStyle.Render("GCP setup skipped: no project"))
		return nil
	}
	env["GOOGLE_CLOUD_PROJECT"] = project

	if commandExists("gcloud") {
		err := runWithSpinner("Enabling APIs", func() error {
			return runSetupCmd("gcloud", "services", "enable",
				"secretmanager.googleapis.com", "storage.googleapis.com", "--project", project)
		})
		if err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
		}
	}
	return nil
}

func getActiveProject() string {
	if !commandExists("gcloud") {
		return ""
	}
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GOOGLE_CLOUD_PROJECT",
		"OPENAI_API_KEY",
		"GROQ_API_KEY",
		"ELEVENLABS_API_KEY",
		"STABILITY_API_KEY",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Add background music (optional) to: assets/music/")
	fmt.Println("  2. Copy config.example.yaml to config.yaml and pick providers")
	fmt.Println("  3. Run: reelcrew once \"your topic\"")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}
