package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	p, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	if p.StopKeyword != "TERMINATE" {
		t.Errorf("StopKeyword = %q, want TERMINATE", p.StopKeyword)
	}
	if !strings.Contains(p.Script.System, "exactly 5 captions") {
		t.Error("script system prompt should ask for exactly 5 captions")
	}
	if p.Image.Style != "Abstract Art Style / Ultra High Quality." {
		t.Errorf("Image.Style = %q", p.Image.Style)
	}
	for _, role := range []string{"script_writer", "voice_actor", "graphic_designer", "director"} {
		if p.Role(role) == "" {
			t.Errorf("missing role %s", role)
		}
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, _ := os.Getwd()
	defer func() { _ = os.Chdir(originalWd) }()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}

	p, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.StopKeyword != "TERMINATE" {
		t.Errorf("StopKeyword = %q, want TERMINATE", p.StopKeyword)
	}
}

func TestLoadFromOverlaysDefault(t *testing.T) {
	tmpDir := t.TempDir()
	promptsPath := filepath.Join(tmpDir, "custom.yaml")

	promptsContent := `
stop_keyword: DONE
script:
  user: "Short about {{.Topic}}"
`
	if err := os.WriteFile(promptsPath, []byte(promptsContent), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFrom(promptsPath)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if p.StopKeyword != "DONE" {
		t.Errorf("StopKeyword = %q, want DONE", p.StopKeyword)
	}
	if p.Script.User != "Short about {{.Topic}}" {
		t.Errorf("Script.User = %q", p.Script.User)
	}
	if p.Script.System == "" {
		t.Error("Script.System should keep the built-in value")
	}
}

func TestLoadFromMissing(t *testing.T) {
	_, err := LoadFrom("/nonexistent/path.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	promptsPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(promptsPath, []byte("not: valid: yaml: content:"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(promptsPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestRenderScript(t *testing.T) {
	p := &Prompts{
		Script: ScriptPrompts{User: "Create a script about: {{.Topic}}"},
	}

	result, err := p.RenderScript(ScriptParams{Topic: "black holes"})
	if err != nil {
		t.Fatalf("RenderScript() error = %v", err)
	}

	expected := "Create a script about: black holes"
	if result != expected {
		t.Errorf("RenderScript() = %q, want %q", result, expected)
	}
}

func TestRenderImage(t *testing.T) {
	p := &Prompts{
		Image: ImagePrompts{
			Style:  "Ink.",
			Prompt: "{{.Style}} {{.Caption}}",
		},
	}

	got, err := p.RenderImage(ImageParams{Caption: "A lone star"})
	if err != nil {
		t.Fatalf("RenderImage() error = %v", err)
	}
	if want := "Ink. A lone star"; got != want {
		t.Errorf("RenderImage() = %q, want %q", got, want)
	}
}

func TestLoadFromOverridesImageStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("image:\n  style: \"Oil.\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	got, err := p.RenderImage(ImageParams{Caption: "A lone star", Topic: "stars"})
	if err != nil {
		t.Fatalf("RenderImage() error = %v", err)
	}
	if !strings.HasPrefix(got, "Oil.") || !strings.Contains(got, "A lone star") {
		t.Errorf("RenderImage() = %q, want the Oil. style applied", got)
	}
}

func TestRenderInvalidTemplate(t *testing.T) {
	p := &Prompts{
		Script: ScriptPrompts{User: "{{.Invalid"},
	}

	_, err := p.RenderScript(ScriptParams{Topic: "test"})
	if err == nil {
		t.Error("expected error for invalid template")
	}
}
