package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

//go:embed prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	StopKeyword string            `yaml:"stop_keyword"`
	Script      ScriptPrompts     `yaml:"script"`
	Image       ImagePrompts      `yaml:"image"`
	Roles       map[string]string `yaml:"roles"`
}

type ScriptPrompts struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type ImagePrompts struct {
	Style  string `yaml:"style"`
	Prompt string `yaml:"prompt"`
}

type ScriptParams struct {
	Topic string
}

type ImageParams struct {
	Caption string
	Topic   string
}

// Load reads prompts.yaml from the working directory, falling back to the
// built-in prompts when the file does not exist.
func Load() (*Prompts, error) {
	p, err := LoadFrom(defaultPromptsPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	return p, err
}

func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parse(data)
}

func Default() (*Prompts, error) {
	return parse(defaultPrompts)
}

// parse overlays data on the built-in prompts so a partial file only
// replaces the keys it sets.
func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		return nil, fmt.Errorf("failed to parse built-in prompts: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if p.StopKeyword == "" {
		return nil, fmt.Errorf("prompts: stop_keyword must not be empty")
	}
	return &p, nil
}

func (p *Prompts) RenderScript(params ScriptParams) (string, error) {
	return render(p.Script.User, params)
}

// RenderImage fills the image template; {{.Style}} is image.style.
func (p *Prompts) RenderImage(params ImageParams) (string, error) {
	return render(p.Image.Prompt, struct {
		Style   string
		Caption string
		Topic   string
	}{p.Image.Style, params.Caption, params.Topic})
}

func (p *Prompts) Role(name string) string {
	return p.Roles[name]
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
