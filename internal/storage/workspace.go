package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"reelcrew/internal/job"
	"reelcrew/internal/script"
)

const (
	VoiceoverDir = "voiceovers"
	ImageDir     = "images"
	ScriptFile   = "script.json"
	JobFile      = "job.json"
)

// Workspace is the directory a run writes into:
//
//	voiceovers/voiceover_<i><ext>
//	images/image_<i><ext>
//	script.json
//	job.json
//	<output name>
type Workspace struct {
	dir        string
	outputName string
}

func NewWorkspace(dir, outputName string) *Workspace {
	if dir == "" {
		dir = "."
	}
	if outputName == "" {
		outputName = "yt_shorts_video.mp4"
	}
	return &Workspace{dir: dir, outputName: outputName}
}

func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) OutputPath() string {
	return filepath.Join(w.dir, w.outputName)
}

func (w *Workspace) ScriptPath() string {
	return filepath.Join(w.dir, ScriptFile)
}

func (w *Workspace) VoiceoverPath(pos int, ext string) string {
	return filepath.Join(w.dir, VoiceoverDir, fmt.Sprintf("voiceover_%d%s", pos, ext))
}

func (w *Workspace) ImagePath(pos int, ext string) string {
	return filepath.Join(w.dir, ImageDir, fmt.Sprintf("image_%d%s", pos, ext))
}

// Layout binds the file extensions of the configured providers so the
// job record can name every artifact up front.
func (w *Workspace) Layout(voiceExt, imageExt string) job.Layout {
	return layout{ws: w, voiceExt: voiceExt, imageExt: imageExt}
}

type layout struct {
	ws       *Workspace
	voiceExt string
	imageExt string
}

func (l layout) VoiceoverPath(pos int) string { return l.ws.VoiceoverPath(pos, l.voiceExt) }
func (l layout) ImagePath(pos int) string     { return l.ws.ImagePath(pos, l.imageExt) }

func (w *Workspace) EnsureDirectories() error {
	for _, sub := range []string{VoiceoverDir, ImageDir} {
		if err := os.MkdirAll(filepath.Join(w.dir, sub), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	return nil
}

// LoadScript reads script.json. It returns an error wrapping
// fs.ErrNotExist when no script has been saved yet.
func (w *Workspace) LoadScript() (*script.Script, error) {
	data, err := os.ReadFile(w.ScriptPath())
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var s script.Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ScriptFile, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ScriptFile, err)
	}
	return &s, nil
}

func (w *Workspace) SaveScript(s *script.Script) error {
	data, err := s.JSON()
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	return w.writeFile(ScriptFile, data)
}

// SaveJob writes the job record next to the artifacts it describes.
func (w *Workspace) SaveJob(j *job.Job) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return w.writeFile(JobFile, append(data, '\n'))
}

// LoadJob reads job.json. It returns an error wrapping fs.ErrNotExist
// when the workspace holds no job.
func (w *Workspace) LoadJob() (*job.Job, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, JobFile))
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode %s: %w", JobFile, err)
	}
	return &j, nil
}

// WriteArtifact stores generated media at path, creating its directory.
// The file appears only once fully written, so an interrupted run never
// leaves a truncated artifact that a resume would reuse.
func (w *Workspace) WriteArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeAtomic(path, data)
}

// Clear removes everything a run produced. Missing entries are ignored.
func (w *Workspace) Clear() error {
	targets := []string{
		filepath.Join(w.dir, VoiceoverDir),
		filepath.Join(w.dir, ImageDir),
		w.ScriptPath(),
		filepath.Join(w.dir, JobFile),
		w.OutputPath(),
	}

	var errs []error
	for _, p := range targets {
		if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
			continue
		}
		slog.Info("Removed", "path", p)
	}
	return errors.Join(errs...)
}

func (w *Workspace) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return writeAtomic(filepath.Join(w.dir, name), data)
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
