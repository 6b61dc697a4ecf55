package video

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultFFmpegPath = "ffmpeg"
	defaultFFprobe    = "ffprobe"
	defaultWidth      = 1080
	defaultHeight     = 1920
	defaultFPS        = 30
	defaultPreset     = "fast"
)

type Assembler struct {
	ffmpegPath  string
	ffprobePath string
	width       int
	height      int
	fps         int
	preset      string
	caption     CaptionStyle
	musicPath   string
	musicVolume float64
}

type AssemblerOptions struct {
	FFmpegPath  string
	FFprobePath string
	Width       int
	Height      int
	FPS         int
	Preset      string
	Caption     CaptionStyle
	// MusicPath is optional; a missing file means no background music.
	MusicPath   string
	MusicVolume float64
}

// AssembleRequest lists the inputs in caption order. The three slices
// must have the same length.
type AssembleRequest struct {
	Captions   []string
	Images     []string
	Voiceovers []string
	OutputPath string
}

// SegmentPlan is one caption's clip: its inputs and its timing.
type SegmentPlan struct {
	Index     int
	Caption   string
	ImagePath string
	AudioPath string
	Duration  float64
	Frames    int
	Motion    Motion
}

type AssembleResult struct {
	OutputPath string
	Duration   float64
	Segments   []SegmentPlan
	WithMusic  bool
}

func NewAssembler() *Assembler {
	return NewAssemblerWithOptions(AssemblerOptions{})
}

func NewAssemblerWithOptions(opts AssemblerOptions) *Assembler {
	a := &Assembler{
		ffmpegPath:  opts.FFmpegPath,
		ffprobePath: opts.FFprobePath,
		width:       opts.Width,
		height:      opts.Height,
		fps:         opts.FPS,
		preset:      opts.Preset,
		caption:     opts.Caption,
		musicPath:   opts.MusicPath,
		musicVolume: opts.MusicVolume,
	}
	if a.ffmpegPath == "" {
		a.ffmpegPath = defaultFFmpegPath
	}
	if a.ffprobePath == "" {
		a.ffprobePath = defaultFFprobe
	}
	if a.width <= 0 || a.height <= 0 {
		a.width, a.height = defaultWidth, defaultHeight
	}
	if a.fps <= 0 {
		a.fps = defaultFPS
	}
	if a.preset == "" {
		a.preset = defaultPreset
	}
	if a.caption.FontSize == 0 {
		a.caption = DefaultCaptionStyle()
	}
	if a.musicVolume <= 0 {
		a.musicVolume = 0.15
	}
	return a
}

// Assemble renders one clip per caption, concatenates them and writes the
// result to req.OutputPath. Intermediate files live in a temporary
// directory next to the output that is removed on every return path. The
// output file only appears once the final encode has succeeded.
func (a *Assembler) Assemble(ctx context.Context, req AssembleRequest) (*AssembleResult, error) {
	if err := checkCounts(req); err != nil {
		return nil, err
	}
	if req.OutputPath == "" {
		return nil, fmt.Errorf("output path is required")
	}

	captions := make([]string, len(req.Captions))
	for i, c := range req.Captions {
		clean, err := SanitizeCaption(c)
		if err != nil {
			return nil, fmt.Errorf("caption %d: %w", i+1, err)
		}
		captions[i] = clean
	}

	segments, err := a.plan(ctx, captions, req)
	if err != nil {
		return nil, err
	}

	outDir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	tmpDir, err := os.MkdirTemp(outDir, ".segments-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	clips := make([]string, len(segments))
	for i, seg := range segments {
		clips[i] = filepath.Join(tmpDir, fmt.Sprintf("segment_%d.mp4", seg.Index))
		slog.Info("Rendering segment", "index", seg.Index, "total", len(segments),
			"duration", fmt.Sprintf("%.2fs", seg.Duration), "motion", seg.Motion.Name)
		if err := a.runFFmpeg(ctx, a.buildSegmentArgs(seg, clips[i])); err != nil {
			return nil, fmt.Errorf("render segment %d: %w", seg.Index, err)
		}
	}

	listPath := filepath.Join(tmpDir, "concat.txt")
	if err := writeConcatList(listPath, clips); err != nil {
		return nil, err
	}

	total := totalDuration(segments)
	music := a.availableMusic()
	staged := filepath.Join(tmpDir, "final"+filepath.Ext(req.OutputPath))

	slog.Info("Concatenating segments", "count", len(clips), "duration", fmt.Sprintf("%.2fs", total), "music", music != "")
	if err := a.runFFmpeg(ctx, a.buildConcatArgs(listPath, music, total, staged)); err != nil {
		return nil, fmt.Errorf("concatenate segments: %w", err)
	}

	if err := os.Rename(staged, req.OutputPath); err != nil {
		return nil, fmt.Errorf("move output into place: %w", err)
	}

	return &AssembleResult{
		OutputPath: req.OutputPath,
		Duration:   total,
		Segments:   segments,
		WithMusic:  music != "",
	}, nil
}

func checkCounts(req AssembleRequest) error {
	n := len(req.Captions)
	if n == 0 || len(req.Images) != n || len(req.Voiceovers) != n {
		return &CountMismatchError{
			Captions:   n,
			Voiceovers: len(req.Voiceovers),
			Images:     len(req.Images),
		}
	}
	return nil
}

func (a *Assembler) plan(ctx context.Context, captions []string, req AssembleRequest) ([]SegmentPlan, error) {
	segments := make([]SegmentPlan, len(captions))
	for i := range captions {
		d, err := a.probeDuration(ctx, req.Voiceovers[i])
		if err != nil {
			return nil, fmt.Errorf("probe voiceover %d: %w", i+1, err)
		}
		segments[i] = planSegment(i, captions[i], req.Images[i], req.Voiceovers[i], d, a.fps)
	}
	return segments, nil
}

func planSegment(i int, caption, image, audio string, duration float64, fps int) SegmentPlan {
	return SegmentPlan{
		Index:     i + 1,
		Caption:   caption,
		ImagePath: image,
		AudioPath: audio,
		Duration:  duration,
		Frames:    max(int(math.Round(duration*float64(fps))), 1),
		Motion:    MotionFor(i),
	}
}

func totalDuration(segments []SegmentPlan) float64 {
	var total float64
	for _, s := range segments {
		total += s.Duration
	}
	return total
}

func (a *Assembler) availableMusic() string {
	if a.musicPath == "" {
		return ""
	}
	info, err := os.Stat(a.musicPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Background music unreadable, continuing without", "path", a.musicPath, "error", err)
		} else {
			slog.Debug("No background music", "path", a.musicPath)
		}
		return ""
	}
	if info.IsDir() {
		return ""
	}
	return a.musicPath
}

func (a *Assembler) buildSegmentFilter(seg SegmentPlan) string {
	sw, sh := a.width*2, a.height*2
	return fmt.Sprintf("[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,%s,%s,format=yuv420p[v]",
		sw, sh, sw, sh,
		seg.Motion.zoompan(seg.Frames, a.width, a.height, a.fps),
		drawtextFilters(seg.Caption, a.caption, a.height),
	)
}

func (a *Assembler) buildSegmentArgs(seg SegmentPlan, outputPath string) []string {
	return []string{
		"-y",
		"-i", seg.ImagePath,
		"-i", seg.AudioPath,
		"-filter_complex", a.buildSegmentFilter(seg),
		"-map", "[v]",
		"-map", "1:a",
		"-c:v", "libx264",
		"-preset", a.preset,
		"-r", fmt.Sprint(a.fps),
		"-c:a", "aac",
		"-ar", "44100",
		"-ac", "2",
		"-t", fmt.Sprintf("%.3f", seg.Duration),
		outputPath,
	}
}

func (a *Assembler) buildConcatArgs(listPath, musicPath string, total float64, outputPath string) []string {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
	}

	if musicPath != "" {
		args = append(args,
			"-stream_loop", "-1",
			"-i", musicPath,
			"-filter_complex", a.buildMusicFilter(),
			"-map", "0:v",
			"-map", "[a]",
		)
	} else {
		args = append(args, "-map", "0:v", "-map", "0:a")
	}

	return append(args,
		"-c:v", "libx264",
		"-preset", a.preset,
		"-s", fmt.Sprintf("%dx%d", a.width, a.height),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", "44100",
		"-t", fmt.Sprintf("%.3f", total),
		"-movflags", "+faststart",
		outputPath,
	)
}

// buildMusicFilter lowers the music under the voice track. duration=first
// keeps the mix exactly as long as the narration.
func (a *Assembler) buildMusicFilter() string {
	return fmt.Sprintf("[1:a]volume=%.2f[music];[0:a][music]amix=inputs=2:duration=first:normalize=0[a]", a.musicVolume)
}

func writeConcatList(path string, clips []string) error {
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	return nil
}
