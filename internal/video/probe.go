package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// probeDuration returns the container duration of path in seconds.
func (a *Assembler) probeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.ffprobePath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, &ExternalToolError{Tool: "ffprobe", Args: args, Output: stderr.String(), Err: err}
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("non-positive duration %.3f for %s", dur, path)
	}
	return dur, nil
}

func (a *Assembler) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, a.ffmpegPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return &ExternalToolError{Tool: "ffmpeg", Args: args, Output: string(output), Err: err}
	}
	return nil
}
