package video

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCaption is returned for captions that are empty once control
// characters and surplus whitespace are removed.
var ErrInvalidCaption = errors.New("invalid caption")

// CountMismatchError means captions, voiceovers and images do not line up.
// Assembly refuses to start; nothing is written.
type CountMismatchError struct {
	Captions   int
	Voiceovers int
	Images     int
	// Missing lists 1-based caption positions without a finished
	// voiceover or image, when the caller knows them.
	Missing []int
}

func (e *CountMismatchError) Error() string {
	msg := fmt.Sprintf("count mismatch: %d captions, %d voiceovers, %d images",
		e.Captions, e.Voiceovers, e.Images)
	if len(e.Missing) > 0 {
		parts := make([]string, len(e.Missing))
		for i, p := range e.Missing {
			parts[i] = fmt.Sprint(p)
		}
		msg += " (missing positions " + strings.Join(parts, ", ") + ")"
	}
	return msg
}

// ExternalToolError is a non-zero exit from ffmpeg or ffprobe.
type ExternalToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("%s failed: %v, output: %s", e.Tool, e.Err, strings.TrimSpace(e.Output))
}

func (e *ExternalToolError) Unwrap() error {
	return e.Err
}
