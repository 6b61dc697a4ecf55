package app

import (
	"fmt"

	"reelcrew/internal/job"
)

// UpstreamAPIError is a failed provider call for one caption. The stage
// records it in the job and moves on to the next caption.
type UpstreamAPIError struct {
	Kind     job.Kind
	Position int
	Provider string
	Err      error
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("%s %s %d: %v", e.Provider, e.Kind, e.Position, e.Err)
}

func (e *UpstreamAPIError) Unwrap() error {
	return e.Err
}
