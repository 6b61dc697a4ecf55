package speech

import (
	"context"
	"strings"
)

const DefaultWordsPerMinute = 150.0

// Provider turns one caption into encoded audio.
type Provider interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	// Extension is the file extension of the returned audio, with the dot.
	Extension() string
	Name() string
}

// EstimateDuration is the spoken length of text in seconds at the given
// speaking rate.
func EstimateDuration(text string, wordsPerMinute float64) float64 {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}
	return float64(len(strings.Fields(text))) / wordsPerMinute * 60.0
}
