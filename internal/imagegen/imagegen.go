// Package imagegen defines the still image providers behind the image
// stage.
package imagegen

import "context"

type Provider interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
	// Extension is the file extension of the returned image, with the dot.
	Extension() string
	Name() string
}
