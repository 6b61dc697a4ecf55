package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
)

var _ Provider = (*Placeholder)(nil)

// Placeholder draws a vertical two-tone gradient whose colours derive from
// the prompt, so every caption gets a distinct but stable frame.
type Placeholder struct {
	width  int
	height int
}

func NewPlaceholder(width, height int) *Placeholder {
	return &Placeholder{width: width, height: height}
}

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) Extension() string { return ".png" }

func (p *Placeholder) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.width <= 0 || p.height <= 0 {
		return nil, fmt.Errorf("invalid placeholder size %dx%d", p.width, p.height)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	sum := h.Sum32()
	top := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}
	bottom := color.RGBA{R: 255 - top.R, G: 255 - top.G, B: 255 - top.B, A: 255}

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		c := blend(top, bottom, float64(y)/float64(p.height))
		for x := 0; x < p.width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func blend(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}
