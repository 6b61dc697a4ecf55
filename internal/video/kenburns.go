package video

import "fmt"

// Rect is a crop window over the source image in normalised coordinates:
// the centre point in [0,1] and a zoom factor >= 1, where the window covers
// 1/Zoom of the image in each dimension.
type Rect struct {
	CX   float64
	CY   float64
	Zoom float64
}

// Valid reports whether the window lies inside the image.
func (r Rect) Valid() bool {
	if r.Zoom < 1 {
		return false
	}
	half := 1 / (2 * r.Zoom)
	const eps = 1e-9
	return r.CX-half >= -eps && r.CX+half <= 1+eps &&
		r.CY-half >= -eps && r.CY+half <= 1+eps
}

// Motion is a straight-line camera move between two crop windows.
type Motion struct {
	Name string
	From Rect
	To   Rect
}

var motions = []Motion{
	{Name: "zoom-in", From: Rect{0.5, 0.5, 1.0}, To: Rect{0.5, 0.5, 1.3}},
	{Name: "pan-right", From: Rect{0.4, 0.5, 1.25}, To: Rect{0.6, 0.5, 1.25}},
	{Name: "zoom-out", From: Rect{0.5, 0.5, 1.3}, To: Rect{0.5, 0.5, 1.0}},
	{Name: "pan-left", From: Rect{0.6, 0.5, 1.25}, To: Rect{0.4, 0.5, 1.25}},
}

// MotionFor picks the motion for the segment at 0-based index i. The
// choice cycles so adjacent segments never repeat a move.
func MotionFor(i int) Motion {
	if i < 0 {
		i = -i
	}
	return motions[i%len(motions)]
}

// At returns the crop window at progress p, clamped to [0,1].
func (m Motion) At(p float64) Rect {
	p = min(max(p, 0), 1)
	lerp := func(a, b float64) float64 { return a + (b-a)*p }
	return Rect{
		CX:   lerp(m.From.CX, m.To.CX),
		CY:   lerp(m.From.CY, m.To.CY),
		Zoom: lerp(m.From.Zoom, m.To.Zoom),
	}
}

// zoompan renders the motion as a zoompan filter producing frames output
// frames of width x height. Progress is on/(frames-1), the same function
// At uses.
func (m Motion) zoompan(frames, width, height, fps int) string {
	den := max(frames-1, 1)
	progress := fmt.Sprintf("on/%d", den)
	z := fmt.Sprintf("%.4f%+.4f*%s", m.From.Zoom, m.To.Zoom-m.From.Zoom, progress)
	x := fmt.Sprintf("(%.4f%+.4f*%s)*iw-iw/zoom/2", m.From.CX, m.To.CX-m.From.CX, progress)
	y := fmt.Sprintf("(%.4f%+.4f*%s)*ih-ih/zoom/2", m.From.CY, m.To.CY-m.From.CY, progress)
	return fmt.Sprintf("zoompan=z=%s:x=%s:y=%s:d=%d:s=%dx%d:fps=%d", z, x, y, frames, width, height, fps)
}
