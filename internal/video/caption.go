package video

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CaptionStyle controls how captions are burned into each segment.
type CaptionStyle struct {
	FontFile    string
	FontSize    int
	FontColor   string
	BorderColor string
	BorderWidth int
	// YPosition is the vertical centre of the caption block as a fraction
	// of the frame height.
	YPosition    float64
	MaxLineChars int
}

func DefaultCaptionStyle() CaptionStyle {
	return CaptionStyle{
		FontSize:     72,
		FontColor:    "white",
		BorderColor:  "black",
		BorderWidth:  4,
		YPosition:    0.72,
		MaxLineChars: 22,
	}
}

// SanitizeCaption removes control characters, collapses whitespace and
// trims. Every printable character, including punctuation, is kept.
func SanitizeCaption(s string) (string, error) {
	s = strings.ToValidUTF8(s, "")
	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsControl(r), r == utf8.RuneError, unicode.Is(unicode.Cf, r):
			// dropped
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCaption, s)
	}
	return b.String(), nil
}

// WrapCaption splits s into lines of at most maxChars runes, breaking on
// spaces. A word longer than maxChars gets a line of its own.
func WrapCaption(s string, maxChars int) []string {
	words := strings.Fields(s)
	if maxChars <= 0 || len(words) == 0 {
		return []string{s}
	}

	var lines []string
	var cur []string
	curLen := 0
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		if len(cur) > 0 && curLen+1+wl > maxChars {
			lines = append(lines, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		if len(cur) > 0 {
			curLen++
		}
		cur = append(cur, w)
		curLen += wl
	}
	return append(lines, strings.Join(cur, " "))
}

// escapeOptionValue escapes s for use as a value inside a filter's
// key=value:key=value argument list.
func escapeOptionValue(s string) string {
	return escapeWith(s, `\':%`)
}

// escapeFilterArgs escapes a complete argument list for embedding in a
// filtergraph description.
func escapeFilterArgs(s string) string {
	return escapeWith(s, `\'[],;`)
}

func escapeWith(s, special string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// drawtextFilters renders caption as one drawtext filter per wrapped line,
// joined for a filter chain. Text expansion is disabled so % is literal.
func drawtextFilters(caption string, style CaptionStyle, frameHeight int) string {
	lines := WrapCaption(caption, style.MaxLineChars)
	lineHeight := float64(style.FontSize) * 1.25
	top := style.YPosition*float64(frameHeight) - float64(len(lines))*lineHeight/2

	filters := make([]string, len(lines))
	for i, line := range lines {
		filters[i] = drawtextFilter(line, style, int(math.Round(top+float64(i)*lineHeight)))
	}
	return strings.Join(filters, ",")
}

func drawtextFilter(line string, style CaptionStyle, y int) string {
	var opts []string
	if style.FontFile != "" {
		opts = append(opts, "fontfile="+escapeOptionValue(style.FontFile))
	}
	opts = append(opts,
		"text="+escapeOptionValue(line),
		"expansion=none",
		fmt.Sprintf("fontsize=%d", style.FontSize),
		"fontcolor="+escapeOptionValue(style.FontColor),
		fmt.Sprintf("borderw=%d", style.BorderWidth),
		"bordercolor="+escapeOptionValue(style.BorderColor),
		"x=(w-text_w)/2",
		fmt.Sprintf("y=%d", y),
	)
	return "drawtext=" + escapeFilterArgs(strings.Join(opts, ":"))
}
