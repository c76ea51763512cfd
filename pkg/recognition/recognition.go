package recognition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

// Orientation describes the writing direction of the text in a screenshot.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// ParseOrientation accepts "horizontal" or "vertical". Empty means horizontal.
func ParseOrientation(s string) (Orientation, error) {
	switch Orientation(strings.ToLower(strings.TrimSpace(s))) {
	case "", Horizontal:
		return Horizontal, nil
	case Vertical:
		return Vertical, nil
	default:
		return "", fmt.Errorf("unknown orientation %q", s)
	}
}

// Box is an axis-aligned rectangle in image-pixel space.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether (x, y) lies inside the box, edges included.
func (b Box) Contains(x, y float64) bool {
	return b.Left <= x && x <= b.Left+b.Width &&
		b.Top <= y && y <= b.Top+b.Height
}

// Center returns the center point of the box.
func (b Box) Center() (float64, float64) {
	return b.Left + b.Width/2, b.Top + b.Height/2
}

// BoxFromPolygon reduces a polygon to its bounding rectangle.
func BoxFromPolygon(points [][2]float64) *Box {
	if len(points) == 0 {
		return nil
	}

	minX, minY := points[0][0], points[0][1]
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p[0])
		minY = min(minY, p[1])
		maxX = max(maxX, p[0])
		maxY = max(maxY, p[1])
	}

	return &Box{Left: minX, Top: minY, Width: maxX - minX, Height: maxY - minY}
}

// Token is one recognized region of text.
type Token struct {
	Text string `json:"text"`
	// Box is nil for backends that only read text.
	Box        *Box     `json:"box,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Options tune a single recognition call.
type Options struct {
	Orientation Orientation
	// NeedBoxes is set when the caller intends to localize by point.
	NeedBoxes bool
}

// Config is the startup configuration shared by all backends.
type Config struct {
	Backend     string
	Model       string
	Temperature float64
	Timeout     time.Duration

	// Languages maps an orientation to the language packs or hints to use.
	Languages map[Orientation][]string
}

// LanguagesFor returns the configured languages for an orientation, or fallback.
func (c Config) LanguagesFor(o Orientation, fallback ...string) []string {
	if langs := c.Languages[o]; len(langs) > 0 {
		return langs
	}
	return fallback
}

// Recognizer is implemented by every recognition backend.
// A Recognizer is created once per process and shared by all requests.
type Recognizer interface {
	// Name returns the backend name
	Name() string
	// ProducesBoxes reports whether every token carries a bounding box
	ProducesBoxes() bool
	// Recognize extracts tokens from img in the backend's natural scan order
	Recognize(ctx context.Context, img *screenshot.Image, opts Options) ([]Token, error)
	// Close releases the loaded model or client
	Close() error
}

// Normalize trims token text and drops tokens that end up empty.
func Normalize(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
