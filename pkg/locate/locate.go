package locate

import (
	"fmt"
	"math"
	"strings"

	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
)

// Policy selects how the token of interest is chosen.
type Policy string

const (
	// Containment picks the first token whose box contains the point.
	Containment Policy = "containment"
	// Nearest picks the token whose box center is closest to the point.
	Nearest Policy = "nearest"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Containment:
		return Containment, nil
	case Nearest:
		return Nearest, nil
	default:
		return "", fmt.Errorf("unknown locate policy %q (expected containment or nearest)", s)
	}
}

// Point is a location in image-pixel space.
type Point struct {
	X, Y float64
}

// Cursor is a pointer position in logical (CSS) pixels plus the device pixel ratio
// of the screen it was captured on.
type Cursor struct {
	X          float64
	Y          float64
	PixelRatio float64
}

func (c Cursor) Validate() error {
	if !(c.PixelRatio > 0) || math.IsInf(c.PixelRatio, 0) {
		return fmt.Errorf("pixel ratio must be greater than zero, got %v", c.PixelRatio)
	}
	return nil
}

// Physical converts the cursor to image-pixel space.
func (c Cursor) Physical() Point {
	return Point{X: c.X * c.PixelRatio, Y: c.Y * c.PixelRatio}
}

// Locate applies policy to tokens and target. ok is false when nothing matched.
func Locate(policy Policy, tokens []recognition.Token, target Point) (recognition.Token, bool) {
	if policy == Nearest {
		return NearestCentroid(tokens, target)
	}
	return Contains(tokens, target)
}

// Contains returns the first token, in scan order, whose box contains target.
// Box edges are inclusive. Tokens without a box are skipped.
func Contains(tokens []recognition.Token, target Point) (recognition.Token, bool) {
	for _, t := range tokens {
		if t.Box == nil {
			continue
		}
		if t.Box.Contains(target.X, target.Y) {
			return t, true
		}
	}
	return recognition.Token{}, false
}

// NearestCentroid returns the token whose box center is closest to target.
// On an exact tie the first token seen wins.
func NearestCentroid(tokens []recognition.Token, target Point) (recognition.Token, bool) {
	var (
		best  recognition.Token
		found bool
	)
	bestDist := math.Inf(1)

	for _, t := range tokens {
		if t.Box == nil {
			continue
		}
		cx, cy := t.Box.Center()
		d := math.Hypot(cx-target.X, cy-target.Y)
		if d < bestDist {
			best, bestDist, found = t, d, true
		}
	}

	return best, found
}
