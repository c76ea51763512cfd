package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/alphaocr/pkg/dictionary"
)

const (
	SentinelText     = "---"
	SentinelFurigana = "No text found"

	NoTextMessage = "No text was detected in the image."
	NoWordMessage = "No word found at the cursor position."

	PassthroughTranslation = "(phonetic, no lookup needed)"
	NoTextError            = "No text found"
)

// Mode is how the response was assembled.
type Mode int

const (
	// PointMode answers with the single token of interest.
	PointMode Mode = iota
	// TokenListMode answers with every token that survived the kana policy.
	TokenListMode
)

func (m Mode) String() string {
	switch m {
	case PointMode:
		return "point"
	case TokenListMode:
		return "tokens"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// PointShape is the JSON layout of a point-mode answer.
type PointShape string

const (
	ShapeObject PointShape = "object"
	ShapeList   PointShape = "list"
)

func ParsePointShape(s string) (PointShape, error) {
	switch PointShape(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShapeObject:
		return ShapeObject, nil
	case ShapeList:
		return ShapeList, nil
	default:
		return "", fmt.Errorf("unknown point shape %q (expected object or list)", s)
	}
}

// Response is the assembled answer for one request.
type Response struct {
	Mode    Mode
	Shape   PointShape
	Entries []dictionary.Entry

	// Word is the located token text in point mode, empty on a sentinel.
	Word string
}

// Sentinel returns the point-mode entry used when there is nothing to look up.
func Sentinel(message string) dictionary.Entry {
	return dictionary.Entry{
		Text:        SentinelText,
		Furigana:    SentinelFurigana,
		Translation: message,
	}
}

// Passthrough returns the entry for a kana-only token that is reported without a lookup.
func Passthrough(word string) dictionary.Entry {
	return dictionary.Entry{
		Text:        word,
		Furigana:    "",
		Translation: PassthroughTranslation,
	}
}

// PointResponse wraps a single entry.
func PointResponse(entry dictionary.Entry, word string, shape PointShape) *Response {
	return &Response{
		Mode:    PointMode,
		Shape:   shape,
		Entries: []dictionary.Entry{entry},
		Word:    word,
	}
}

// TokenListResponse wraps the ordered entries of a token-list answer.
func TokenListResponse(entries []dictionary.Entry) *Response {
	return &Response{
		Mode:    TokenListMode,
		Entries: entries,
	}
}

// IsSentinel reports whether a point-mode response carries no lookup.
func (r *Response) IsSentinel() bool {
	return r.Mode == PointMode && r.Word == ""
}

// MarshalJSON renders the wire payload: a single object (or one-element list)
// in point mode, a list in token-list mode, and an error object list when a
// token list ends up empty.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Mode == PointMode {
		if len(r.Entries) != 1 {
			return nil, fmt.Errorf("point response must hold exactly one entry, has %d", len(r.Entries))
		}
		if r.Shape == ShapeList {
			return json.Marshal(r.Entries)
		}
		return json.Marshal(r.Entries[0])
	}

	if len(r.Entries) == 0 {
		return json.Marshal([]map[string]string{{"error": NoTextError}})
	}
	return json.Marshal(r.Entries)
}
