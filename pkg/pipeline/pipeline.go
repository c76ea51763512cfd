package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/alphaocr/internal/apperrors"
	"github.com/lehigh-university-libraries/alphaocr/pkg/dictionary"
	"github.com/lehigh-university-libraries/alphaocr/pkg/locate"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
	"github.com/lehigh-university-libraries/alphaocr/pkg/script"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// CenterMode decides what happens when a request has no cursor.
type CenterMode string

const (
	// CenterTokens returns every token.
	CenterTokens CenterMode = "tokens"
	// CenterNearest picks the token closest to the image center.
	CenterNearest CenterMode = "nearest"
)

func ParseCenterMode(s string) (CenterMode, error) {
	switch CenterMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CenterTokens:
		return CenterTokens, nil
	case CenterNearest:
		return CenterNearest, nil
	default:
		return "", fmt.Errorf("unknown center mode %q (expected tokens or nearest)", s)
	}
}

type Config struct {
	Locate     locate.Policy
	CenterMode CenterMode
	Kana       script.KanaPolicy
	PointShape PointShape
	// Concurrency bounds parallel dictionary lookups within one request.
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.Locate == "" {
		c.Locate = locate.Containment
	}
	if c.CenterMode == "" {
		c.CenterMode = CenterTokens
	}
	if c.Kana == "" {
		c.Kana = script.Passthrough
	}
	if c.PointShape == "" {
		c.PointShape = ShapeObject
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	return c
}

// Dictionary resolves a word to an entry. Implementations never fail; a miss
// is reported through the fallback entry.
type Dictionary interface {
	Lookup(ctx context.Context, word string) dictionary.Entry
}

// Request is one recognition-to-lookup job.
type Request struct {
	Image *screenshot.Image
	// Cursor is nil when the client sent no point.
	Cursor      *locate.Cursor
	Orientation recognition.Orientation
}

// Pipeline wires a recognizer to a dictionary. It holds no per-request state
// and is safe for concurrent use.
type Pipeline struct {
	recognizer recognition.Recognizer
	dictionary Dictionary
	cfg        Config
}

func New(recognizer recognition.Recognizer, dict Dictionary, cfg Config) *Pipeline {
	return &Pipeline{
		recognizer: recognizer,
		dictionary: dict,
		cfg:        cfg.withDefaults(),
	}
}

func (p *Pipeline) Recognizer() recognition.Recognizer {
	return p.recognizer
}

// Process runs recognition on the request image and assembles the response.
// Errors are classified with apperrors; lookup failures never surface as errors.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Response, error) {
	if req.Image == nil {
		return nil, apperrors.Validation("Missing 'image_data'")
	}
	if req.Cursor != nil {
		if err := req.Cursor.Validate(); err != nil {
			return nil, apperrors.New(apperrors.KindValidation, "Invalid 'pixelRatio'", err)
		}
	}
	if req.Orientation == "" {
		req.Orientation = recognition.Horizontal
	}

	mode, policy, target := p.plan(req)

	tokens, err := p.recognizer.Recognize(ctx, req.Image, recognition.Options{
		Orientation: req.Orientation,
		NeedBoxes:   mode == PointMode,
	})
	if err != nil {
		return nil, apperrors.Recognition("", fmt.Errorf("%s: %w", p.recognizer.Name(), err))
	}
	tokens = recognition.Normalize(tokens)

	slog.Debug("Recognition finished",
		"backend", p.recognizer.Name(),
		"mode", mode,
		"orientation", req.Orientation,
		"tokens", len(tokens))

	if mode == PointMode {
		return p.point(ctx, tokens, policy, target), nil
	}
	return p.tokenList(ctx, tokens), nil
}

// plan picks the response mode from the request and the backend capability.
func (p *Pipeline) plan(req Request) (Mode, locate.Policy, locate.Point) {
	boxes := p.recognizer.ProducesBoxes()

	if req.Cursor != nil {
		if !boxes {
			slog.Info("Backend does not produce boxes, returning every token", "backend", p.recognizer.Name())
			return TokenListMode, "", locate.Point{}
		}
		return PointMode, p.cfg.Locate, req.Cursor.Physical()
	}

	if p.cfg.CenterMode == CenterNearest && boxes {
		x, y := req.Image.Center()
		return PointMode, locate.Nearest, locate.Point{X: x, Y: y}
	}
	return TokenListMode, "", locate.Point{}
}

func (p *Pipeline) point(ctx context.Context, tokens []recognition.Token, policy locate.Policy, target locate.Point) *Response {
	if len(tokens) == 0 {
		return PointResponse(Sentinel(NoTextMessage), "", p.cfg.PointShape)
	}

	token, ok := locate.Locate(policy, tokens, target)
	if !ok {
		slog.Debug("No token at target", "policy", policy, "x", target.X, "y", target.Y)
		return PointResponse(Sentinel(NoWordMessage), "", p.cfg.PointShape)
	}

	return PointResponse(p.dictionary.Lookup(ctx, token.Text), token.Text, p.cfg.PointShape)
}

// tokenList classifies every token and looks up the ideographic ones
// concurrently. Results are written by position so order follows the tokens.
func (p *Pipeline) tokenList(ctx context.Context, tokens []recognition.Token) *Response {
	type slot struct {
		entry dictionary.Entry
		keep  bool
	}
	slots := make([]slot, len(tokens))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	for i, token := range tokens {
		switch script.Classify(token.Text, p.cfg.Kana) {
		case script.Skip:
			continue
		case script.Report:
			slots[i] = slot{entry: Passthrough(token.Text), keep: true}
		case script.Lookup:
			g.Go(func() error {
				slots[i] = slot{entry: p.dictionary.Lookup(ctx, token.Text), keep: true}
				return nil
			})
		}
	}
	_ = g.Wait()

	entries := make([]dictionary.Entry, 0, len(slots))
	for _, s := range slots {
		if s.keep {
			entries = append(entries, s.entry)
		}
	}
	return TokenListResponse(entries)
}
