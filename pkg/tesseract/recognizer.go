package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
	"github.com/otiai10/gosseract/v2"
)

var defaultLanguages = map[recognition.Orientation][]string{
	recognition.Horizontal: {"jpn"},
	recognition.Vertical:   {"jpn_vert"},
}

// engine is the subset of *gosseract.Client the recognizer drives.
type engine interface {
	SetLanguage(langs ...string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetImageFromBytes(data []byte) error
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// Recognizer runs Tesseract in-process and returns word boxes.
// A single client is shared by all requests; Tesseract is not safe for
// concurrent use, so calls are serialized.
type Recognizer struct {
	mu        sync.Mutex
	client    engine
	languages map[recognition.Orientation][]string
	level     gosseract.PageIteratorLevel
}

// New loads the Tesseract client and checks that the language packs exist.
func New(cfg recognition.Config) (recognition.Recognizer, error) {
	languages := map[recognition.Orientation][]string{
		recognition.Horizontal: cfg.LanguagesFor(recognition.Horizontal, defaultLanguages[recognition.Horizontal]...),
		recognition.Vertical:   cfg.LanguagesFor(recognition.Vertical, defaultLanguages[recognition.Vertical]...),
	}

	available, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("unable to list tesseract language packs: %w", err)
	}
	if err := checkLanguages(languages, available); err != nil {
		return nil, err
	}

	slog.Info("Loaded tesseract", "version", gosseract.Version(), "languages", available)

	return newWithEngine(gosseract.NewClient(), languages, levelFor(cfg.Model)), nil
}

func newWithEngine(client engine, languages map[recognition.Orientation][]string, level gosseract.PageIteratorLevel) *Recognizer {
	return &Recognizer{
		client:    client,
		languages: languages,
		level:     level,
	}
}

func (r *Recognizer) Name() string {
	return "tesseract"
}

func (r *Recognizer) ProducesBoxes() bool {
	return true
}

func (r *Recognizer) Recognize(ctx context.Context, img *screenshot.Image, opts recognition.Options) ([]recognition.Token, error) {
	data, err := imageBytes(img)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// waiting for the lock may outlast the request
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.client.SetLanguage(r.languages[opts.Orientation]...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := r.client.SetPageSegMode(pageSegMode(opts.Orientation)); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := r.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(r.level)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	tokens := make([]recognition.Token, 0, len(boxes))
	for _, b := range boxes {
		conf := b.Confidence / 100.0
		tokens = append(tokens, recognition.Token{
			Text: b.Word,
			Box: &recognition.Box{
				Left:   float64(b.Box.Min.X),
				Top:    float64(b.Box.Min.Y),
				Width:  float64(b.Box.Dx()),
				Height: float64(b.Box.Dy()),
			},
			Confidence: &conf,
		})
	}

	slog.Debug("Tesseract recognition completed", "orientation", opts.Orientation, "tokens", len(tokens))
	return tokens, nil
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

func pageSegMode(o recognition.Orientation) gosseract.PageSegMode {
	if o == recognition.Vertical {
		return gosseract.PSM_SINGLE_BLOCK_VERT_TEXT
	}
	return gosseract.PSM_AUTO
}

// levelFor maps the configured model name to an iterator level. Japanese has no
// spaces, so "word" is Tesseract's own segmentation.
func levelFor(model string) gosseract.PageIteratorLevel {
	switch strings.ToLower(model) {
	case "line", "textline":
		return gosseract.RIL_TEXTLINE
	case "symbol":
		return gosseract.RIL_SYMBOL
	default:
		return gosseract.RIL_WORD
	}
}

// imageBytes returns bytes Leptonica can read.
func imageBytes(img *screenshot.Image) ([]byte, error) {
	data, _, err := img.Encoded("png", "jpeg", "tiff", "bmp")
	return data, err
}

func checkLanguages(configured map[recognition.Orientation][]string, available []string) error {
	var missing []string
	for _, langs := range configured {
		for _, lang := range langs {
			if !slices.Contains(available, lang) && !slices.Contains(missing, lang) {
				missing = append(missing, lang)
			}
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("tesseract language packs not installed: %s", strings.Join(missing, ", "))
	}
	return nil
}
