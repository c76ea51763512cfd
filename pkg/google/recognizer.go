package google

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

// maxResults of 0 lets the API return every annotation.
const maxResults = 0

type detectFunc func(ctx context.Context, img *visionpb.Image, ictx *visionpb.ImageContext) ([]*visionpb.EntityAnnotation, error)

// Recognizer runs Google Cloud Vision text detection. Credentials come from
// GOOGLE_APPLICATION_CREDENTIALS or the ambient environment.
type Recognizer struct {
	detect    detectFunc
	close     func() error
	languages map[recognition.Orientation][]string
}

func New(cfg recognition.Config) (recognition.Recognizer, error) {
	ctx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	client, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create vision client: %w", err)
	}

	return &Recognizer{
		detect: func(ctx context.Context, img *visionpb.Image, ictx *visionpb.ImageContext) ([]*visionpb.EntityAnnotation, error) {
			return client.DetectTexts(ctx, img, ictx, maxResults)
		},
		close: client.Close,
		languages: map[recognition.Orientation][]string{
			recognition.Horizontal: cfg.LanguagesFor(recognition.Horizontal, "ja"),
			recognition.Vertical:   cfg.LanguagesFor(recognition.Vertical, "ja"),
		},
	}, nil
}

func (r *Recognizer) Name() string {
	return "google"
}

func (r *Recognizer) ProducesBoxes() bool {
	return true
}

func (r *Recognizer) Recognize(ctx context.Context, img *screenshot.Image, opts recognition.Options) ([]recognition.Token, error) {
	image, err := vision.NewImageFromReader(bytes.NewReader(img.Raw))
	if err != nil {
		return nil, fmt.Errorf("unable to read image: %w", err)
	}

	annotations, err := r.detect(ctx, image, &visionpb.ImageContext{
		LanguageHints: r.languages[opts.Orientation],
	})
	if err != nil {
		return nil, fmt.Errorf("text detection failed: %w", err)
	}

	tokens := toTokens(annotations)
	slog.Debug("Google Vision recognition completed", "orientation", opts.Orientation, "tokens", len(tokens))
	return tokens, nil
}

func (r *Recognizer) Close() error {
	return r.close()
}

// toTokens skips the first annotation, which holds the full text of the image,
// and annotations without vertices.
func toTokens(annotations []*visionpb.EntityAnnotation) []recognition.Token {
	if len(annotations) < 2 {
		return nil
	}

	tokens := make([]recognition.Token, 0, len(annotations)-1)
	for _, a := range annotations[1:] {
		var points [][2]float64
		for _, v := range a.GetBoundingPoly().GetVertices() {
			points = append(points, [2]float64{float64(v.GetX()), float64(v.GetY())})
		}
		box := recognition.BoxFromPolygon(points)
		if box == nil {
			continue
		}
		tokens = append(tokens, recognition.Token{
			Text: a.GetDescription(),
			Box:  box,
		})
	}
	return tokens
}
