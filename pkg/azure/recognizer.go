package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alphaocr/internal/httpclient"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultPollInterval = time.Second
	maxPollAttempts     = 30
)

// Recognizer implements the Azure Computer Vision Read 3.2 backend.
type Recognizer struct {
	endpoint     string
	apiKey       string
	languages    map[recognition.Orientation][]string
	client       *http.Client
	pollInterval time.Duration
}

type readOperation struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		ReadResults []struct {
			Page  int `json:"page"`
			Lines []struct {
				BoundingBox []float64 `json:"boundingBox"`
				Text        string    `json:"text"`
				Words       []struct {
					BoundingBox []float64 `json:"boundingBox"`
					Text        string    `json:"text"`
					Confidence  *float64  `json:"confidence"`
				} `json:"words"`
			} `json:"lines"`
		} `json:"readResults"`
	} `json:"analyzeResult"`
}

// New creates the Azure backend from AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY.
func New(cfg recognition.Config) (recognition.Recognizer, error) {
	endpoint := os.Getenv("AZURE_OCR_ENDPOINT")
	apiKey := os.Getenv("AZURE_OCR_API_KEY")

	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("AZURE_OCR_ENDPOINT and AZURE_OCR_API_KEY environment variables must be set")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Recognizer{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		languages: map[recognition.Orientation][]string{
			recognition.Horizontal: cfg.LanguagesFor(recognition.Horizontal, "ja"),
			recognition.Vertical:   cfg.LanguagesFor(recognition.Vertical, "ja"),
		},
		client:       httpclient.New(timeout),
		pollInterval: defaultPollInterval,
	}, nil
}

func (r *Recognizer) Name() string {
	return "azure"
}

func (r *Recognizer) ProducesBoxes() bool {
	return true
}

// Recognize submits the image to the Read API and polls until the analysis finishes.
func (r *Recognizer) Recognize(ctx context.Context, img *screenshot.Image, opts recognition.Options) ([]recognition.Token, error) {
	data, _, err := img.Encoded("png", "jpeg", "bmp", "tiff")
	if err != nil {
		return nil, err
	}

	readURL := fmt.Sprintf("%s/vision/v3.2/read/analyze", r.endpoint)
	if langs := r.languages[opts.Orientation]; len(langs) > 0 {
		readURL += "?language=" + url.QueryEscape(langs[0])
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, readURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", r.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	body, resp, err := httpclient.DoAndRead(r.client, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("azure OCR API error: %d - %s", resp.StatusCode, recognition.TruncateBody(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return nil, fmt.Errorf("no operation location returned from Azure OCR")
	}

	op, err := r.poll(ctx, operationURL)
	if err != nil {
		return nil, err
	}

	tokens := extractTokens(op)
	slog.Debug("Azure recognition completed", "orientation", opts.Orientation, "tokens", len(tokens))
	return tokens, nil
}

func (r *Recognizer) poll(ctx context.Context, operationURL string) (*readOperation, error) {
	for attempts := 0; attempts < maxPollAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", r.apiKey)

		body, resp, err := httpclient.DoAndRead(r.client, req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			continue
		}

		var op readOperation
		if err := json.Unmarshal(body, &op); err != nil {
			return nil, fmt.Errorf("invalid response format from Azure OCR: %w", err)
		}

		switch op.Status {
		case "succeeded":
			return &op, nil
		case "failed":
			return nil, fmt.Errorf("azure OCR analysis failed")
		}
		// Continue polling if status is "running" or "notStarted"
	}

	return nil, fmt.Errorf("azure OCR operation timed out")
}

func (r *Recognizer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// extractTokens flattens pages, lines and words into tokens in reading order.
// Lines without word detail become a single token. Words without a polygon
// take their line's box; regions with no geometry at all are dropped.
func extractTokens(op *readOperation) []recognition.Token {
	var tokens []recognition.Token
	for _, page := range op.AnalyzeResult.ReadResults {
		for _, line := range page.Lines {
			lineBox := recognition.BoxFromPolygon(polygon(line.BoundingBox))
			if len(line.Words) == 0 {
				if lineBox == nil {
					slog.Debug("Dropping Azure line without geometry", "text", line.Text)
					continue
				}
				tokens = append(tokens, recognition.Token{Text: line.Text, Box: lineBox})
				continue
			}
			for _, word := range line.Words {
				box := recognition.BoxFromPolygon(polygon(word.BoundingBox))
				if box == nil {
					box = lineBox
				}
				if box == nil {
					slog.Debug("Dropping Azure word without geometry", "text", word.Text)
					continue
				}
				tokens = append(tokens, recognition.Token{
					Text:       word.Text,
					Box:        box,
					Confidence: word.Confidence,
				})
			}
		}
	}
	return tokens
}

// polygon pairs up Azure's flat [x1, y1, x2, y2, ...] coordinate list.
func polygon(flat []float64) [][2]float64 {
	points := make([][2]float64, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		points = append(points, [2]float64{flat[i], flat[i+1]})
	}
	return points
}
