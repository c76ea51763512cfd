package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/alphaocr/internal/httpclient"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

const (
	DefaultURL   = "http://localhost:11434"
	DefaultModel = "llava"
	// Local inference is slow.
	defaultTimeout = 300 * time.Second
)

// Recognizer reads words with a local Ollama vision model. It produces no boxes.
type Recognizer struct {
	url         string
	model       string
	temperature float64
	client      *http.Client
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type generateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// New creates the Ollama backend, talking to OLLAMA_URL or the local default.
func New(cfg recognition.Config) (recognition.Recognizer, error) {
	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Recognizer{
		url:         strings.TrimSuffix(ollamaURL, "/"),
		model:       model,
		temperature: cfg.Temperature,
		client:      httpclient.New(timeout),
	}, nil
}

func (r *Recognizer) Name() string {
	return "ollama"
}

func (r *Recognizer) ProducesBoxes() bool {
	return false
}

func (r *Recognizer) Recognize(ctx context.Context, img *screenshot.Image, opts recognition.Options) ([]recognition.Token, error) {
	data, _, err := img.Encoded("png", "jpeg")
	if err != nil {
		return nil, err
	}

	requestJSON, err := json.Marshal(generateRequest{
		Model:  r.model,
		Prompt: recognition.Prompt(opts.Orientation),
		Images: []string{base64.StdEncoding.EncodeToString(data)},
		Stream: false,
		Options: map[string]any{
			"temperature": r.temperature,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/generate", r.url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestJSON))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, resp, err := httpclient.DoAndRead(r.client, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error: %d - %s", resp.StatusCode, recognition.TruncateBody(body))
	}

	var ollamaResp generateResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if ollamaResp.Response == nil {
		return nil, fmt.Errorf("no response from Ollama")
	}

	return recognition.SplitTokens(recognition.CleanResponse(*ollamaResp.Response)), nil
}

func (r *Recognizer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}
