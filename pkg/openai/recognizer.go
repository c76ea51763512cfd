package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/lehigh-university-libraries/alphaocr/internal/httpclient"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
	defaultTimeout = 60 * time.Second
)

// Image containers accepted by the vision endpoint; anything else is sent as PNG.
var supportedFormats = []string{"png", "jpeg", "gif", "webp"}

// Recognizer reads words with an OpenAI vision model. It produces no boxes.
type Recognizer struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
	tmpl        *template.Template
}

// Response represents an OpenAI API response
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// TemplateData represents data for API request template
type TemplateData struct {
	Model       string
	Prompt      string
	Temperature float64
	ImageBase64 string
	MimeType    string
}

// New creates the OpenAI backend. OPENAI_API_KEY is required; OPENAI_BASE_URL
// points it at a compatible server.
func New(cfg recognition.Config) (recognition.Recognizer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	tmpl, err := template.New("openai").Parse(requestTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Recognizer{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: cfg.Temperature,
		client:      httpclient.New(timeout),
		tmpl:        tmpl,
	}, nil
}

func (r *Recognizer) Name() string {
	return "openai"
}

func (r *Recognizer) ProducesBoxes() bool {
	return false
}

// Recognize asks the model for the words in the image, one per line.
func (r *Recognizer) Recognize(ctx context.Context, img *screenshot.Image, opts recognition.Options) ([]recognition.Token, error) {
	data, mimeType, err := img.Encoded(supportedFormats...)
	if err != nil {
		return nil, err
	}

	templateData := TemplateData{
		Model:       jsonEscape(r.model),
		Prompt:      jsonEscape(recognition.Prompt(opts.Orientation)),
		Temperature: r.temperature,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    mimeType,
	}

	var requestBuffer bytes.Buffer
	if err := r.tmpl.Execute(&requestBuffer, templateData); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	if !json.Valid(requestBuffer.Bytes()) {
		return nil, fmt.Errorf("generated invalid JSON for model %q", r.model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", &requestBuffer)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	body, resp, err := httpclient.DoAndRead(r.client, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openAI API error: %d - %s", resp.StatusCode, recognition.TruncateBody(body))
	}

	var openaiResp Response
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w - body: %s", err, recognition.TruncateBody(body))
	}

	if len(openaiResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI - body: %s", recognition.TruncateBody(body))
	}

	slog.Debug("OpenAI recognition completed",
		"model", r.model,
		"input_tokens", openaiResp.Usage.PromptTokens,
		"output_tokens", openaiResp.Usage.CompletionTokens)

	text := recognition.CleanResponse(openaiResp.Choices[0].Message.Content)
	return recognition.SplitTokens(text), nil
}

func (r *Recognizer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// jsonEscape properly escapes a string for use in JSON
func jsonEscape(s string) string {
	escaped, _ := json.Marshal(s)
	// Remove the surrounding quotes that json.Marshal adds
	return string(escaped[1 : len(escaped)-1])
}

const requestTemplate = `{
  "model": "{{.Model}}",
  "temperature": {{.Temperature}},
  "messages": [
    {
      "role": "user",
      "content": [
        {
          "type": "text",
          "text": "{{.Prompt}}"
        },
        {
          "type": "image_url",
          "image_url": {
            "url": "data:{{.MimeType}};base64,{{.ImageBase64}}"
          }
        }
      ]
    }
  ]
}`
