package recognition

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

type stubRecognizer struct{ name string }

func (s *stubRecognizer) Name() string        { return s.name }
func (s *stubRecognizer) ProducesBoxes() bool { return false }
func (s *stubRecognizer) Close() error        { return nil }
func (s *stubRecognizer) Recognize(context.Context, *screenshot.Image, Options) ([]Token, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("Stub", func(cfg Config) (Recognizer, error) {
		return &stubRecognizer{name: "stub"}, nil
	})
	r.Register("broken", func(cfg Config) (Recognizer, error) {
		return nil, errors.New("language pack jpn not installed")
	})

	if !r.Has("stub") || !r.Has("STUB") {
		t.Error("lookup should be case insensitive")
	}

	rec, err := r.Open("stub", Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if rec.Name() != "stub" {
		t.Errorf("unexpected backend %q", rec.Name())
	}

	if _, err := r.Open("broken", Config{}); err == nil || !strings.Contains(err.Error(), "language pack") {
		t.Errorf("expected factory error to be wrapped, got %v", err)
	}

	_, err = r.Open("missing", Config{})
	if err == nil || !strings.Contains(err.Error(), "broken, stub") {
		t.Errorf("expected error listing available backends, got %v", err)
	}
}

func TestParseOrientation(t *testing.T) {
	tests := []struct {
		input       string
		expected    Orientation
		expectError bool
	}{
		{"", Horizontal, false},
		{"horizontal", Horizontal, false},
		{"Vertical", Vertical, false},
		{" vertical ", Vertical, false},
		{"diagonal", "", true},
	}

	for _, tt := range tests {
		got, err := ParseOrientation(tt.input)
		if tt.expectError != (err != nil) {
			t.Errorf("ParseOrientation(%q) error = %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("ParseOrientation(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBoxContainsInclusiveEdges(t *testing.T) {
	b := Box{Left: 10, Top: 10, Width: 20, Height: 20}

	inside := [][2]float64{{10, 10}, {30, 30}, {15, 15}, {10, 30}, {30, 10}}
	for _, p := range inside {
		if !b.Contains(p[0], p[1]) {
			t.Errorf("expected %v to be inside", p)
		}
	}

	outside := [][2]float64{{31, 31}, {9.99, 15}, {15, 30.01}}
	for _, p := range outside {
		if b.Contains(p[0], p[1]) {
			t.Errorf("expected %v to be outside", p)
		}
	}
}

func TestBoxFromPolygon(t *testing.T) {
	got := BoxFromPolygon([][2]float64{{12, 5}, {40, 7}, {41, 25}, {10, 24}})
	want := &Box{Left: 10, Top: 5, Width: 31, Height: 20}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BoxFromPolygon() = %+v, want %+v", got, want)
	}

	if BoxFromPolygon(nil) != nil {
		t.Error("expected nil box for empty polygon")
	}
}

func TestNormalize(t *testing.T) {
	tokens := Normalize([]Token{{Text: " 日本 "}, {Text: "  "}, {Text: ""}, {Text: "語\n"}})

	if len(tokens) != 2 || tokens[0].Text != "日本" || tokens[1].Text != "語" {
		t.Errorf("unexpected tokens %+v", tokens)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "日本語", "日本語"},
		{"prefix", "The text in the image is: 日本語", "日本語"},
		{"words prefix", "Here are the words from the image:\n百葉箱\n天気", "百葉箱\n天気"},
		{"quoted", "\"日本語\"", "日本語"},
		{"code fence with tag", "```text\n百\n葉\n```", "百\n葉"},
		{"code fence without tag", "```\n百葉箱\n```", "百葉箱"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanResponse(tt.input); got != tt.expected {
				t.Errorf("CleanResponse() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSplitTokens(t *testing.T) {
	tokens := SplitTokens("1. 百葉箱\n\n- 天気\n「予報」\n   \n・です")

	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.Text)
		if tok.Box != nil {
			t.Error("text-only tokens must not carry boxes")
		}
	}

	want := []string{"百葉箱", "天気", "予報", "です"}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("SplitTokens() = %v, want %v", texts, want)
	}
}

func TestTruncateBody(t *testing.T) {
	if got := TruncateBody([]byte("short")); got != "short" {
		t.Errorf("unexpected %q", got)
	}
	if got := TruncateBody([]byte(strings.Repeat("a", 20)), 5); got != "aaaaa... (truncated)" {
		t.Errorf("unexpected %q", got)
	}

	// each kanji is three bytes; a 7 byte limit keeps two whole characters
	got := TruncateBody([]byte("認証に失敗しました"), 7)
	if got != "認証... (truncated)" {
		t.Errorf("unexpected %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated body is not valid UTF-8: %q", got)
	}
}

func TestPromptMentionsOrientation(t *testing.T) {
	if !strings.Contains(Prompt(Vertical), "vertically") {
		t.Error("vertical prompt should describe vertical layout")
	}
	if !strings.Contains(Prompt(Horizontal), "horizontally") {
		t.Error("horizontal prompt should describe horizontal layout")
	}
}
