package cmd

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/alphaocr/pkg/dictionary"
	"github.com/lehigh-university-libraries/alphaocr/pkg/pipeline"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

type evalRecognizer struct {
	tokens []recognition.Token
}

func (r *evalRecognizer) Name() string        { return "eval" }
func (r *evalRecognizer) ProducesBoxes() bool { return true }
func (r *evalRecognizer) Close() error        { return nil }

func (r *evalRecognizer) Recognize(ctx context.Context, img *screenshot.Image, opts recognition.Options) ([]recognition.Token, error) {
	return r.tokens, nil
}

type evalDictionary struct{}

func (evalDictionary) Lookup(ctx context.Context, word string) dictionary.Entry {
	return dictionary.Entry{Text: word, Furigana: "よみ", Translation: "meaning of " + word}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessEvaluation(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page.png"), 200, 100)

	rec := &evalRecognizer{tokens: []recognition.Token{
		{Text: "日本語", Box: &recognition.Box{Left: 10, Top: 10, Width: 60, Height: 20}},
		{Text: "勉強", Box: &recognition.Box{Left: 100, Top: 10, Width: 40, Height: 20}},
	}}
	p := pipeline.New(rec, evalDictionary{}, pipeline.Config{})

	csvData := strings.Join([]string{
		"image,x,y,pixel_ratio,expected",
		"page.png,20,15,1,日本語",
		"page.png,55,10,2,勉強",
		"page.png,5,90,1,日本語",
		"page.png,not-a-number,1,1,x",
		"page.png,1,1",
	}, "\n")

	results, err := processEvaluation(context.Background(), p, EvalConfig{Dir: dir}, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("processEvaluation() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	tests := []struct {
		recognized string
		match      bool
		noWord     bool
		similarity float64
	}{
		{"日本語", true, false, 1.0},
		{"勉強", true, false, 1.0},
		{"", false, true, 0.0},
	}

	for i, tt := range tests {
		got := results[i]
		if got.Recognized != tt.recognized {
			t.Errorf("row %d: Recognized = %q, want %q", i, got.Recognized, tt.recognized)
		}
		if got.ExactMatch != tt.match {
			t.Errorf("row %d: ExactMatch = %t, want %t", i, got.ExactMatch, tt.match)
		}
		if got.NoWord != tt.noWord {
			t.Errorf("row %d: NoWord = %t, want %t", i, got.NoWord, tt.noWord)
		}
		if diff := got.CharacterSimilarity - tt.similarity; diff > 0.01 || diff < -0.01 {
			t.Errorf("row %d: CharacterSimilarity = %.3f, want %.3f", i, got.CharacterSimilarity, tt.similarity)
		}
	}

	if results[0].Translation != "meaning of 日本語" {
		t.Errorf("Translation = %q", results[0].Translation)
	}
}

func TestProcessEvaluationRows(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "page.png"), 100, 50)

	rec := &evalRecognizer{tokens: []recognition.Token{
		{Text: "猫", Box: &recognition.Box{Left: 0, Top: 0, Width: 50, Height: 50}},
	}}
	p := pipeline.New(rec, evalDictionary{}, pipeline.Config{})

	csvData := "page.png,10,10,1,猫\npage.png,10,10,1,犬\npage.png,10,10,1,猫,vertical\n"

	results, err := processEvaluation(context.Background(), p, EvalConfig{Dir: dir, TestRows: []int{1, 2}}, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("processEvaluation() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ExactMatch {
		t.Errorf("expected 犬 to mismatch 猫")
	}
	if results[1].Orientation != "vertical" {
		t.Errorf("Orientation = %q, want vertical", results[1].Orientation)
	}
}

func TestProcessEvaluationEmpty(t *testing.T) {
	p := pipeline.New(&evalRecognizer{}, evalDictionary{}, pipeline.Config{})

	_, err := processEvaluation(context.Background(), p, EvalConfig{}, strings.NewReader(""))
	if err == nil {
		t.Fatal("expected an error for an empty CSV")
	}
}

func TestLoadEvalConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eval.yaml")

	summary := EvalSummary{
		Config: EvalConfig{
			Backend:   "google",
			Model:     "",
			CSVPath:   "testdata/words.csv",
			Dir:       "testdata",
			TestRows:  []int{0, 3},
			Timestamp: "2020-01-01_00-00-00",
		},
		Results: []EvalResult{{Identifier: "page.png", Expected: "日本語", Recognized: "日本語", ExactMatch: true}},
	}
	if err := saveEvalResults(summary, path); err != nil {
		t.Fatalf("saveEvalResults() error = %v", err)
	}

	got, err := loadEvalConfig(path)
	if err != nil {
		t.Fatalf("loadEvalConfig() error = %v", err)
	}

	if got.Backend != "google" || got.CSVPath != "testdata/words.csv" || got.Dir != "testdata" {
		t.Errorf("loadEvalConfig() = %+v", got)
	}
	if len(got.TestRows) != 2 || got.TestRows[1] != 3 {
		t.Errorf("TestRows = %v, want [0 3]", got.TestRows)
	}
	if got.Timestamp == summary.Config.Timestamp {
		t.Errorf("expected a fresh timestamp for the rerun")
	}
}

func TestLoadEvalConfigMissingCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.yaml")
	if err := os.WriteFile(path, []byte("config:\n  backend: tesseract\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadEvalConfig(path); err == nil {
		t.Fatal("expected an error when csv_path is missing")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello   world ", "hello world"},
		{"ＡＢＣ", "abc"},
		{"ｶﾀｶﾅ", "カタカナ"},
		{"日本語", "日本語"},
	}

	for _, tt := range tests {
		if got := normalizeText(tt.input); got != tt.expected {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		name     string
		s1       string
		s2       string
		expected int
	}{
		{
			name:     "identical strings",
			s1:       "hello",
			s2:       "hello",
			expected: 0,
		},
		{
			name:     "one substitution",
			s1:       "hello",
			s2:       "hallo",
			expected: 1,
		},
		{
			name:     "one insertion",
			s1:       "hello",
			s2:       "helloo",
			expected: 1,
		},
		{
			name:     "one deletion",
			s1:       "hello",
			s2:       "hell",
			expected: 1,
		},
		{
			name:     "empty strings",
			s1:       "",
			s2:       "",
			expected: 0,
		},
		{
			name:     "one empty string",
			s1:       "hello",
			s2:       "",
			expected: 5,
		},
		{
			name:     "kanji counted per character",
			s1:       "日本語",
			s2:       "日本",
			expected: 1,
		},
		{
			name:     "kanji substitution",
			s1:       "勉強",
			s2:       "勉張",
			expected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levenshteinDistance(tt.s1, tt.s2)
			if got != tt.expected {
				t.Errorf("levenshteinDistance(%q, %q) = %d, want %d",
					tt.s1, tt.s2, got, tt.expected)
			}
		})
	}
}

func TestCalculateSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		s1       string
		s2       string
		expected float64
	}{
		{
			name:     "identical strings",
			s1:       "hello",
			s2:       "hello",
			expected: 1.0,
		},
		{
			name:     "completely different",
			s1:       "abc",
			s2:       "xyz",
			expected: 0.0,
		},
		{
			name:     "one char different",
			s1:       "hello",
			s2:       "hallo",
			expected: 0.8,
		},
		{
			name:     "empty strings",
			s1:       "",
			s2:       "",
			expected: 1.0,
		},
		{
			name:     "missing kanji",
			s1:       "日本語",
			s2:       "日本",
			expected: 0.667,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateSimilarity(tt.s1, tt.s2)
			if diff := got - tt.expected; diff > 0.01 || diff < -0.01 {
				t.Errorf("calculateSimilarity(%q, %q) = %.3f, want %.3f",
					tt.s1, tt.s2, got, tt.expected)
			}
		})
	}
}
