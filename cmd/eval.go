package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
	"golang.org/x/text/width"

	"github.com/lehigh-university-libraries/alphaocr/pkg/locate"
	"github.com/lehigh-university-libraries/alphaocr/pkg/pipeline"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/screenshot"
)

type EvalConfig struct {
	Backend   string `yaml:"backend"`
	Model     string `yaml:"model"`
	CSVPath   string `yaml:"csv_path"`
	Dir       string `yaml:"dir"`
	TestRows  []int  `yaml:"rows"`
	Timestamp string `yaml:"timestamp"`
}

type EvalResult struct {
	Identifier          string  `yaml:"identifier"`
	ImagePath           string  `yaml:"image_path"`
	X                   float64 `yaml:"x"`
	Y                   float64 `yaml:"y"`
	PixelRatio          float64 `yaml:"pixel_ratio"`
	Orientation         string  `yaml:"orientation"`
	Expected            string  `yaml:"expected"`
	Recognized          string  `yaml:"recognized"`
	Furigana            string  `yaml:"furigana"`
	Translation         string  `yaml:"translation"`
	ExactMatch          bool    `yaml:"exact_match"`
	CharacterSimilarity float64 `yaml:"character_similarity"`
	EditDistance        int     `yaml:"edit_distance"`
	NoWord              bool    `yaml:"no_word"`
	DurationMillis      int64   `yaml:"duration_ms"`
}

type EvalSummary struct {
	Config  EvalConfig   `yaml:"config"`
	Results []EvalResult `yaml:"results"`
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate word recognition at cursor positions",
	Long: `Evaluate the pipeline against a CSV of screenshots and expected words.

Each row is image,x,y,pixel_ratio,expected with an optional sixth orientation
column. Results are written to evals/ as YAML. A previous results file can be
passed with --rerun to repeat it with the same settings.`,
	RunE: runEval,
}

var (
	evalCSVPath   string
	evalRerunPath string
	evalDir       string
	evalRows      []int
)

func init() {
	RootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalCSVPath, "csv", "c", "", "Path to CSV file with evaluation data")
	evalCmd.Flags().StringVar(&evalRerunPath, "rerun", "", "Path to a previous evaluation results file to rerun")
	evalCmd.Flags().StringVar(&evalDir, "dir", "./", "Prepend your CSV file paths with a directory")
	evalCmd.Flags().IntSliceVar(&evalRows, "rows", []int{}, "A list of row numbers to run the test on")

	evalCmd.MarkFlagsOneRequired("csv", "rerun")
	evalCmd.MarkFlagsMutuallyExclusive("csv", "rerun")
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var config EvalConfig
	if evalRerunPath != "" {
		config, err = loadEvalConfig(evalRerunPath)
		if err != nil {
			return fmt.Errorf("failed to load previous evaluation: %w", err)
		}
		fmt.Printf("Loaded configuration from %s\n", evalRerunPath)

		if !cmd.Flags().Changed("backend") && config.Backend != "" {
			cfg.Recognition.Backend = config.Backend
		}
		if !cmd.Flags().Changed("model") {
			cfg.Recognition.Model = config.Model
		}
	} else {
		config = EvalConfig{
			CSVPath:   evalCSVPath,
			Dir:       evalDir,
			Timestamp: time.Now().Format("2006-01-02_15-04-05"),
		}
	}
	config.Backend = cfg.Recognition.Backend
	config.Model = cfg.Recognition.Model

	if cmd.Flags().Changed("rows") {
		config.TestRows = evalRows
	}

	evalsDir := "evals"
	if err := os.MkdirAll(evalsDir, 0755); err != nil {
		return fmt.Errorf("failed to create evals directory: %w", err)
	}

	p, rec, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer rec.Close()

	file, err := os.Open(config.CSVPath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	results, err := processEvaluation(cmd.Context(), p, config, file)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	summary := EvalSummary{
		Config:  config,
		Results: results,
	}

	outputPath := filepath.Join(evalsDir, fmt.Sprintf("eval_%s.yaml", config.Timestamp))
	if err := saveEvalResults(summary, outputPath); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	fmt.Printf("\nEvaluation completed. Results saved to: %s\n", outputPath)
	printSummaryStats(os.Stdout, results)

	return nil
}

func loadEvalConfig(path string) (EvalConfig, error) {
	var summary EvalSummary

	data, err := os.ReadFile(path)
	if err != nil {
		return EvalConfig{}, err
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return EvalConfig{}, err
	}
	if summary.Config.CSVPath == "" {
		return EvalConfig{}, fmt.Errorf("%s has no csv_path", path)
	}

	// Update timestamp for rerun
	summary.Config.Timestamp = time.Now().Format("2006-01-02_15-04-05")

	return summary.Config, nil
}

func processEvaluation(ctx context.Context, p *pipeline.Pipeline, config EvalConfig, r io.Reader) ([]EvalResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	// Skip header row if present
	dataRows := records
	if strings.EqualFold(strings.TrimSpace(records[0][0]), "image") {
		dataRows = records[1:]
	}

	var results []EvalResult
	for i, row := range dataRows {
		if len(config.TestRows) > 0 && !slices.Contains(config.TestRows, i) {
			slog.Debug("Skipping row", "row", i+1)
			continue
		}
		if len(row) < 5 {
			slog.Warn("Insufficient columns", "row", i+1)
			continue
		}

		result, err := processRow(ctx, p, config.Dir, row)
		if err != nil {
			slog.Error("Error processing row", "row", i+1, "err", err)
			continue
		}

		results = append(results, result)
		printRowResult(os.Stdout, result)
	}

	return results, nil
}

func processRow(ctx context.Context, p *pipeline.Pipeline, dir string, row []string) (EvalResult, error) {
	imagePath := filepath.Join(dir, strings.TrimSpace(row[0]))

	var coords [3]float64
	for i, field := range row[1:4] {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return EvalResult{}, fmt.Errorf("invalid number %q: %w", field, err)
		}
		coords[i] = v
	}
	cursor := locate.Cursor{X: coords[0], Y: coords[1], PixelRatio: coords[2]}
	if err := cursor.Validate(); err != nil {
		return EvalResult{}, err
	}

	orientation := recognition.Horizontal
	if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
		o, err := recognition.ParseOrientation(strings.TrimSpace(row[5]))
		if err != nil {
			return EvalResult{}, err
		}
		orientation = o
	}

	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := screenshot.FromBytes(raw)
	if err != nil {
		return EvalResult{}, fmt.Errorf("failed to decode image: %w", err)
	}

	start := time.Now()
	resp, err := p.Process(ctx, pipeline.Request{
		Image:       img,
		Cursor:      &cursor,
		Orientation: orientation,
	})
	if err != nil {
		return EvalResult{}, err
	}

	expected := strings.TrimSpace(row[4])
	result := EvalResult{
		Identifier:     filepath.Base(imagePath),
		ImagePath:      imagePath,
		X:              cursor.X,
		Y:              cursor.Y,
		PixelRatio:     cursor.PixelRatio,
		Orientation:    string(orientation),
		Expected:       expected,
		Recognized:     resp.Word,
		NoWord:         resp.IsSentinel(),
		DurationMillis: time.Since(start).Milliseconds(),
	}
	if len(resp.Entries) > 0 {
		result.Furigana = resp.Entries[0].Furigana
		result.Translation = resp.Entries[0].Translation
	}

	exp, got := normalizeText(expected), normalizeText(resp.Word)
	result.ExactMatch = exp == got
	result.EditDistance = levenshteinDistance(exp, got)
	result.CharacterSimilarity = calculateSimilarity(exp, got)

	return result, nil
}

func saveEvalResults(summary EvalSummary, outputPath string) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(outputPath, data, 0644)
}

func printRowResult(w io.Writer, result EvalResult) {
	fmt.Fprintf(w, "\n=== Results for %s (%.0f, %.0f) ===\n", result.Identifier, result.X, result.Y)
	fmt.Fprintf(w, "Expected: %s\n", result.Expected)
	fmt.Fprintf(w, "Recognized: %s\n", result.Recognized)
	fmt.Fprintf(w, "Translation: %s\n", result.Translation)
	fmt.Fprintf(w, "Exact Match: %t\n", result.ExactMatch)
	fmt.Fprintf(w, "Character Similarity: %.3f\n", result.CharacterSimilarity)
	fmt.Fprintf(w, "Duration: %dms\n", result.DurationMillis)
}

func printSummaryStats(w io.Writer, results []EvalResult) {
	if len(results) == 0 {
		return
	}

	var totalSim float64
	var matches, noWord int
	for _, result := range results {
		totalSim += result.CharacterSimilarity
		if result.ExactMatch {
			matches++
		}
		if result.NoWord {
			noWord++
		}
	}

	count := float64(len(results))

	fmt.Fprintf(w, "\n=== SUMMARY STATISTICS ===\n")
	fmt.Fprintf(w, "Total Evaluations: %d\n", len(results))
	fmt.Fprintf(w, "Exact Match Rate: %.3f\n", float64(matches)/count)
	fmt.Fprintf(w, "Average Character Similarity: %.3f\n", totalSim/count)
	fmt.Fprintf(w, "No Word Found: %d\n", noWord)
}

var whitespace = regexp.MustCompile(`\s+`)

// normalizeText folds full-width ASCII and half-width katakana, collapses
// whitespace and lowercases.
func normalizeText(text string) string {
	text = width.Fold.String(text)
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), " ")

	return strings.ToLower(text)
}

func levenshteinDistance(s1, s2 string) int {
	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 {
		return len2
	}
	if len2 == 0 {
		return len1
	}

	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len1][len2]
}

func calculateSimilarity(s1, s2 string) float64 {
	maxLen := max(len([]rune(s1)), len([]rune(s2)))
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshteinDistance(s1, s2)
	return 1.0 - float64(distance)/float64(maxLen)
}
