package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/alphaocr/internal/config"
	"github.com/lehigh-university-libraries/alphaocr/pkg/azure"
	"github.com/lehigh-university-libraries/alphaocr/pkg/dictionary"
	"github.com/lehigh-university-libraries/alphaocr/pkg/google"
	"github.com/lehigh-university-libraries/alphaocr/pkg/ollama"
	"github.com/lehigh-university-libraries/alphaocr/pkg/openai"
	"github.com/lehigh-university-libraries/alphaocr/pkg/pipeline"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/tesseract"
)

func newRegistry() *recognition.Registry {
	registry := recognition.NewRegistry()
	registry.Register("tesseract", tesseract.New)
	registry.Register("google", google.New)
	registry.Register("azure", azure.New)
	registry.Register("openai", openai.New)
	registry.Register("ollama", ollama.New)
	return registry
}

// loadConfig reads --config and applies the --backend and --model overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.Recognition.Backend = backend
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Recognition.Model = model
	}

	if registry := newRegistry(); !registry.Has(cfg.Recognition.Backend) {
		return nil, fmt.Errorf("unknown recognition backend %q (available: %s)",
			cfg.Recognition.Backend, strings.Join(registry.List(), ", "))
	}

	return cfg, nil
}

// buildPipeline opens the configured backend and dictionary. The caller
// closes the returned recognizer.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, recognition.Recognizer, error) {
	registry := newRegistry()

	rec, err := registry.Open(cfg.Recognition.Backend, cfg.RecognitionConfig())
	if err != nil {
		return nil, nil, err
	}

	dict, err := dictionary.New(cfg.DictionaryOptions())
	if err != nil {
		rec.Close()
		return nil, nil, fmt.Errorf("failed to create dictionary client: %w", err)
	}

	pcfg, err := cfg.PipelineConfig()
	if err != nil {
		rec.Close()
		return nil, nil, err
	}

	slog.Info("Pipeline ready",
		"backend", rec.Name(),
		"boxes", rec.ProducesBoxes(),
		"locate", pcfg.Locate,
		"kana", pcfg.Kana)

	return pipeline.New(rec, dict, pcfg), rec, nil
}
