package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lehigh-university-libraries/alphaocr/pkg/dictionary"
	"github.com/lehigh-university-libraries/alphaocr/pkg/locate"
	"github.com/lehigh-university-libraries/alphaocr/pkg/pipeline"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/script"
	yaml "go.yaml.in/yaml/v3"
)

const (
	DefaultAddress      = ":5000"
	DefaultBackend      = "tesseract"
	DefaultMaxBodyBytes = 20 << 20
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Dictionary  DictionaryConfig  `yaml:"dictionary"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Debug       DebugConfig       `yaml:"debug"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

type RecognitionConfig struct {
	Backend     string        `yaml:"backend"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`

	// Languages is keyed by orientation ("horizontal", "vertical").
	Languages map[string][]string `yaml:"languages"`
}

type DictionaryConfig struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   float64       `yaml:"rate_limit"`
	CacheSize   int           `yaml:"cache_size"`
	Concurrency int           `yaml:"concurrency"`
}

type PipelineConfig struct {
	Locate     string `yaml:"locate"`
	CenterMode string `yaml:"center_mode"`
	Kana       string `yaml:"kana"`
	PointShape string `yaml:"point_shape"`
}

type DebugConfig struct {
	// ImageDir receives a PNG copy of every decoded request image when set.
	ImageDir string `yaml:"image_dir"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         DefaultAddress,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Recognition: RecognitionConfig{
			Backend: DefaultBackend,
		},
		Dictionary: DictionaryConfig{
			URL:         dictionary.DefaultURL,
			Timeout:     dictionary.DefaultTimeout,
			CacheSize:   1024,
			Concurrency: pipeline.DefaultConcurrency,
		},
		Pipeline: PipelineConfig{
			Locate:     string(locate.Containment),
			CenterMode: string(pipeline.CenterTokens),
			Kana:       string(script.Passthrough),
			PointShape: string(pipeline.ShapeObject),
		},
	}
}

// Load reads a YAML file over the defaults. Environment variables in the file
// are expanded and unknown fields are rejected. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		data = []byte(os.ExpandEnv(string(data)))

		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)

		// a file without documents (empty or only comments) decodes to io.EOF
		if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("unable to parse %s: %w", path, err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address must be set"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Recognition.Backend == "" {
		errs = append(errs, errors.New("recognition.backend must be set"))
	}
	for key := range c.Recognition.Languages {
		if _, err := recognition.ParseOrientation(key); err != nil || key == "" {
			errs = append(errs, fmt.Errorf("recognition.languages: unknown orientation %q", key))
		}
	}
	if c.Dictionary.Timeout <= 0 {
		errs = append(errs, errors.New("dictionary.timeout must be positive"))
	}
	if c.Dictionary.RateLimit < 0 {
		errs = append(errs, errors.New("dictionary.rate_limit must not be negative"))
	}
	if c.Dictionary.CacheSize < 0 {
		errs = append(errs, errors.New("dictionary.cache_size must not be negative"))
	}
	if _, err := c.PipelineConfig(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RecognitionConfig returns the backend settings.
func (c *Config) RecognitionConfig() recognition.Config {
	languages := map[recognition.Orientation][]string{}
	for key, langs := range c.Recognition.Languages {
		if o, err := recognition.ParseOrientation(key); err == nil {
			languages[o] = langs
		}
	}

	return recognition.Config{
		Backend:     c.Recognition.Backend,
		Model:       c.Recognition.Model,
		Temperature: c.Recognition.Temperature,
		Timeout:     c.Recognition.Timeout,
		Languages:   languages,
	}
}

func (c *Config) DictionaryOptions() dictionary.Options {
	return dictionary.Options{
		URL:       c.Dictionary.URL,
		Timeout:   c.Dictionary.Timeout,
		RateLimit: c.Dictionary.RateLimit,
		CacheSize: c.Dictionary.CacheSize,
	}
}

func (c *Config) PipelineConfig() (pipeline.Config, error) {
	policy, err := locate.ParsePolicy(c.Pipeline.Locate)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("pipeline.locate: %w", err)
	}
	center, err := pipeline.ParseCenterMode(c.Pipeline.CenterMode)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("pipeline.center_mode: %w", err)
	}
	kana, err := script.ParseKanaPolicy(c.Pipeline.Kana)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("pipeline.kana: %w", err)
	}
	shape, err := pipeline.ParsePointShape(c.Pipeline.PointShape)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("pipeline.point_shape: %w", err)
	}

	return pipeline.Config{
		Locate:      policy,
		CenterMode:  center,
		Kana:        kana,
		PointShape:  shape,
		Concurrency: c.Dictionary.Concurrency,
	}, nil
}
