package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehigh-university-libraries/alphaocr/pkg/locate"
	"github.com/lehigh-university-libraries/alphaocr/pkg/pipeline"
	"github.com/lehigh-university-libraries/alphaocr/pkg/recognition"
	"github.com/lehigh-university-libraries/alphaocr/pkg/script"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alphaocr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", c.Server.Address)
	assert.Equal(t, int64(20<<20), c.Server.MaxBodyBytes)
	assert.Equal(t, "tesseract", c.Recognition.Backend)
	assert.Equal(t, 5*time.Second, c.Dictionary.Timeout)
	assert.Equal(t, "https://jisho.org/api/v1/search/words?keyword={word}", c.Dictionary.URL)

	pc, err := c.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, locate.Containment, pc.Locate)
	assert.Equal(t, pipeline.CenterTokens, pc.CenterMode)
	assert.Equal(t, script.Passthrough, pc.Kana)
	assert.Equal(t, pipeline.ShapeObject, pc.PointShape)
	assert.Equal(t, 4, pc.Concurrency)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("ALPHAOCR_TEST_MODEL", "llava:13b")

	path := writeConfig(t, `
server:
  address: 127.0.0.1:8080
  read_timeout: 5s
recognition:
  backend: ollama
  model: ${ALPHAOCR_TEST_MODEL}
  timeout: 2m
  languages:
    horizontal: [jpn, eng]
    vertical: [jpn_vert]
dictionary:
  timeout: 1500ms
  rate_limit: 2.5
  cache_size: 0
  concurrency: 8
pipeline:
  locate: nearest
  center_mode: nearest
  kana: drop
  point_shape: list
debug:
  image_dir: /tmp/alphaocr
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", c.Server.Address)
	assert.Equal(t, 5*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, c.Server.WriteTimeout, "unset fields keep their defaults")
	assert.Equal(t, "/tmp/alphaocr", c.Debug.ImageDir)

	rc := c.RecognitionConfig()
	assert.Equal(t, "ollama", rc.Backend)
	assert.Equal(t, "llava:13b", rc.Model)
	assert.Equal(t, 2*time.Minute, rc.Timeout)
	assert.Equal(t, []string{"jpn", "eng"}, rc.Languages[recognition.Horizontal])
	assert.Equal(t, []string{"jpn_vert"}, rc.Languages[recognition.Vertical])

	opts := c.DictionaryOptions()
	assert.Equal(t, 1500*time.Millisecond, opts.Timeout)
	assert.Equal(t, 2.5, opts.RateLimit)
	assert.Equal(t, 0, opts.CacheSize)

	pc, err := c.PipelineConfig()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Config{
		Locate:      locate.Nearest,
		CenterMode:  pipeline.CenterNearest,
		Kana:        script.Drop,
		PointShape:  pipeline.ShapeList,
		Concurrency: 8,
	}, pc)
}

func TestLoad_EmptyFile(t *testing.T) {
	for name, content := range map[string]string{
		"blank":         "\n",
		"comments only": "# all defaults\n# server:\n#   address: \":8080\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			c, err := Load(writeConfig(t, content))
			require.NoError(t, err)
			assert.Equal(t, Default(), c)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		errorContains string
	}{
		{
			name:          "unknown field",
			content:       "server:\n  port: 5000\n",
			errorContains: "field port not found",
		},
		{
			name:          "bad duration",
			content:       "dictionary:\n  timeout: soon\n",
			errorContains: "unable to parse",
		},
		{
			name:          "unknown locate policy",
			content:       "pipeline:\n  locate: closest\n",
			errorContains: "pipeline.locate",
		},
		{
			name:          "unknown kana policy",
			content:       "pipeline:\n  kana: romaji\n",
			errorContains: "pipeline.kana",
		},
		{
			name:          "unknown orientation",
			content:       "recognition:\n  languages:\n    diagonal: [jpn]\n",
			errorContains: "diagonal",
		},
		{
			name:          "negative rate limit",
			content:       "dictionary:\n  rate_limit: -1\n",
			errorContains: "rate_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
