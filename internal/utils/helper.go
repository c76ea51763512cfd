package utils

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

type maskRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Credentials used by the recognition backends: Google API keys in query strings,
// OpenAI bearer tokens and Azure subscription keys.
var maskRules = []maskRule{
	{regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`), `${1}${2}=***MASKED***`},
	{regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`), `Bearer ***MASKED***`},
	{regexp.MustCompile(`Ocp-Apim-Subscription-Key:\s*([^\s]+)`), `Ocp-Apim-Subscription-Key: ***MASKED***`},
}

// MaskSensitiveData masks API keys and tokens in s.
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}
	for _, rule := range maskRules {
		s = rule.pattern.ReplaceAllString(s, rule.replacement)
	}
	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

// SummarizeDataURL shortens an image data URL for logs, keeping the header
// and the payload size.
func SummarizeDataURL(s string) string {
	header, payload, ok := strings.Cut(s, ",")
	if !ok {
		if len(s) > 32 {
			return fmt.Sprintf("%s... (%d bytes)", s[:32], len(s))
		}
		return s
	}
	return fmt.Sprintf("%s,<%d bytes>", header, len(payload))
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
