package recognition

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(the\s+)?text\s+in\s+(the\s+)?image\s+(is|says|reads):?\s*`),
	regexp.MustCompile(`(?i)^(the\s+)?image\s+contains\s+(the\s+following\s+)?(text|words):?\s*`),
	regexp.MustCompile(`(?i)^here'?s?\s+(are\s+)?(the\s+)?(text|words)\s+(extracted\s+)?from\s+(the\s+)?image:?\s*`),
	regexp.MustCompile(`(?i)^(i\s+can\s+see\s+)?text\s+(that\s+says|reading):?\s*`),
	regexp.MustCompile(`(?i)^certainly!\s+here'?s?\s+(are\s+)?(the\s+)?(text|words)\s+(extracted\s+)?from\s+(the\s+)?image:?\s*`),
}

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-*・•])\s*`)

// CleanResponse strips the chatter vision models like to put around their answer.
func CleanResponse(response string) string {
	response = strings.TrimSpace(response)

	for _, re := range prefixPatterns {
		response = re.ReplaceAllString(response, "")
		response = strings.TrimSpace(response)
	}

	// Remove markdown code blocks if present
	if strings.HasPrefix(response, "```") && strings.HasSuffix(response, "```") {
		response = strings.TrimSuffix(strings.TrimPrefix(response, "```"), "```")
		// drop a language tag such as ```text
		if first, rest, ok := strings.Cut(response, "\n"); ok && isASCIIWord(strings.TrimSpace(first)) {
			response = rest
		}
		response = strings.TrimSpace(response)
	}

	return strings.Trim(response, `"'`)
}

// SplitTokens turns a cleaned text-only answer into tokens, one per line.
// List markers and surrounding quotes on each line are removed.
func SplitTokens(text string) []Token {
	var tokens []Token
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(line, "\"'「」 　")
		if line == "" {
			continue
		}
		tokens = append(tokens, Token{Text: line})
	}
	return tokens
}

// TruncateBody truncates a response body to a maximum length for error messages.
func TruncateBody(body []byte, maxLen ...int) string {
	limit := 500
	if len(maxLen) > 0 && maxLen[0] > 0 {
		limit = maxLen[0]
	}
	s := string(body)
	if len(s) > limit {
		// back off to a rune boundary so the cut never splits a character
		for limit > 0 && !utf8.RuneStart(s[limit]) {
			limit--
		}
		return s[:limit] + "... (truncated)"
	}
	return s
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > 0x7f || r == ' ' {
			return false
		}
	}
	return true
}
