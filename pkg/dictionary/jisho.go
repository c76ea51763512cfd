package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// searchResponse mirrors the parts of the jisho.org word search API we read.
type searchResponse struct {
	Data []match `json:"data"`
}

type match struct {
	Japanese []struct {
		Word    string `json:"word"`
		Reading string `json:"reading"`
	} `json:"japanese"`
	Senses []struct {
		EnglishDefinitions []string `json:"english_definitions"`
	} `json:"senses"`
}

var errNoMatch = errors.New("no matches")

// parseSearch reads the first match of a search response.
func parseSearch(body []byte) (Entry, Reason, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Entry{}, ReasonMalformed, fmt.Errorf("failed to parse dictionary response: %w", err)
	}

	if len(resp.Data) == 0 {
		return Entry{}, ReasonEmpty, errNoMatch
	}

	first := resp.Data[0]
	if len(first.Japanese) == 0 {
		return Entry{}, ReasonMalformed, errors.New("match has no japanese forms")
	}
	if len(first.Senses) == 0 || len(first.Senses[0].EnglishDefinitions) == 0 {
		return Entry{}, ReasonMalformed, errors.New("match has no english definitions")
	}

	form := first.Japanese[0]
	reading := strings.TrimSpace(form.Reading)
	word := strings.TrimSpace(form.Word)
	if reading == "" && word == "" {
		return Entry{}, ReasonMalformed, errors.New("match has neither word nor reading")
	}
	if word == "" {
		// kana-only entries have no written form
		word = reading
	}
	if reading == "" {
		reading = word
	}

	return Entry{
		Text:        word,
		Furigana:    reading,
		Translation: strings.Join(first.Senses[0].EnglishDefinitions, ", "),
	}, ReasonFound, nil
}
