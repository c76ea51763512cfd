package script

import (
	"fmt"
	"strings"
)

const (
	ideographFirst = 0x4E00
	ideographLast  = 0x9FFF
)

// ContainsIdeograph reports whether text has at least one rune in the
// CJK Unified Ideographs block (U+4E00 to U+9FFF).
func ContainsIdeograph(text string) bool {
	for _, r := range text {
		if r >= ideographFirst && r <= ideographLast {
			return true
		}
	}
	return false
}

// KanaPolicy decides what happens to tokens without ideographs in token-list mode.
// It changes how many results a request produces, so it is always explicit.
type KanaPolicy string

const (
	// Passthrough reports the token as-is without a dictionary call.
	Passthrough KanaPolicy = "passthrough"
	// Drop removes the token from the output.
	Drop KanaPolicy = "drop"
)

func ParseKanaPolicy(s string) (KanaPolicy, error) {
	switch KanaPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Passthrough:
		return Passthrough, nil
	case Drop:
		return Drop, nil
	default:
		return "", fmt.Errorf("unknown kana policy %q (expected passthrough or drop)", s)
	}
}

// Decision is what to do with a single token.
type Decision int

const (
	// Lookup sends the token to the dictionary.
	Lookup Decision = iota
	// Report emits the token without a dictionary call.
	Report
	// Skip leaves the token out of the response.
	Skip
)

func (d Decision) String() string {
	switch d {
	case Lookup:
		return "lookup"
	case Report:
		return "report"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Classify returns the decision for text under policy.
func Classify(text string, policy KanaPolicy) Decision {
	if ContainsIdeograph(text) {
		return Lookup
	}
	if policy == Drop {
		return Skip
	}
	return Report
}
