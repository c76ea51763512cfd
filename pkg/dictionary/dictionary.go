package dictionary

// Entry is the per-word result returned to clients.
type Entry struct {
	Text        string `json:"text"`
	Furigana    string `json:"furigana"`
	Translation string `json:"translation"`
}

const (
	FallbackFurigana    = "---"
	FallbackTranslation = "(not found in dictionary)"
)

// Reason explains the outcome of a single lookup.
type Reason string

const (
	ReasonFound Reason = "found"
	// ReasonTransport covers network errors, timeouts and rate limiter waits that failed.
	ReasonTransport Reason = "transport"
	// ReasonStatus is a non-2xx response from the service.
	ReasonStatus Reason = "status"
	// ReasonEmpty is a response without any matches.
	ReasonEmpty Reason = "empty"
	// ReasonMalformed is a body that could not be read as a match.
	ReasonMalformed Reason = "malformed"
)

// Result is the outcome of a lookup. Entry is only meaningful when Reason is found.
type Result struct {
	Entry  Entry
	Reason Reason
	Err    error
}

func (r Result) Found() bool {
	return r.Reason == ReasonFound
}

// Resolve returns the entry to report for word: the match itself, or the
// fallback entry for every failure reason.
func (r Result) Resolve(word string) Entry {
	switch r.Reason {
	case ReasonFound:
		return r.Entry
	case ReasonTransport, ReasonStatus, ReasonEmpty, ReasonMalformed:
		return Fallback(word)
	default:
		return Fallback(word)
	}
}

// Fallback is reported for words the dictionary could not resolve.
func Fallback(word string) Entry {
	return Entry{
		Text:        word,
		Furigana:    FallbackFurigana,
		Translation: FallbackTranslation,
	}
}
