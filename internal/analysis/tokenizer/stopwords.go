package tokenizer

// stopWords is the fixed stop-word set. Stop words are flagged for statistics
// and still take part in N-gram construction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "should": {}, "could": {}, "may": {}, "might": {},
	"must": {}, "can": {},
	"this": {}, "that": {}, "these": {}, "those": {},
}

// IsStopWord reports whether the (already normalized) word is a stop word.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// StopWords returns the number of entries in the stop-word set.
func StopWords() int { return len(stopWords) }
