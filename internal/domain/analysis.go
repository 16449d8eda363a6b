package domain

import "fmt"

// MaxNGramOrder is the highest N-gram order reported by the analysis.
const MaxNGramOrder = 4

// NGramType names an N-gram order as it appears in the API.
type NGramType string

const (
	NGramUnigrams  NGramType = "unigrams"
	NGramBigrams   NGramType = "bigrams"
	NGramTrigrams  NGramType = "trigrams"
	NGramFourGrams NGramType = "4grams"
)

// AllNGramTypes lists the N-gram types in ascending order.
var AllNGramTypes = []NGramType{NGramUnigrams, NGramBigrams, NGramTrigrams, NGramFourGrams}

// Order returns the N-gram order (1..4) of t.
func (t NGramType) Order() int {
	switch t {
	case NGramUnigrams:
		return 1
	case NGramBigrams:
		return 2
	case NGramTrigrams:
		return 3
	case NGramFourGrams:
		return 4
	default:
		return 0
	}
}

// IsValid reports whether t is one of the known N-gram types.
func (t NGramType) IsValid() bool { return t.Order() != 0 }

// NGramTypeForOrder maps an order back to its type.
func NGramTypeForOrder(order int) (NGramType, error) {
	if order < 1 || order > MaxNGramOrder {
		return "", fmt.Errorf("ngram order %d: %w", order, ErrValidation)
	}
	return AllNGramTypes[order-1], nil
}

// NGramEntry is one ranked row of an N-gram frequency table.
// Probability is the empirical share of the N-gram among all N-grams of the
// same order, in percent.
type NGramEntry struct {
	ID          int
	SurfaceForm string
	Count       int
	Probability float64
}

// NGramTables holds ranked entries for every order.
type NGramTables struct {
	Unigrams  []NGramEntry
	Bigrams   []NGramEntry
	Trigrams  []NGramEntry
	FourGrams []NGramEntry
}

// ByOrder returns a pointer to the slot for order, or nil for unknown orders.
func (t *NGramTables) ByOrder(order int) *[]NGramEntry {
	switch order {
	case 1:
		return &t.Unigrams
	case 2:
		return &t.Bigrams
	case 3:
		return &t.Trigrams
	case 4:
		return &t.FourGrams
	default:
		return nil
	}
}

// Stats holds the model-based information measures of a token sequence.
// Entropy is the cross-entropy in bits per token; Perplexity is 2^Entropy.
type Stats struct {
	Perplexity float64
	Entropy    float64
}

// AnalysisResult is the outcome of one analysis request.
type AnalysisResult struct {
	Stats
	TotalTokens  int
	UniqueTokens int
	StopWords    int
	LatencyMS    float64
	NGrams       NGramTables
}
