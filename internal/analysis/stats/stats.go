// Package stats derives information measures from a model log-probability.
package stats

import (
	"fmt"
	"math"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
)

// Compute returns the cross-entropy (bits per token) and perplexity of a
// sequence whose summed log2 probability is logProbSum.
func Compute(logProbSum float64, tokenCount int) (domain.Stats, error) {
	if tokenCount <= 0 {
		return domain.Stats{}, fmt.Errorf("token count %d: %w", tokenCount, domain.ErrDegenerateInput)
	}
	if math.IsNaN(logProbSum) || math.IsInf(logProbSum, 0) || logProbSum > 0 {
		return domain.Stats{}, fmt.Errorf("log probability %v: %w", logProbSum, domain.ErrDegenerateInput)
	}

	entropy := -logProbSum / float64(tokenCount)
	perplexity := math.Exp2(entropy)
	// Past ~1024 bits per token the perplexity no longer fits a float64.
	if math.IsInf(perplexity, 0) {
		return domain.Stats{}, fmt.Errorf("perplexity overflows at %.2f bits per token: %w", entropy, domain.ErrDegenerateInput)
	}
	return domain.Stats{
		Entropy:    entropy,
		Perplexity: perplexity,
	}, nil
}
