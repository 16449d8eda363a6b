package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
)

// AnalyzeInput holds the parameters of one analysis.
type AnalyzeInput struct {
	Text string
	// NGramType restricts the N-gram output to one order; empty means all.
	NGramType domain.NGramType
}

// Validate checks all fields and collects all errors. maxLength is in runes.
func (i AnalyzeInput) Validate(maxLength int) error {
	var errs []domain.FieldError

	if strings.TrimSpace(i.Text) == "" {
		errs = append(errs, domain.FieldError{Field: "text", Message: "required"})
	} else if maxLength > 0 && utf8.RuneCountInString(i.Text) > maxLength {
		errs = append(errs, domain.FieldError{Field: "text", Message: fmt.Sprintf("max %d characters", maxLength)})
	}

	if i.NGramType != "" && !i.NGramType.IsValid() {
		errs = append(errs, domain.FieldError{
			Field:   "ngram_type",
			Message: "must be one of unigrams, bigrams, trigrams, 4grams",
		})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
