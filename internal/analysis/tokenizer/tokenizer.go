// Package tokenizer splits raw text into normalized word tokens.
//
// Punctuation policy:
//   - word characters are Unicode letters, Unicode digits and '_';
//   - a combining mark extends the word before it and is dropped when no
//     word is open;
//   - an apostrophe is kept only between two word characters ("don't");
//   - every other rune (whitespace, hyphens, sentence punctuation, quotes,
//     brackets, symbols) separates tokens and is discarded.
//
// Text is NFC-normalized and case-folded before splitting, see
// domain.NormalizeText.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
)

// Tokenize returns the token sequence of text.
// Empty, whitespace-only, or punctuation-only text is a validation error.
func Tokenize(text string) ([]domain.Token, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("text", "required")
	}

	words := split(domain.NormalizeText(text))
	if len(words) == 0 {
		return nil, domain.NewValidationError("text", "no valid tokens found")
	}

	tokens := make([]domain.Token, len(words))
	for i, w := range words {
		tokens[i] = domain.Token{
			Text:       w,
			IsStopWord: IsStopWord(w),
			Position:   i,
		}
	}
	return tokens, nil
}

func split(text string) []string {
	runes := []rune(text)
	var (
		words []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for i, r := range runes {
		switch {
		case isWordRune(r):
			cur.WriteRune(r)
		case unicode.Is(unicode.Mn, r):
			if cur.Len() > 0 {
				cur.WriteRune(r)
			}
		case r == '\'' && cur.Len() > 0 && i+1 < len(runes) && isWordRune(runes[i+1]):
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
