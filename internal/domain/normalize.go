package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText prepares text for tokenization and model lookup:
//   - applies Unicode NFC composition
//   - case-folds (the model vocabulary is case-insensitive)
//   - maps the typographic apostrophe ’ to '
//   - trims and compresses any whitespace run into a single space
//
// Diacritics, hyphens, and apostrophes are preserved.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	// cases.Caser is stateful, so a fresh one per call.
	text = cases.Fold().String(norm.NFC.String(text))

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteRune(' ')
			continue
		}
		prevSpace = false
		if r == '’' {
			r = '\''
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
