package domain

// Token is a single word unit produced by the tokenizer. Position is the
// 0-based index in the token sequence.
type Token struct {
	Text       string
	IsStopWord bool
	Position   int
}

// Texts returns the token texts in sequence order.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}
