package lm

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
)

// DefaultUnkLogProb is the log10 probability given to a word missing from a
// model that has no <unk> entry.
const DefaultUnkLogProb = -7.0

var log2Of10 = math.Log2(10)

// Scorer scores token sequences under a language model.
type Scorer interface {
	// ScoreSequence returns the sum of log2 P(token_i | context_i).
	ScoreSequence(tokens []string) (float64, error)
	// MaxOrder is the highest N-gram order the scorer conditions on.
	MaxOrder() int
}

// Options tune how a Table is turned into a Model.
type Options struct {
	Name   string
	Source string
	// MaxOrder caps the order used for scoring; 0 uses the table order.
	MaxOrder int
	// UnkLogProb is used for unseen words when the table lacks <unk>;
	// 0 means DefaultUnkLogProb.
	UnkLogProb float64
}

// Info describes a loaded model.
type Info struct {
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Order      int       `json:"order"`
	Vocabulary int       `json:"vocabulary"`
	NGrams     []int     `json:"ngrams"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Model is a back-off N-gram language model. It is read-only once built and
// safe for concurrent use.
type Model struct {
	table  *Table
	order  int
	unk    float64
	hasBOS bool
	info   Info
}

var _ Scorer = (*Model)(nil)

// NewModel builds a Model over table.
func NewModel(table *Table, opts Options) (*Model, error) {
	if table == nil || table.Len(1) == 0 {
		return nil, fmt.Errorf("build model: %w", domain.ErrModelUnavailable)
	}

	order := table.Order()
	if opts.MaxOrder > 0 && opts.MaxOrder < order {
		order = opts.MaxOrder
	}

	unk := opts.UnkLogProb
	if unk == 0 {
		unk = DefaultUnkLogProb
	}
	if e, ok := table.lookup(1, UNK); ok {
		unk = e.LogProb
	}
	if unk > 0 || math.IsInf(unk, 0) || math.IsNaN(unk) {
		return nil, fmt.Errorf("build model: unknown-word log probability %v", unk)
	}

	_, hasBOS := table.lookup(1, BOS)

	counts := make([]int, order)
	for i := range counts {
		counts[i] = table.Len(i + 1)
	}

	vocab := table.Len(1)
	for _, special := range []string{BOS, EOS, UNK} {
		if _, ok := table.lookup(1, special); ok {
			vocab--
		}
	}

	return &Model{
		table:  table,
		order:  order,
		unk:    unk,
		hasBOS: hasBOS,
		info: Info{
			Name:       opts.Name,
			Source:     opts.Source,
			Order:      order,
			Vocabulary: vocab,
			NGrams:     counts,
			LoadedAt:   time.Now().UTC(),
		},
	}, nil
}

// MaxOrder returns the order used for scoring.
func (m *Model) MaxOrder() int { return m.order }

// Info returns a description of the model.
func (m *Model) Info() Info {
	info := m.info
	info.NGrams = append([]int(nil), m.info.NGrams...)
	return info
}

// LogProb returns log10 P(word | history) with Katz-style back-off: the
// longest stored N-gram ending in word wins, each shortening of the history
// adds the back-off weight of the dropped context, and a word unseen even as
// a unigram gets the unknown-word probability. The result is always finite.
func (m *Model) LogProb(history []string, word string) float64 {
	if len(history) > m.order-1 {
		history = history[len(history)-(m.order-1):]
	}

	backoff := 0.0
	for {
		n := len(history) + 1
		key := word
		if len(history) > 0 {
			key = strings.Join(history, " ") + " " + word
		}
		if e, ok := m.table.lookup(n, key); ok && e.LogProb > -99 {
			return clampLogProb(backoff + e.LogProb)
		}
		if n == 1 {
			return clampLogProb(backoff + m.unk)
		}
		if e, ok := m.table.lookup(n-1, strings.Join(history, " ")); ok {
			backoff += e.LogBackoff
		}
		history = history[1:]
	}
}

// ScoreSequence returns the sum of log2 probabilities of tokens, each
// conditioned on up to MaxOrder-1 preceding tokens. The first token is
// conditioned on <s> when the model has it.
func (m *Model) ScoreSequence(tokens []string) (float64, error) {
	if len(tokens) == 0 {
		return 0, fmt.Errorf("score empty sequence: %w", domain.ErrDegenerateInput)
	}

	history := make([]string, 0, m.order)
	if m.hasBOS && m.order > 1 {
		history = append(history, BOS)
	}

	sum := 0.0
	for _, tok := range tokens {
		sum += m.LogProb(history, tok) * log2Of10
		if m.order > 1 {
			history = append(history, tok)
			if len(history) > m.order-1 {
				history = history[1:]
			}
		}
	}
	return sum, nil
}

// clampLogProb keeps a log10 probability inside (-inf, 0]. Back-off weights
// in hand-edited models can push a sum above zero.
func clampLogProb(lp float64) float64 {
	if lp > 0 {
		return 0
	}
	return lp
}
