package lm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
)

// Special vocabulary items of ARPA models.
const (
	BOS = "<s>"
	EOS = "</s>"
	UNK = "<unk>"
)

// ErrMalformed is wrapped by every ParseARPA error caused by the model text
// itself rather than by reading it.
var ErrMalformed = errors.New("arpa")

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

// Entry is one ARPA row: log10 probability and optional log10 back-off weight.
type Entry struct {
	LogProb    float64
	LogBackoff float64
}

// Table is an immutable-after-load N-gram table keyed by the space-joined
// words of each N-gram.
type Table struct {
	order  int
	ngrams []map[string]Entry
}

// NewTable creates an empty table for orders 1..order.
func NewTable(order int) *Table {
	if order > domain.MaxNGramOrder {
		order = domain.MaxNGramOrder
	}
	t := &Table{order: order, ngrams: make([]map[string]Entry, order)}
	for i := range t.ngrams {
		t.ngrams[i] = make(map[string]Entry)
	}
	return t
}

// Order returns the highest order stored in the table.
func (t *Table) Order() int { return t.order }

// Add stores an entry for words. Words are normalized the same way as
// analysed text. A later duplicate of an existing key is ignored.
func (t *Table) Add(words []string, e Entry) error {
	n := len(words)
	if n < 1 || n > t.order {
		return fmt.Errorf("ngram of order %d outside 1..%d", n, t.order)
	}
	norm := make([]string, n)
	for i, w := range words {
		norm[i] = domain.NormalizeText(w)
		if norm[i] == "" || strings.Contains(norm[i], " ") {
			return fmt.Errorf("invalid word %q", w)
		}
	}
	key := strings.Join(norm, " ")
	if _, ok := t.ngrams[n-1][key]; !ok {
		t.ngrams[n-1][key] = e
	}
	return nil
}

// Len returns the number of N-grams stored for order.
func (t *Table) Len(order int) int {
	if order < 1 || order > t.order {
		return 0
	}
	return len(t.ngrams[order-1])
}

// Each calls fn for every entry of order in unspecified order.
func (t *Table) Each(order int, fn func(words string, e Entry)) {
	if order < 1 || order > t.order {
		return
	}
	for k, e := range t.ngrams[order-1] {
		fn(k, e)
	}
}

func (t *Table) lookup(order int, key string) (Entry, bool) {
	e, ok := t.ngrams[order-1][key]
	return e, ok
}

// ParseARPA reads a model in ARPA format. Sections above the maximum
// supported order are skipped. The header counts must match the sections.
func ParseARPA(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	const (
		statePreamble = iota
		stateHeader
		stateSection
		stateEnd
	)

	var (
		state    = statePreamble
		declared = map[int]int{}
		seen     = map[int]int{}
		maxOrder int
		section  int
		table    *Table
		lineNo   int
	)

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		switch {
		case line == `\data\`:
			if state != statePreamble {
				return nil, malformedf("line %d: unexpected \\data\\", lineNo)
			}
			state = stateHeader
			continue
		case line == `\end\`:
			state = stateEnd
			continue
		case strings.HasPrefix(line, `\`) && strings.HasSuffix(line, `-grams:`):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, `\`), `-grams:`))
			if err != nil || n < 1 {
				return nil, malformedf("line %d: bad section %q", lineNo, line)
			}
			if state == stateHeader {
				if maxOrder == 0 {
					return nil, malformedf("line %d: no ngram counts in header", lineNo)
				}
				table = NewTable(maxOrder)
			}
			if table == nil {
				return nil, malformedf("line %d: section before \\data\\", lineNo)
			}
			section = n
			state = stateSection
			continue
		}

		switch state {
		case statePreamble, stateEnd:
			continue
		case stateHeader:
			n, count, err := parseCount(line)
			if err != nil {
				return nil, malformedf("line %d: %w", lineNo, err)
			}
			declared[n] = count
			if n > maxOrder {
				maxOrder = n
			}
		case stateSection:
			seen[section]++
			if section > table.Order() {
				continue
			}
			words, entry, err := parseEntry(line, section)
			if err != nil {
				return nil, malformedf("line %d: %w", lineNo, err)
			}
			if err := table.Add(words, entry); err != nil {
				return nil, malformedf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read arpa: %w", err)
	}

	if state != stateEnd {
		return nil, malformedf("missing \\end\\ marker")
	}
	if table == nil {
		return nil, malformedf("no ngram sections")
	}
	for n, want := range declared {
		if seen[n] != want {
			return nil, malformedf("%d-grams: header declares %d, found %d", n, want, seen[n])
		}
	}
	if table.Len(1) == 0 {
		return nil, malformedf("empty unigram section")
	}
	return table, nil
}

func parseCount(line string) (int, int, error) {
	rest, ok := strings.CutPrefix(line, "ngram ")
	if !ok {
		return 0, 0, fmt.Errorf("bad header line %q", line)
	}
	lhs, rhs, ok := strings.Cut(rest, "=")
	if !ok {
		return 0, 0, fmt.Errorf("bad header line %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(lhs))
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("bad ngram order in %q", line)
	}
	count, err := strconv.Atoi(strings.TrimSpace(rhs))
	if err != nil || count < 0 {
		return 0, 0, fmt.Errorf("bad ngram count in %q", line)
	}
	return n, count, nil
}

func parseEntry(line string, order int) ([]string, Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != order+1 && len(fields) != order+2 {
		return nil, Entry{}, fmt.Errorf("expected %d or %d fields, got %d", order+1, order+2, len(fields))
	}

	lp, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("bad log probability %q", fields[0])
	}
	if lp > 0 {
		return nil, Entry{}, fmt.Errorf("log probability %v above 0", lp)
	}

	e := Entry{LogProb: lp}
	if len(fields) == order+2 {
		bo, err := strconv.ParseFloat(fields[order+1], 64)
		if err != nil {
			return nil, Entry{}, fmt.Errorf("bad back-off weight %q", fields[order+1])
		}
		e.LogBackoff = bo
	}
	return fields[1 : order+1], e, nil
}
