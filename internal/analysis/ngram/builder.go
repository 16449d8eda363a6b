// Package ngram builds and ranks N-gram frequency tables.
package ngram

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
)

// Delimiter joins token texts into an N-gram surface form.
const Delimiter = " "

// Build counts every window of order contiguous tokens. A sequence shorter
// than order yields an empty map.
func Build(tokens []domain.Token, order int) (map[string]int, error) {
	if order < 1 || order > domain.MaxNGramOrder {
		return nil, fmt.Errorf("ngram order %d: %w", order, domain.ErrValidation)
	}

	windows := len(tokens) - order + 1
	if windows <= 0 {
		return map[string]int{}, nil
	}

	counts := make(map[string]int, windows)
	parts := make([]string, order)
	for i := 0; i < windows; i++ {
		for j := 0; j < order; j++ {
			parts[j] = tokens[i+j].Text
		}
		counts[strings.Join(parts, Delimiter)]++
	}
	return counts, nil
}

// Rank orders counts by count descending, then surface form ascending, and
// assigns 1-based ids. Probability is the share of each N-gram among all
// windows of the order, in percent rounded to two decimals. limit > 0 keeps
// only the first limit entries; shares are still computed over all of them.
func Rank(counts map[string]int, limit int) []domain.NGramEntry {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return []domain.NGramEntry{}
	}

	entries := make([]domain.NGramEntry, 0, len(counts))
	for form, c := range counts {
		entries = append(entries, domain.NGramEntry{SurfaceForm: form, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].SurfaceForm < entries[j].SurfaceForm
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].ID = i + 1
		entries[i].Probability = Round(100*float64(entries[i].Count)/float64(total), 2)
	}
	return entries
}

// BuildAll builds and ranks every order from 1 to domain.MaxNGramOrder.
func BuildAll(tokens []domain.Token, limit int) (domain.NGramTables, error) {
	var tables domain.NGramTables
	for order := 1; order <= domain.MaxNGramOrder; order++ {
		if err := buildInto(&tables, tokens, order, limit); err != nil {
			return domain.NGramTables{}, err
		}
	}
	return tables, nil
}

// BuildOne fills only the table for order; the others are empty lists.
func BuildOne(tokens []domain.Token, order, limit int) (domain.NGramTables, error) {
	tables := domain.NGramTables{
		Unigrams:  []domain.NGramEntry{},
		Bigrams:   []domain.NGramEntry{},
		Trigrams:  []domain.NGramEntry{},
		FourGrams: []domain.NGramEntry{},
	}
	if err := buildInto(&tables, tokens, order, limit); err != nil {
		return domain.NGramTables{}, err
	}
	return tables, nil
}

func buildInto(tables *domain.NGramTables, tokens []domain.Token, order, limit int) error {
	counts, err := Build(tokens, order)
	if err != nil {
		return err
	}
	*tables.ByOrder(order) = Rank(counts, limit)
	return nil
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
