package lm

import (
	"fmt"
	"sync/atomic"

	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
)

// Holder publishes the current model to concurrent readers. A reload stores
// a new Model; models themselves are never mutated.
type Holder struct {
	model atomic.Pointer[Model]
}

// NewHolder creates an empty Holder.
func NewHolder() *Holder { return &Holder{} }

// Store publishes m.
func (h *Holder) Store(m *Model) { h.model.Store(m) }

// Current returns the current model or domain.ErrModelUnavailable.
func (h *Holder) Current() (*Model, error) {
	m := h.model.Load()
	if m == nil {
		return nil, fmt.Errorf("language model not loaded: %w", domain.ErrModelUnavailable)
	}
	return m, nil
}

// Scorer returns the current model as a Scorer.
func (h *Holder) Scorer() (Scorer, error) {
	m, err := h.Current()
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Info returns the current model description and whether a model is loaded.
func (h *Holder) Info() (Info, bool) {
	m := h.model.Load()
	if m == nil {
		return Info{}, false
	}
	return m.Info(), true
}
