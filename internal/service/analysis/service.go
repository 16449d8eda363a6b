// Package analysis runs the text analysis pipeline: tokenize, count N-grams,
// score against the language model and derive perplexity and entropy.
package analysis

import (
	"log/slog"

	"github.com/heartmarshall/ngram-analysis-backend/internal/config"
	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
)

// scorerProvider yields the language model current at call time.
type scorerProvider interface {
	Scorer() (lm.Scorer, error)
}

// Service implements text analysis.
type Service struct {
	log    *slog.Logger
	models scorerProvider
	cfg    config.AnalysisConfig
}

// NewService creates a new analysis service instance.
func NewService(logger *slog.Logger, models scorerProvider, cfg config.AnalysisConfig) *Service {
	return &Service{
		log:    logger.With("service", "analysis"),
		models: models,
		cfg:    cfg,
	}
}
