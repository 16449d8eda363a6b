package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/heartmarshall/ngram-analysis-backend/internal/analysis/ngram"
	"github.com/heartmarshall/ngram-analysis-backend/internal/analysis/stats"
	"github.com/heartmarshall/ngram-analysis-backend/internal/analysis/tokenizer"
	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
	"github.com/heartmarshall/ngram-analysis-backend/pkg/ctxutil"
)

type outcome struct {
	result *domain.AnalysisResult
	err    error
}

// Analyze tokenizes input.Text, builds its N-gram tables and scores it under
// the current language model. The pipeline is bounded by the configured
// timeout; running past it yields domain.ErrTimeout.
func (s *Service) Analyze(ctx context.Context, input AnalyzeInput) (*domain.AnalysisResult, error) {
	if err := input.Validate(s.cfg.MaxTextLength); err != nil {
		return nil, err
	}

	start := time.Now()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.ErrorContext(ctx, "analysis panic",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
					slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
				)
				done <- outcome{err: domain.NewAnalysisError(domain.StageAnalyze, fmt.Errorf("internal error: %v", r))}
			}
		}()
		res, err := s.run(ctx, input)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		out.err = ctx.Err()
	case out = <-done:
	}

	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) {
			s.log.WarnContext(ctx, "analysis timed out",
				slog.Duration("timeout", s.cfg.Timeout),
				slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
			)
			return nil, fmt.Errorf("analyze after %v: %w", time.Since(start).Round(time.Millisecond), domain.ErrTimeout)
		}
		return nil, out.err
	}

	res := out.result
	res.LatencyMS = float64(time.Since(start)) / float64(time.Millisecond)

	s.log.InfoContext(ctx, "text analyzed",
		slog.String("request_id", ctxutil.RequestIDFromCtx(ctx)),
		slog.Int("total_tokens", res.TotalTokens),
		slog.Int("unique_tokens", res.UniqueTokens),
		slog.Float64("perplexity", res.Perplexity),
		slog.Float64("latency_ms", res.LatencyMS),
	)

	return res, nil
}

func (s *Service) run(ctx context.Context, input AnalyzeInput) (*domain.AnalysisResult, error) {
	tokens, err := tokenizer.Tokenize(input.Text)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, domain.NewAnalysisError(domain.StageTokenize, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tables domain.NGramTables
	if input.NGramType != "" {
		tables, err = ngram.BuildOne(tokens, input.NGramType.Order(), s.cfg.NGramLimit)
	} else {
		tables, err = ngram.BuildAll(tokens, s.cfg.NGramLimit)
	}
	if err != nil {
		return nil, domain.NewAnalysisError(domain.StageNGrams, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scorer, err := s.models.Scorer()
	if err != nil {
		return nil, domain.NewAnalysisError(domain.StageScore, err)
	}
	logProb, err := scorer.ScoreSequence(domain.Texts(tokens))
	if err != nil {
		return nil, domain.NewAnalysisError(domain.StageScore, err)
	}

	st, err := stats.Compute(logProb, len(tokens))
	if err != nil {
		return nil, domain.NewAnalysisError(domain.StageStats, err)
	}

	unique := make(map[string]struct{}, len(tokens))
	stopWords := 0
	for _, tok := range tokens {
		unique[tok.Text] = struct{}{}
		if tok.IsStopWord {
			stopWords++
		}
	}

	return &domain.AnalysisResult{
		Stats:        st,
		TotalTokens:  len(tokens),
		UniqueTokens: len(unique),
		StopWords:    stopWords,
		NGrams:       tables,
	}, nil
}
