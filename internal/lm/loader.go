package lm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how long Loader keeps retrying a failing source.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// Loader loads a model from a Source and publishes it in a Holder.
type Loader struct {
	src    Source
	holder *Holder
	opts   Options
	retry  RetryPolicy
	log    *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(log *slog.Logger, src Source, holder *Holder, opts Options, retry RetryPolicy) *Loader {
	if opts.Source == "" {
		opts.Source = src.Name()
	}
	return &Loader{
		src:    src,
		holder: holder,
		opts:   opts,
		retry:  retry,
		log:    log.With("component", "lm_loader"),
	}
}

// Load performs one load attempt and publishes the model on success.
// The previous model, if any, stays in place on failure.
func (l *Loader) Load(ctx context.Context) error {
	start := time.Now()

	table, err := l.src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s model: %w", l.src.Name(), err)
	}

	m, err := NewModel(table, l.opts)
	if err != nil {
		return fmt.Errorf("load %s model: %w", l.src.Name(), err)
	}
	l.holder.Store(m)

	info := m.Info()
	l.log.InfoContext(ctx, "language model loaded",
		slog.String("name", info.Name),
		slog.String("source", info.Source),
		slog.Int("order", info.Order),
		slog.Int("vocabulary", info.Vocabulary),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// LoadWithRetry retries Load with exponential back-off until it succeeds,
// the policy's elapsed time runs out, ctx ends, or the source reports a
// malformed model (not worth retrying).
func (l *Loader) LoadWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	if l.retry.InitialInterval > 0 {
		b.InitialInterval = l.retry.InitialInterval
	}
	if l.retry.MaxInterval > 0 {
		b.MaxInterval = l.retry.MaxInterval
	}
	b.MaxElapsedTime = l.retry.MaxElapsedTime

	op := func() error {
		err := l.Load(ctx)
		if err != nil && isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		l.log.WarnContext(ctx, "language model load failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", next),
		)
	}

	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// isPermanent reports errors that a retry cannot fix: a missing file or a
// malformed model.
func isPermanent(err error) bool {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return true
	}
	return errors.Is(err, ErrMalformed)
}
