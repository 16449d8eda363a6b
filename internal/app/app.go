package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/ngram-analysis-backend/internal/adapter/postgres"
	"github.com/heartmarshall/ngram-analysis-backend/internal/adapter/postgres/lmstore"
	"github.com/heartmarshall/ngram-analysis-backend/internal/analysis/tokenizer"
	"github.com/heartmarshall/ngram-analysis-backend/internal/config"
	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
	"github.com/heartmarshall/ngram-analysis-backend/internal/service/analysis"
	"github.com/heartmarshall/ngram-analysis-backend/internal/transport/middleware"
	"github.com/heartmarshall/ngram-analysis-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, initializes
// the logger, loads the language model and serves the HTTP API until ctx is
// canceled, then shuts the server down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("model_source", cfg.Model.Source),
		slog.Int("stop_words", tokenizer.StopWords()),
	)

	src, closeSrc, err := openModelSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	holder := lm.NewHolder()
	loader := newLoader(logger, src, holder, cfg.Model)

	svc := analysis.NewService(logger, holder, cfg.Analysis)

	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHandler(cfg, logger, svc, holder, limiter),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	// The server starts degraded if the first attempt fails; a background
	// retry publishes the model as soon as the source recovers.
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Model.LoadTimeout)
	err = loader.Load(loadCtx)
	cancel()
	if err != nil {
		logger.Warn("initial model load failed, retrying in background",
			slog.String("error", err.Error()),
		)
		g.Go(func() error {
			if err := loader.LoadWithRetry(gctx); err != nil && gctx.Err() == nil {
				logger.Error("language model unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if cfg.Model.Watch {
		watcher := lm.NewWatcher(logger, cfg.Model.Path, loader, cfg.Model.WatchDebounce)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// openModelSource picks the model source named in the config. The returned
// close function releases the database pool for the postgres source. The pool
// is not pinged here: an unreachable database is a load failure, which leaves
// the server degraded while the loader retries.
func openModelSource(ctx context.Context, cfg *config.Config) (lm.Source, func(), error) {
	switch cfg.Model.Source {
	case config.ModelSourcePostgres:
		pool, err := postgres.OpenPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return lmstore.NewSource(lmstore.New(pool), cfg.Model.Name), pool.Close, nil
	default:
		src, err := localModelSource(cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
}

// localModelSource resolves the sources that need no external service.
func localModelSource(cfg config.ModelConfig) (lm.Source, error) {
	switch cfg.Source {
	case config.ModelSourceEmbedded:
		return lm.EmbeddedSource{}, nil
	case config.ModelSourceFile:
		return lm.FileSource{Path: cfg.Path}, nil
	default:
		return nil, fmt.Errorf("unsupported model source %q", cfg.Source)
	}
}

func newLoader(logger *slog.Logger, src lm.Source, holder *lm.Holder, cfg config.ModelConfig) *lm.Loader {
	return lm.NewLoader(logger, src, holder,
		lm.Options{
			Name:       cfg.Name,
			MaxOrder:   cfg.MaxOrder,
			UnkLogProb: cfg.UnkLogProb,
		},
		lm.RetryPolicy{
			InitialInterval: cfg.RetryInitial,
			MaxInterval:     cfg.RetryMax,
			MaxElapsedTime:  cfg.RetryMaxElapse,
		},
	)
}

// newHandler assembles the router and the global middleware chain.
func newHandler(cfg *config.Config, logger *slog.Logger, svc *analysis.Service, holder *lm.Holder, limiter *middleware.RateLimiter) http.Handler {
	mux := rest.NewRouter(rest.Routes{
		Analyze:           rest.NewAnalyzeHandler(svc, logger, cfg.Analysis.MaxBodyBytes),
		Health:            rest.NewHealthHandler(holder, Version),
		AnalyzeMiddleware: limiter.Limit(cfg.Analysis.RateLimitPerMinute),
	})

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
	)(mux)
}
