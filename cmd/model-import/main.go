// Command model-import loads an ARPA language model file into PostgreSQL so
// that the server can run with model.source=postgres. An existing model with
// the same name is replaced atomically. It is intended to be run offline,
// not as part of the main server.
//
// Flags:
//
//	--file     path to the ARPA file (required)
//	--name     model name (default: model.name from config)
//	--dry-run  parse and validate the file without touching the database
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/ngram-analysis-backend/internal/adapter/postgres"
	"github.com/heartmarshall/ngram-analysis-backend/internal/adapter/postgres/lmstore"
	"github.com/heartmarshall/ngram-analysis-backend/internal/app"
	"github.com/heartmarshall/ngram-analysis-backend/internal/config"
	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
	"github.com/heartmarshall/ngram-analysis-backend/migrations"
)

func main() {
	fileFlag := flag.String("file", "", "path to the ARPA model file")
	nameFlag := flag.String("name", "", "model name (default: model.name from config)")
	dryRunFlag := flag.Bool("dry-run", false, "parse the file without writing to DB")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	if *fileFlag == "" {
		logger.Error("--file is required")
		os.Exit(1)
	}
	name := *nameFlag
	if name == "" {
		name = cfg.Model.Name
	}

	table, err := lm.FileSource{Path: *fileFlag}.Load(context.Background())
	if err != nil {
		logger.Error("parse model", slog.String("file", *fileFlag), slog.String("error", err.Error()))
		os.Exit(1)
	}

	counts := make([]int, table.Order())
	for n := range counts {
		counts[n] = table.Len(n + 1)
	}
	logger.Info("model parsed",
		slog.String("file", *fileFlag),
		slog.Int("order", table.Order()),
		slog.Any("ngrams", counts),
	)

	if *dryRunFlag {
		logger.Info("dry run, database untouched")
		return
	}

	if cfg.Database.DSN == "" {
		logger.Error("database.dsn is required")
		os.Exit(1)
	}

	// 30-minute context timeout.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool, migrations.FS)
	if err != nil {
		logger.Error("apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if applied > 0 {
		logger.Info("migrations applied", slog.Int("count", applied))
	}

	start := time.Now()
	written, err := lmstore.New(pool).Import(ctx, name, table)
	if err != nil {
		logger.Error("import failed", slog.String("model", name), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("model imported",
		slog.String("model", name),
		slog.Int64("ngrams", written),
		slog.Duration("took", time.Since(start)),
	)
}
