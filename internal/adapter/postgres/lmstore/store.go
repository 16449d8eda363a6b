// Package lmstore keeps ARPA language models in PostgreSQL.
package lmstore

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/heartmarshall/ngram-analysis-backend/internal/adapter/postgres"
	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var ngramColumns = []string{"model_name", "n", "ngram", "log_prob", "log_backoff"}

// Store reads and writes the N-gram tables of named models.
type Store struct {
	db  postgres.DB
	txm *postgres.TxManager
}

// New creates a Store over db (a pgxpool.Pool in production).
func New(db postgres.DB) *Store {
	return &Store{db: db, txm: postgres.NewTxManager(db)}
}

// ModelOrder returns the highest N-gram order stored for name.
func (s *Store) ModelOrder(ctx context.Context, name string) (int, error) {
	query, args, err := psql.Select("max_order").
		From("lm_models").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var order int
	if err := postgres.QuerierFromCtx(ctx, s.db).QueryRow(ctx, query, args...).Scan(&order); err != nil {
		return 0, postgres.MapError(err, "model", name)
	}
	return order, nil
}

// LoadTable reads every N-gram of model name into a table.
func (s *Store) LoadTable(ctx context.Context, name string) (*lm.Table, error) {
	order, err := s.ModelOrder(ctx, name)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select("n", "ngram", "log_prob", "log_backoff").
		From("lm_ngrams").
		Where(sq.Eq{"model_name": name}).
		OrderBy("n").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, s.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "model", name)
	}
	defer rows.Close()

	table := lm.NewTable(order)
	for rows.Next() {
		var (
			n     int
			ngram string
			e     lm.Entry
		)
		if err := rows.Scan(&n, &ngram, &e.LogProb, &e.LogBackoff); err != nil {
			return nil, fmt.Errorf("scan ngram: %w", err)
		}
		if err := table.Add(strings.Fields(ngram), e); err != nil {
			return nil, fmt.Errorf("model %s: ngram %q: %w", name, ngram, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "model", name)
	}

	if table.Len(1) == 0 {
		return nil, fmt.Errorf("model %s: no unigrams: %w", name, domain.ErrNotFound)
	}
	return table, nil
}

// Import replaces model name with the contents of table in one transaction
// and returns the number of N-grams written.
func (s *Store) Import(ctx context.Context, name string, table *lm.Table) (int64, error) {
	if name == "" {
		return 0, domain.NewValidationError("name", "required")
	}
	if table == nil || table.Len(1) == 0 {
		return 0, domain.NewValidationError("table", "no unigrams")
	}

	var written int64
	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, s.db)

		upsert, args, err := psql.Insert("lm_models").
			Columns("name", "max_order").
			Values(name, table.Order()).
			Suffix("ON CONFLICT (name) DO UPDATE SET max_order = EXCLUDED.max_order, updated_at = now()").
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		if _, err := q.Exec(ctx, upsert, args...); err != nil {
			return postgres.MapError(err, "model", name)
		}

		del, args, err := psql.Delete("lm_ngrams").Where(sq.Eq{"model_name": name}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := q.Exec(ctx, del, args...); err != nil {
			return postgres.MapError(err, "model", name)
		}

		written, err = q.CopyFrom(ctx, pgx.Identifier{"lm_ngrams"}, ngramColumns, pgx.CopyFromRows(rowsOf(name, table)))
		if err != nil {
			return postgres.MapError(err, "model", name)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import model %s: %w", name, err)
	}
	return written, nil
}

func rowsOf(name string, table *lm.Table) [][]any {
	var rows [][]any
	for n := 1; n <= table.Order(); n++ {
		table.Each(n, func(words string, e lm.Entry) {
			rows = append(rows, []any{name, n, words, e.LogProb, e.LogBackoff})
		})
	}
	return rows
}

// Source adapts a Store to lm.Source for one model name.
type Source struct {
	store *Store
	name  string
}

var _ lm.Source = (*Source)(nil)

// NewSource returns an lm.Source reading model name from store.
func NewSource(store *Store, name string) *Source {
	return &Source{store: store, name: name}
}

func (s *Source) Name() string { return lm.SourcePostgres }

func (s *Source) Load(ctx context.Context) (*lm.Table, error) {
	return s.store.LoadTable(ctx, s.name)
}
