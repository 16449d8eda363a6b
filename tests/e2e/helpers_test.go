//go:build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/ngram-analysis-backend/internal/adapter/postgres/lmstore"
	"github.com/heartmarshall/ngram-analysis-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/ngram-analysis-backend/internal/config"
	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
	"github.com/heartmarshall/ngram-analysis-backend/internal/service/analysis"
	"github.com/heartmarshall/ngram-analysis-backend/internal/transport/middleware"
	"github.com/heartmarshall/ngram-analysis-backend/internal/transport/rest"
)

// ---------------------------------------------------------------------------
// testServer wraps the full-stack HTTP server for E2E tests.
// ---------------------------------------------------------------------------

type testServer struct {
	URL    string
	Client *http.Client
	Holder *lm.Holder
	Pool   *pgxpool.Pool
}

// testLogWriter adapts testing.T to io.Writer for slog.
type testLogWriter struct{ t *testing.T }

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// ---------------------------------------------------------------------------
// setupTestServer bootstraps the full application stack. With
// withPostgres the embedded model is first imported into a real PostgreSQL
// container (shared via testhelper) and served from there.
// ---------------------------------------------------------------------------

func setupTestServer(t *testing.T, withPostgres bool) *testServer {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(testLogWriter{t}, nil))

	// 1. Model source.
	var (
		src  lm.Source = lm.EmbeddedSource{}
		pool *pgxpool.Pool
	)
	if withPostgres {
		pool = testhelper.SetupTestDB(t)
		store := lmstore.New(pool)

		table, err := lm.EmbeddedSource{}.Load(ctx)
		require.NoError(t, err)

		name := testhelper.UniqueModelName(t)
		_, err = store.Import(ctx, name, table)
		require.NoError(t, err)

		src = lmstore.NewSource(store, name)
	}

	// 2. Model holder + loader.
	holder := lm.NewHolder()
	loader := lm.NewLoader(logger, src, holder,
		lm.Options{Name: "e2e", MaxOrder: 4, UnkLogProb: -7},
		lm.RetryPolicy{InitialInterval: 10 * time.Millisecond, MaxInterval: 100 * time.Millisecond, MaxElapsedTime: time.Second},
	)
	require.NoError(t, loader.LoadWithRetry(ctx))

	// 3. Service.
	svc := analysis.NewService(logger, holder, config.AnalysisConfig{
		MaxTextLength: 100000,
		Timeout:       5 * time.Second,
		MaxBodyBytes:  1 << 20,
	})

	// 4. Router + middleware chain.
	limiter := middleware.NewRateLimiter(time.Minute)
	t.Cleanup(limiter.Stop)

	mux := rest.NewRouter(rest.Routes{
		Analyze:           rest.NewAnalyzeHandler(svc, logger, 1<<20),
		Health:            rest.NewHealthHandler(holder, "test-version"),
		AnalyzeMiddleware: limiter.Limit(0),
	})
	handler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.CORS(config.CORSConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,OPTIONS",
			AllowedHeaders: "Content-Type,Authorization",
			MaxAge:         86400,
		}),
	)(mux)

	// 5. httptest server.
	srv := httptest.NewServer(handler)
	t.Cleanup(func() { srv.Close() })

	return &testServer{
		URL:    srv.URL,
		Client: srv.Client(),
		Holder: holder,
		Pool:   pool,
	}
}

// ---------------------------------------------------------------------------
// analyze sends POST /api/analyze and returns status + decoded body.
// ---------------------------------------------------------------------------

func (ts *testServer) analyze(t *testing.T, body map[string]any) (int, map[string]any) {
	t.Helper()

	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := ts.Client.Post(ts.URL+"/api/analyze", "application/json", bytes.NewReader(jsonBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp.StatusCode, result
}

// ngramList extracts ngrams[kind] from an analysis response.
func ngramList(t *testing.T, result map[string]any, kind string) []any {
	t.Helper()
	ngrams, ok := result["ngrams"].(map[string]any)
	require.True(t, ok, "expected ngrams object in response")
	list, ok := ngrams[kind].([]any)
	require.True(t, ok, "expected %q list in ngrams", kind)
	return list
}
