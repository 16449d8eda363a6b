package rest

import (
	"net/http"

	"github.com/heartmarshall/ngram-analysis-backend/internal/transport/middleware"
)

// Routes holds the handlers mounted by NewRouter.
type Routes struct {
	Analyze *AnalyzeHandler
	Health  *HealthHandler
	// AnalyzeMiddleware wraps only POST /api/analyze (rate limiting).
	AnalyzeMiddleware middleware.Middleware
}

// NewRouter mounts the public API, the probes and the JSON 404 fallback.
func NewRouter(rt Routes) *http.ServeMux {
	var analyze http.Handler = http.HandlerFunc(rt.Analyze.Analyze)
	if rt.AnalyzeMiddleware != nil {
		analyze = rt.AnalyzeMiddleware(analyze)
	}

	mux := http.NewServeMux()
	mux.Handle("POST "+pathAnalyze, analyze)
	mux.HandleFunc("GET "+pathHealth, rt.Health.Health)
	mux.HandleFunc("GET /live", rt.Health.Live)
	mux.HandleFunc("GET /ready", rt.Health.Ready)
	mux.HandleFunc("/", Root)
	return mux
}
