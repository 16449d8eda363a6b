package rest

import "net/http"

const (
	pathHealth  = "/api/health"
	pathAnalyze = "/api/analyze"
)

type rootResponse struct {
	Message   string            `json:"message"`
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

type notFoundResponse struct {
	Error              string   `json:"error"`
	Message            string   `json:"message"`
	AvailableEndpoints []string `json:"available_endpoints"`
}

// Root handles GET / and answers every unmatched path with a JSON 404.
func Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "N-Gram Analysis API",
		Status:  "running",
		Endpoints: map[string]string{
			"health":  pathHealth,
			"analyze": pathAnalyze,
		},
	})
}

// NotFound writes the JSON 404 listing the public endpoints.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, notFoundResponse{
		Error:              "Endpoint not found",
		Message:            "The requested URL was not found on the server.",
		AvailableEndpoints: []string{pathHealth, pathAnalyze},
	})
}
