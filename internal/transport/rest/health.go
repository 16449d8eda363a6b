package rest

import (
	"net/http"
	"time"

	"github.com/heartmarshall/ngram-analysis-backend/internal/lm"
)

// modelInfo reports the language model currently serving requests.
type modelInfo interface {
	Info() (lm.Info, bool)
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	models  modelInfo
	version string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(models modelInfo, version string) *HealthHandler {
	return &HealthHandler{models: models, version: version}
}

// HealthResponse is the JSON response for /api/health, /live and /ready.
type HealthResponse struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Version   string         `json:"version,omitempty"`
	Model     *ModelResponse `json:"model,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ModelResponse describes the loaded language model.
type ModelResponse struct {
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Order      int       `json:"order"`
	Vocabulary int       `json:"vocabulary"`
	NGrams     []int     `json:"ngrams"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready is the readiness probe: 200 once a model is loaded, 503 before.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.models.Info(); !ok {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "down",
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Health is the full health check with version and model details.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	info, ok := h.models.Info()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "degraded",
			Message:   "language model not loaded",
			Version:   h.version,
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: "N-Gram Analysis API is running",
		Version: h.version,
		Model: &ModelResponse{
			Name:       info.Name,
			Source:     info.Source,
			Order:      info.Order,
			Vocabulary: info.Vocabulary,
			NGrams:     info.NGrams,
			LoadedAt:   info.LoadedAt,
		},
		Timestamp: time.Now(),
	})
}
