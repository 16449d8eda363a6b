package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/heartmarshall/ngram-analysis-backend/internal/analysis/ngram"
	"github.com/heartmarshall/ngram-analysis-backend/internal/domain"
	"github.com/heartmarshall/ngram-analysis-backend/internal/service/analysis"
	"github.com/heartmarshall/ngram-analysis-backend/pkg/ctxutil"
)

// Client-facing error messages.
const (
	msgTextRequired   = "Text is required"
	msgNoValidTokens  = "No valid tokens found in text"
	msgInvalidBody    = "Invalid request body"
	msgBodyTooLarge   = "Request body too large"
	msgTimedOut       = "Analysis timed out"
	msgAnalysisFailed = "Analysis failed: "
)

// analysisService defines the minimal interface needed by AnalyzeHandler.
type analysisService interface {
	Analyze(ctx context.Context, input analysis.AnalyzeInput) (*domain.AnalysisResult, error)
}

// AnalyzeHandler serves POST /api/analyze.
type AnalyzeHandler struct {
	svc          analysisService
	log          *slog.Logger
	maxBodyBytes int64
}

// NewAnalyzeHandler creates an AnalyzeHandler. maxBodyBytes <= 0 leaves the
// request body unbounded.
func NewAnalyzeHandler(svc analysisService, logger *slog.Logger, maxBodyBytes int64) *AnalyzeHandler {
	return &AnalyzeHandler{
		svc:          svc,
		log:          logger.With("handler", "analyze"),
		maxBodyBytes: maxBodyBytes,
	}
}

type analyzeRequest struct {
	Text      *string `json:"text"`
	NGramType string  `json:"ngram_type"`
}

type ngramEntryResponse struct {
	ID          int     `json:"id"`
	Token       string  `json:"token"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

type ngramsResponse struct {
	Unigrams  []ngramEntryResponse `json:"unigrams"`
	Bigrams   []ngramEntryResponse `json:"bigrams"`
	Trigrams  []ngramEntryResponse `json:"trigrams"`
	FourGrams []ngramEntryResponse `json:"4grams"`
}

type analyzeResponse struct {
	Perplexity   float64        `json:"perplexity"`
	TotalTokens  int            `json:"total_tokens"`
	UniqueTokens int            `json:"unique_tokens"`
	StopWords    int            `json:"stop_words"`
	Entropy      float64        `json:"entropy"`
	LatencyMS    float64        `json:"latency_ms"`
	NGrams       ngramsResponse `json:"ngrams"`
}

// decodeBody reads exactly one JSON value from body. Anything after it other
// than whitespace is an error.
func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// Analyze handles POST /api/analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req analyzeRequest
	if err := decodeBody(r.Body, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.Text == nil || strings.TrimSpace(*req.Text) == "" {
		writeError(w, http.StatusBadRequest, msgTextRequired)
		return
	}

	result, err := h.svc.Analyze(r.Context(), analysis.AnalyzeInput{
		Text:      *req.Text,
		NGramType: domain.NGramType(req.NGramType),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAnalyzeResponse(result))
}

func (h *AnalyzeHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, validationMessage(ve))
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, msgTimedOut)
	case errors.Is(err, context.Canceled):
		// The client is gone.
		h.log.InfoContext(r.Context(), "analysis canceled",
			slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
		)
	default:
		h.log.ErrorContext(r.Context(), "analysis failed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.RequestIDFromCtx(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, msgAnalysisFailed+err.Error())
	}
}

func validationMessage(ve *domain.ValidationError) string {
	switch {
	case ve.HasField("text", "required"):
		return msgTextRequired
	case ve.HasField("text", "no valid tokens found"):
		return msgNoValidTokens
	}

	parts := make([]string, 0, len(ve.Errors))
	for _, fe := range ve.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(parts, "; ")
}

func toAnalyzeResponse(res *domain.AnalysisResult) analyzeResponse {
	return analyzeResponse{
		Perplexity:   ngram.Round(res.Perplexity, 2),
		TotalTokens:  res.TotalTokens,
		UniqueTokens: res.UniqueTokens,
		StopWords:    res.StopWords,
		Entropy:      ngram.Round(res.Entropy, 2),
		LatencyMS:    ngram.Round(res.LatencyMS, 1),
		NGrams: ngramsResponse{
			Unigrams:  toEntries(res.NGrams.Unigrams),
			Bigrams:   toEntries(res.NGrams.Bigrams),
			Trigrams:  toEntries(res.NGrams.Trigrams),
			FourGrams: toEntries(res.NGrams.FourGrams),
		},
	}
}

func toEntries(entries []domain.NGramEntry) []ngramEntryResponse {
	out := make([]ngramEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = ngramEntryResponse{
			ID:          e.ID,
			Token:       `"` + e.SurfaceForm + `"`,
			Count:       e.Count,
			Probability: e.Probability,
		}
	}
	return out
}
