package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/bafoeg-assistant/internal/config"
	"github.com/kirillkom/bafoeg-assistant/internal/core/domain"
	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
	"github.com/kirillkom/bafoeg-assistant/internal/observability/metrics"
)

const (
	serviceName     = "bafoeg-backend"
	maxChatBodySize = 1 << 20
)

type Router struct {
	cfg     config.Config
	chat    ports.BackendChatService
	metrics *metrics.HTTPServerMetrics
}

// NewRouter serves the backend API. metrics may be nil.
func NewRouter(cfg config.Config, chat ports.BackendChatService, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:     cfg,
		chat:    chat,
		metrics: m,
	}
}

func (rt *Router) Handler() http.Handler {
	chat := backpressureMiddleware(http.HandlerFunc(rt.handleChat), rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	chat = rateLimitMiddleware(chat, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.Handle("POST /chat", chat)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = corsMiddleware(mux, rt.cfg.APICORSOrigin)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.BackendHealth{
		Status:              "ok",
		KnowledgeBaseLoaded: rt.chat.KnowledgeBaseLoaded(),
	})
}

type chatRequest struct {
	Question string `json:"question"`
	APIKey   string `json:"api_key"`
}

func (rt *Router) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if !rt.chat.KnowledgeBaseLoaded() {
		rt.recordChat("index-unavailable", nil, start)
		writeError(w, http.StatusInternalServerError, "index-unavailable", "Knowledge base not loaded")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodySize)).Decode(&req); err != nil {
		rt.recordChat("invalid-input", nil, start)
		writeError(w, http.StatusBadRequest, "invalid-input", "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		rt.recordChat("invalid-input", nil, start)
		writeError(w, http.StatusBadRequest, "invalid-input", "No question provided")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" && rt.cfg.OpenRouterAPIKey == "" {
		rt.recordChat("invalid-input", nil, start)
		writeError(w, http.StatusBadRequest, "invalid-input", "No API key provided")
		return
	}

	answer, err := rt.chat.Answer(r.Context(), req.Question, req.APIKey)
	if err != nil {
		outcome := errorOutcome(err)
		rt.recordChat(outcome, nil, start)
		slog.Error("chat_failed",
			"request_id", requestIDFromContext(r.Context()),
			"outcome", outcome,
			"error", err.Error(),
		)
		writeError(w, mapErrorToHTTPStatus(err), outcome, errorMessage(err))
		return
	}

	rt.recordChat("success", answer, start)
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) recordChat(outcome string, answer *domain.BackendAnswer, start time.Time) {
	if rt.metrics == nil {
		return
	}
	if answer == nil {
		rt.metrics.RecordChat(serviceName, outcome, 0, false, time.Since(start))
		return
	}
	rt.metrics.RecordChat(serviceName, outcome, len(answer.Sources), answer.Fallback, time.Since(start))
	if answer.Usage != nil {
		rt.metrics.RecordTokenUsage(serviceName, rt.cfg.OpenRouterModel, answer.Usage.PromptTokens, answer.Usage.CompletionTokens)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": message, "kind": kind})
}
