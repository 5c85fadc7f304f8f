package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/hr-assistant/internal/config"
	"github.com/kirillkom/hr-assistant/internal/core/domain"
	"github.com/kirillkom/hr-assistant/internal/core/ports"
	"github.com/kirillkom/hr-assistant/internal/observability/metrics"
)

const (
	conversationHeader  = "X-Conversation-Id"
	maxChatBodyBytes    = 64 << 10
	backpressureTimeout = 250 * time.Millisecond
)

type Router struct {
	cfg     config.Config
	chat    ports.ChatService
	health  ports.BackendHealthReader
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	chat ports.ChatService,
	health ports.BackendHealthReader,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		chat:    chat,
		health:  health,
		metrics: httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	var onReject rejectionRecorder
	if rt.metrics != nil {
		onReject = rt.metrics.RecordRejected
	}

	api := http.NewServeMux()
	api.HandleFunc("/v1/chat", rt.postChat)
	api.HandleFunc("/v1/backends", rt.getBackends)

	var apiHandler http.Handler = api
	apiHandler = backpressureWithRecorder(apiHandler, rt.cfg.APIMaxInFlight, backpressureTimeout, onReject)
	apiHandler = rateLimitMiddleware(apiHandler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", apiHandler)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id"`
	Language       string `json:"language"`
}

func (rt *Router) postChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	body := http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	resp, err := rt.chat.Handle(r.Context(), domain.Query{
		Text:           req.Query,
		ConversationID: strings.TrimSpace(req.ConversationID),
		Language:       req.Language,
	})
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= 500 {
			slog.Error("chat_request_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
		}
		writeError(w, r, status, publicErrorMessage(status, err))
		return
	}
	w.Header().Set(conversationHeader, resp.ConversationID)
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) getBackends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backends": rt.health.Backends()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":      message,
		"request_id": requestIDFromContext(r.Context()),
	})
}
