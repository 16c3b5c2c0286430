package handlers

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/humanand/humanand/pkg/config"
	"github.com/humanand/humanand/pkg/slack"
)

// ConnectionReporter reports the state of the chat connection.
type ConnectionReporter interface {
	Status() slack.ConnectionStatus
	ConnectedSince() *time.Time
}

// PendingReporter reports the size of the pending registry.
type PendingReporter interface {
	Count() (updates, nudges int)
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string          `json:"status"`
	Chat   *ChatHealth     `json:"chat,omitempty"`
	Queue  *PendingSummary `json:"pending,omitempty"`
}

// ChatHealth describes the chat connection.
type ChatHealth struct {
	Status         string     `json:"status"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
}

// PendingSummary counts proposals awaiting approval.
type PendingSummary struct {
	Updates int `json:"updates"`
	Nudges  int `json:"nudges"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg     *config.Config
	chat    ConnectionReporter
	pending PendingReporter
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. chat and pending may be nil.
func NewHealthHandler(cfg *config.Config, chat ConnectionReporter, pending PendingReporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, chat: chat, pending: pending, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests. The process is healthy while it runs;
// a chat connection that is down or reconnecting reports "degraded" without
// failing the check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}

	if h.chat != nil {
		status := h.chat.Status()
		resp.Chat = &ChatHealth{Status: string(status), ConnectedSince: h.chat.ConnectedSince()}
		if status != slack.StatusConnected {
			resp.Status = "degraded"
		}
	}
	if h.pending != nil {
		updates, nudges := h.pending.Count()
		resp.Queue = &PendingSummary{Updates: updates, Nudges: nudges}
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "humanand",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
