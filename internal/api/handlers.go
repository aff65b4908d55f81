package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ysakai/mindbridge/internal/config"
	"github.com/ysakai/mindbridge/internal/speech"
	"github.com/ysakai/mindbridge/internal/storage/sqlite"
	"github.com/ysakai/mindbridge/internal/websocket"
	"github.com/ysakai/mindbridge/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	usage                *speech.UsageTracker
	config               *config.Config
	logger               *logger.Logger
	wsServer             *websocket.Server
	transcriptionStorage *sqlite.TranscriptionStorage
	startedAt            time.Time
}

// NewHandler creates a new API handler. transcriptionStorage may be nil when
// persistence is disabled.
func NewHandler(usage *speech.UsageTracker, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server, transcriptionStorage *sqlite.TranscriptionStorage) *Handler {
	return &Handler{
		usage:                usage,
		config:               cfg,
		logger:               log.Named("api-handler"),
		wsServer:             wsServer,
		transcriptionStorage: transcriptionStorage,
		startedAt:            time.Now(),
	}
}

// GetHealth returns liveness info
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// GetUsage returns the current API usage counters
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	snap := h.usage.Snapshot()
	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":        time.Now(),
		"usage":            snap,
		"usage_percentage": h.usage.UsagePercentage(),
		"limit_exceeded":   h.usage.IsLimitExceeded(),
	})
}

// ResetUsage resets the monthly usage counters
func (h *Handler) ResetUsage(w http.ResponseWriter, r *http.Request) {
	h.usage.ResetMonthly()
	h.logger.Info("Monthly usage counters reset via API")

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"usage":     h.usage.Snapshot(),
	})
}

// ResetDailyUsage resets the daily usage counter, keeping monthly totals
func (h *Handler) ResetDailyUsage(w http.ResponseWriter, r *http.Request) {
	h.usage.ResetDaily()
	h.logger.Info("Daily usage counter reset via API")

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"usage":     h.usage.Snapshot(),
	})
}

// GetTranscriptions returns recent transcriptions with pagination
func (h *Handler) GetTranscriptions(w http.ResponseWriter, r *http.Request) {
	if h.transcriptionStorage == nil {
		http.Error(w, "Transcription storage not available", http.StatusServiceUnavailable)
		return
	}

	limit, offset := parsePaginationParams(r)

	records, err := h.transcriptionStorage.GetTranscriptions(limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcriptions", logger.Error(err))
		http.Error(w, "Failed to retrieve transcriptions", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp":      time.Now(),
		"count":          len(records),
		"transcriptions": records,
	})
}

// HandleWebSocket handles WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("WebSocket connection request received")

	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Helper functions
func parsePaginationParams(r *http.Request) (int, int) {
	limit := 100 // Default limit
	offset := 0  // Default offset

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
