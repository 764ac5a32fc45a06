package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// SessionCounter reports the number of live viewer sessions
type SessionCounter interface {
	SessionCount() int
}

type APIHandler struct {
	storage  interfaces.StorageManager
	sessions SessionCounter
	logger   arbor.ILogger
}

func NewAPIHandler(storage interfaces.StorageManager, sessions SessionCounter, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		storage:  storage,
		sessions: sessions,
		logger:   logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler returns health check status
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// StatusHandler returns application status and store counts
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx := r.Context()
	status := map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
	}
	status["papers"] = h.countOrZero(ctx, h.storage.PaperStorage().CountPapers)
	status["annotations"] = h.countOrZero(ctx, h.storage.AnnotationStorage().CountAnnotations)
	if h.sessions != nil {
		status["viewer_sessions"] = h.sessions.SessionCount()
	}

	WriteJSON(w, http.StatusOK, status)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}

func (h *APIHandler) countOrZero(ctx context.Context, count func(context.Context) (int, error)) int {
	n, err := count(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read store count")
		return 0
	}
	return n
}
