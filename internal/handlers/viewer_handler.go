package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
	"github.com/ternarybob/marginalia/internal/services/annotations"
	"github.com/ternarybob/marginalia/internal/services/viewer"
)

// ViewerHandler serves the per-session viewer endpoints
type ViewerHandler struct {
	manager *viewer.Manager
	logger  arbor.ILogger
}

func NewViewerHandler(manager *viewer.Manager, logger arbor.ILogger) *ViewerHandler {
	return &ViewerHandler{
		manager: manager,
		logger:  logger,
	}
}

type openRequest struct {
	URL string `json:"url"`
}

// OpenHandler handles POST /api/viewer/open
func (h *ViewerHandler) OpenHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req openRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	session, err := h.manager.Open(r.Context(), req.URL)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, session.Snapshot())
}

// SessionHandler handles GET and DELETE /api/viewer/{id}
func (h *ViewerHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := PathParam(r, "/api/viewer/")
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		session, err := h.manager.Get(sessionID)
		if err != nil {
			h.writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, session.Snapshot())

	case http.MethodDelete:
		if err := h.manager.Close(r.Context(), sessionID); err != nil {
			h.writeSessionError(w, err)
			return
		}
		WriteSuccess(w, "Session closed")

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

type pageRequest struct {
	PageIndex int  `json:"page_index"`
	Rotation  *int `json:"rotation,omitempty"`
}

// PageStateHandler handles POST /api/viewer/{id}/page (visible page, rotation)
func (h *ViewerHandler) PageStateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}

	var req pageRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	session.SetCurrentPage(req.PageIndex)
	if req.Rotation != nil {
		session.SetRotation(models.PageRotation(*req.Rotation))
	}
	WriteJSON(w, http.StatusOK, session.Snapshot())
}

// SelectionHandler handles POST /api/viewer/{id}/selection (capture path)
func (h *ViewerHandler) SelectionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	sessionID := PathParam(r, "/api/viewer/")
	var input annotations.SelectionInput
	if !DecodeJSON(w, r, &input) {
		return
	}

	created, err := h.manager.CaptureSelection(r.Context(), sessionID, &input)
	if err != nil {
		switch {
		case errors.Is(err, viewer.ErrSessionNotFound):
			WriteError(w, http.StatusNotFound, "Viewer session not found")
		case errors.Is(err, viewer.ErrNotPDFSession):
			WriteError(w, http.StatusConflict, "Selections require a PDF viewer session")
		default:
			WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	WriteJSON(w, http.StatusCreated, created)
}

// OverlaysHandler handles GET /api/viewer/{id}/page/{n}/overlays (render path)
func (h *ViewerHandler) OverlaysHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	sessionID := PathParam(r, "/api/viewer/")
	pageIndex, ok := overlayPageIndex(r.URL.Path)
	if !ok {
		WriteError(w, http.StatusBadRequest, "Invalid page number")
		return
	}

	boxes, err := h.manager.Overlays(r.Context(), sessionID, pageIndex)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"page_index": pageIndex,
		"overlays":   boxes,
	})
}

// ReadAloudHandler handles POST /api/viewer/{id}/readaloud/{play|pause|stop}
func (h *ViewerHandler) ReadAloudHandler(w http.ResponseWriter, r *http.Request, action string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	sessionID := PathParam(r, "/api/viewer/")

	var err error
	switch action {
	case "play":
		err = h.manager.Play(r.Context(), sessionID)
	case "pause":
		err = h.manager.Pause(sessionID)
	case "stop":
		err = h.manager.Stop(r.Context(), sessionID)
	default:
		WriteError(w, http.StatusNotFound, "Unknown read-aloud action")
		return
	}
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	WriteSuccess(w, "read-aloud "+action)
}

// BoundaryHandler handles POST /api/viewer/{id}/readaloud/boundary, the
// ingestion point for word-boundary events from a client-side speech engine.
func (h *ViewerHandler) BoundaryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	sessionID := PathParam(r, "/api/viewer/")
	var boundary interfaces.WordBoundary
	if !DecodeJSON(w, r, &boundary) {
		return
	}
	if strings.TrimSpace(boundary.Word) == "" {
		WriteError(w, http.StatusBadRequest, "word is required")
		return
	}

	if err := h.manager.Boundary(r.Context(), sessionID, boundary); err != nil {
		h.writeSessionError(w, err)
		return
	}
	WriteSuccess(w, "boundary accepted")
}

func (h *ViewerHandler) lookupSession(w http.ResponseWriter, r *http.Request) (*viewer.Session, bool) {
	sessionID := PathParam(r, "/api/viewer/")
	session, err := h.manager.Get(sessionID)
	if err != nil {
		h.writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func (h *ViewerHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, viewer.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, "Viewer session not found")
	case errors.Is(err, viewer.ErrNotPDFSession):
		WriteError(w, http.StatusConflict, "Operation requires a PDF viewer session")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// overlayPageIndex parses the {n} of /api/viewer/{id}/page/{n}/overlays
func overlayPageIndex(path string) (int, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "page" && i+1 < len(parts) {
			n, err := strconv.Atoi(parts[i+1])
			if err != nil || n < 0 {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}
