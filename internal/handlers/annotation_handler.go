package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/services/annotations"
)

// AnnotationHandler serves individual annotation records
type AnnotationHandler struct {
	annotations *annotations.Service
	logger      arbor.ILogger
}

func NewAnnotationHandler(annotationService *annotations.Service, logger arbor.ILogger) *AnnotationHandler {
	return &AnnotationHandler{
		annotations: annotationService,
		logger:      logger,
	}
}

// GetHandler handles GET /api/annotations/{id}
func (h *AnnotationHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := PathParam(r, "/api/annotations/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Annotation ID is required")
		return
	}

	annotation, err := h.annotations.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Annotation not found")
		} else {
			WriteError(w, http.StatusInternalServerError, "Failed to load annotation")
		}
		return
	}
	WriteJSON(w, http.StatusOK, annotation)
}

// DeleteHandler handles DELETE /api/annotations/{id}
func (h *AnnotationHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	id := PathParam(r, "/api/annotations/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Annotation ID is required")
		return
	}

	if err := h.annotations.Delete(r.Context(), id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Annotation not found")
		} else {
			WriteError(w, http.StatusInternalServerError, "Failed to delete annotation")
		}
		return
	}

	h.logger.Debug().Str("annotation_id", id).Msg("Annotation deleted")
	WriteSuccess(w, "Annotation deleted")
}
