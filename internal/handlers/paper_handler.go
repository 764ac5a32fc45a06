package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
	"github.com/ternarybob/marginalia/internal/services/annotations"
	"github.com/ternarybob/marginalia/internal/services/export"
)

// PaperHandler serves the paper registry and its annotation collections
type PaperHandler struct {
	papers      interfaces.PaperStorage
	annotations *annotations.Service
	exporter    *export.Service
	logger      arbor.ILogger
}

func NewPaperHandler(papers interfaces.PaperStorage, annotationService *annotations.Service, exporter *export.Service, logger arbor.ILogger) *PaperHandler {
	return &PaperHandler{
		papers:      papers,
		annotations: annotationService,
		exporter:    exporter,
		logger:      logger,
	}
}

// ListHandler handles GET /api/papers
func (h *PaperHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit, offset := GetPaginationParams(r)
	collectionID := r.URL.Query().Get("collection_id")

	papers, err := h.papers.ListPapers(r.Context(), collectionID, limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list papers")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"papers": papers,
		"count":  len(papers),
	})
}

type createPaperRequest struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	CollectionID string `json:"collection_id"`
}

// CreateHandler handles POST /api/papers. Registering a URL twice returns the
// existing record instead of a duplicate.
func (h *PaperHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req createPaperRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		WriteError(w, http.StatusBadRequest, "url is required")
		return
	}

	if existing, err := h.papers.GetPaperByURL(r.Context(), req.URL); err == nil {
		WriteJSON(w, http.StatusOK, existing)
		return
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		WriteError(w, http.StatusInternalServerError, "Failed to look up paper")
		return
	}

	paper := &models.Paper{
		ID:           common.NewPaperID(),
		URL:          req.URL,
		Title:        req.Title,
		CollectionID: req.CollectionID,
	}
	if err := h.papers.SavePaper(r.Context(), paper); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to save paper")
		return
	}

	h.logger.Info().Str("paper_id", paper.ID).Str("url", paper.URL).Msg("Paper registered")
	WriteJSON(w, http.StatusCreated, paper)
}

// GetHandler handles GET /api/papers/{id}
func (h *PaperHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	paper, ok := h.lookupPaper(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, paper)
}

// DeleteHandler handles DELETE /api/papers/{id}; the paper's annotations go
// with it.
func (h *PaperHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	paper, ok := h.lookupPaper(w, r)
	if !ok {
		return
	}

	if err := h.annotations.DeleteByPaper(r.Context(), paper.ID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to delete paper annotations")
		return
	}
	if err := h.papers.DeletePaper(r.Context(), paper.ID); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to delete paper")
		return
	}

	h.logger.Info().Str("paper_id", paper.ID).Msg("Paper deleted")
	WriteSuccess(w, "Paper deleted")
}

// AnnotationsHandler handles GET and POST /api/papers/{id}/annotations
func (h *PaperHandler) AnnotationsHandler(w http.ResponseWriter, r *http.Request) {
	paper, ok := h.lookupPaper(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := h.annotations.List(r.Context(), paper.ID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to list annotations")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"annotations": list,
			"count":       len(list),
		})

	case http.MethodPost:
		var input annotations.SelectionInput
		if !DecodeJSON(w, r, &input) {
			return
		}
		created, err := h.annotations.CreateFromSelection(r.Context(), paper.ID, &input)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, created)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// ExportHandler handles GET /api/papers/{id}/export.pdf and export.md
func (h *PaperHandler) ExportHandler(w http.ResponseWriter, r *http.Request, format string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	paper, ok := h.lookupPaper(w, r)
	if !ok {
		return
	}

	list, err := h.annotations.List(r.Context(), paper.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list annotations")
		return
	}

	switch format {
	case "pdf":
		pdfBytes, err := h.exporter.ExportPDF(r.Context(), paper, list)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to export notes")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", paper.ID+"-notes.pdf"))
		w.Write(pdfBytes)

	case "md":
		markdown, err := h.exporter.ExportMarkdown(r.Context(), paper, list)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to export notes")
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(markdown))

	default:
		WriteError(w, http.StatusNotFound, "Unknown export format")
	}
}

func (h *PaperHandler) lookupPaper(w http.ResponseWriter, r *http.Request) (*models.Paper, bool) {
	id := PathParam(r, "/api/papers/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Paper ID is required")
		return nil, false
	}

	paper, err := h.papers.GetPaper(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Paper not found")
		} else {
			WriteError(w, http.StatusInternalServerError, "Failed to load paper")
		}
		return nil, false
	}
	return paper, true
}
