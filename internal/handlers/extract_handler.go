package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// ExtractHandler serves POST /api/extract-pdf-text, the server-side fallback
// used when client-side extraction finds no text runs.
type ExtractHandler struct {
	fetcher   interfaces.ContentFetcher
	extractor interfaces.TextExtractor
	logger    arbor.ILogger
}

func NewExtractHandler(fetcher interfaces.ContentFetcher, extractor interfaces.TextExtractor, logger arbor.ILogger) *ExtractHandler {
	return &ExtractHandler{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    logger,
	}
}

type extractRequest struct {
	PDFURL   string `json:"pdf_url"`
	MaxPages int    `json:"max_pages"`
}

type extractResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}

// ExtractTextHandler fetches the PDF and extracts its plain text. Extraction
// coming up empty is reported as success=false with a 200, not an HTTP error;
// the client shows an advisory either way.
func (h *ExtractHandler) ExtractTextHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req extractRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PDFURL) == "" {
		WriteError(w, http.StatusBadRequest, "pdf_url is required")
		return
	}

	fetched, err := h.fetcher.Fetch(r.Context(), req.PDFURL)
	if err != nil {
		h.logger.Warn().Err(err).Str("url", req.PDFURL).Msg("Fallback extraction fetch failed")
		WriteJSON(w, http.StatusOK, extractResponse{Success: false, Error: "failed to fetch document"})
		return
	}

	extracted, err := h.extractor.ExtractText(r.Context(), fetched.Body, req.MaxPages)
	if err != nil {
		h.logger.Warn().Err(err).Str("url", req.PDFURL).Msg("Fallback text extraction failed")
		WriteJSON(w, http.StatusOK, extractResponse{Success: false, Error: "failed to extract text"})
		return
	}

	WriteJSON(w, http.StatusOK, extractResponse{
		Success: strings.TrimSpace(extracted) != "",
		Text:    extracted,
	})
}
