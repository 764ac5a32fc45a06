package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// ProxyHandler serves GET /api/proxy-pdf?url= so the browser-side renderer
// can load cross-origin PDFs through a same-origin path.
type ProxyHandler struct {
	fetcher interfaces.ContentFetcher
	logger  arbor.ILogger
}

func NewProxyHandler(fetcher interfaces.ContentFetcher, logger arbor.ILogger) *ProxyHandler {
	return &ProxyHandler{
		fetcher: fetcher,
		logger:  logger,
	}
}

// ProxyPDFHandler fetches the requested document and relays it
func (h *ProxyHandler) ProxyPDFHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		WriteError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	result, err := h.fetcher.Fetch(r.Context(), rawURL)
	if err != nil {
		h.logger.Warn().Err(err).Str("url", rawURL).Msg("Proxy fetch failed")
		WriteError(w, http.StatusBadGateway, "Failed to fetch document")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	if result.FromCache {
		w.Header().Set("X-Cache", "HIT")
	}
	w.Write(result.Body)
}
