package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route (per-session event stream)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Viewer sessions
	mux.HandleFunc("/api/viewer/open", s.app.ViewerHandler.OpenHandler)
	mux.HandleFunc("/api/viewer/", s.handleViewerRoutes) // GET/DELETE /{id} and subpaths

	// API routes - Papers and annotations
	mux.HandleFunc("/api/papers", s.handlePapersRoute)
	mux.HandleFunc("/api/papers/", s.handlePaperRoutes) // GET/DELETE /{id} and subpaths
	mux.HandleFunc("/api/annotations/", s.handleAnnotationRoutes)

	// API routes - Document access
	mux.HandleFunc("/api/proxy-pdf", s.app.ProxyHandler.ProxyPDFHandler)
	mux.HandleFunc("/api/extract-pdf-text", s.app.ExtractHandler.ExtractTextHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.APIHandler.StatusHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleViewerRoutes routes viewer session requests to the appropriate handler
func (s *Server) handleViewerRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/viewer/{id}/selection
	if strings.HasSuffix(path, "/selection") {
		s.app.ViewerHandler.SelectionHandler(w, r)
		return
	}

	// POST /api/viewer/{id}/page
	if strings.HasSuffix(path, "/page") {
		s.app.ViewerHandler.PageStateHandler(w, r)
		return
	}

	// GET /api/viewer/{id}/page/{n}/overlays
	if strings.HasSuffix(path, "/overlays") {
		s.app.ViewerHandler.OverlaysHandler(w, r)
		return
	}

	// Read-aloud subroutes
	if strings.Contains(path, "/readaloud/") {
		if strings.HasSuffix(path, "/boundary") {
			s.app.ViewerHandler.BoundaryHandler(w, r)
			return
		}
		action := path[strings.LastIndex(path, "/")+1:]
		s.app.ViewerHandler.ReadAloudHandler(w, r, action)
		return
	}

	// GET/DELETE /api/viewer/{id}
	s.app.ViewerHandler.SessionHandler(w, r)
}

// handlePapersRoute routes /api/papers requests (list and create)
func (s *Server) handlePapersRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.PaperHandler.ListHandler(w, r)
	case "POST":
		s.app.PaperHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePaperRoutes routes /api/papers/{id} requests and subpaths
func (s *Server) handlePaperRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET/POST /api/papers/{id}/annotations
	if strings.HasSuffix(path, "/annotations") {
		s.app.PaperHandler.AnnotationsHandler(w, r)
		return
	}

	// GET /api/papers/{id}/export.pdf
	if strings.HasSuffix(path, "/export.pdf") {
		s.app.PaperHandler.ExportHandler(w, r, "pdf")
		return
	}

	// GET /api/papers/{id}/export.md
	if strings.HasSuffix(path, "/export.md") {
		s.app.PaperHandler.ExportHandler(w, r, "md")
		return
	}

	switch r.Method {
	case "GET":
		s.app.PaperHandler.GetHandler(w, r)
	case "DELETE":
		s.app.PaperHandler.DeleteHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleAnnotationRoutes routes /api/annotations/{id} requests
func (s *Server) handleAnnotationRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.AnnotationHandler.GetHandler(w, r)
	case "DELETE":
		s.app.AnnotationHandler.DeleteHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
