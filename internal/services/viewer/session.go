package viewer

import (
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
	"github.com/ternarybob/marginalia/internal/services/readaloud"
)

var (
	// ErrSessionNotFound is returned for unknown or already-closed sessions
	ErrSessionNotFound = errors.New("viewer session not found")

	// ErrNoTextAvailable means neither client-side extraction nor the
	// server-side fallback produced any text.
	ErrNoTextAvailable = errors.New("no text available")

	// ErrRenderFailure means the PDF could not be opened for display
	ErrRenderFailure = errors.New("render failure")

	// ErrNotPDFSession is returned for operations that only apply in
	// pdf-direct mode.
	ErrNotPDFSession = errors.New("session is not displaying a PDF")
)

// Session is one open document viewer. Mode starts at detecting and settles
// on exactly one of pdf-direct, html-fallback, external-link or error; the
// text-position machinery is only active in pdf-direct.
type Session struct {
	ID  string
	URL string

	mu          sync.RWMutex
	mode        models.ViewerMode
	paper       *models.Paper
	textMap     *models.PageTextMap
	controller  *readaloud.Controller
	article     *interfaces.Article
	fallback    string // server-extracted text when the map came up empty
	usedFall    bool
	rotation    models.PageRotation
	currentPage int
	errMessage  string
	createdAt   time.Time
	lastAccess  time.Time
	closed      bool
}

// State is the JSON snapshot returned by the session endpoints
type State struct {
	ID           string                 `json:"id"`
	URL          string                 `json:"url"`
	Mode         models.ViewerMode      `json:"mode"`
	PaperID      string                 `json:"paper_id,omitempty"`
	PageCount    int                    `json:"page_count"`
	TextRuns     int                    `json:"text_runs"`
	FallbackText string                 `json:"fallback_text,omitempty"`
	Article      *interfaces.Article    `json:"article,omitempty"`
	CurrentPage  int                    `json:"current_page"`
	Rotation     int                    `json:"rotation"`
	Playing      bool                   `json:"playing"`
	Position     models.ReadingPosition `json:"position"`
	Error        string                 `json:"error,omitempty"`
}

// Mode returns the session's resolved viewer mode
func (s *Session) Mode() models.ViewerMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// TextMap returns the session's text map; nil outside pdf-direct mode
func (s *Session) TextMap() *models.PageTextMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.textMap
}

// Paper returns the paper record backing this session, if any
func (s *Session) Paper() *models.Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paper
}

// SetRotation updates the displayed page rotation
func (s *Session) SetRotation(rotation models.PageRotation) {
	s.mu.Lock()
	s.rotation = rotation.Normalize()
	s.mu.Unlock()
}

// Rotation returns the current displayed rotation
func (s *Session) Rotation() models.PageRotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rotation
}

// SetCurrentPage moves the visible page; negative indexes are ignored
func (s *Session) SetCurrentPage(pageIndex int) {
	if pageIndex < 0 {
		return
	}
	s.mu.Lock()
	s.currentPage = pageIndex
	controller := s.controller
	s.mu.Unlock()

	if controller != nil {
		controller.SetCurrentPage(pageIndex)
	}
}

// Snapshot builds the state view served by GET /api/viewer/{id}
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		ID:           s.ID,
		URL:          s.URL,
		Mode:         s.mode,
		FallbackText: s.fallback,
		Article:      s.article,
		CurrentPage:  s.currentPage,
		Rotation:     int(s.rotation),
		Error:        s.errMessage,
	}
	if s.paper != nil {
		state.PaperID = s.paper.ID
		state.PageCount = s.paper.PageCount
	}
	if s.textMap != nil {
		state.TextRuns = s.textMap.TotalRuns()
	}
	if s.controller != nil {
		state.Playing = s.controller.Playing()
		state.Position = s.controller.Position()
	}
	return state
}

// touch records activity for the stale-session sweep
func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

func (s *Session) readAloud() (*readaloud.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mode != models.ModePDFDirect || s.controller == nil {
		return nil, ErrNotPDFSession
	}
	return s.controller, nil
}
