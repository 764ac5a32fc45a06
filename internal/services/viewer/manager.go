// -----------------------------------------------------------------------
// Viewer Manager - Per-document viewer sessions and mode detection
// -----------------------------------------------------------------------

package viewer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
	"github.com/ternarybob/marginalia/internal/services/annotations"
	"github.com/ternarybob/marginalia/internal/services/readaloud"
	"github.com/ternarybob/marginalia/internal/services/textmap"
)

// noTextAdvisory is shown when both client-side extraction and the
// server-side fallback come up empty.
const noTextAdvisory = "This document has no extractable text. Read-aloud and text search are unavailable."

// Deps are the collaborators a Manager needs
type Deps struct {
	Fetcher     interfaces.ContentFetcher
	Opener      interfaces.DocumentOpener
	Extractor   *textmap.Extractor
	TextFall    interfaces.TextExtractor
	Renderer    interfaces.ArticleRenderer
	NewSynth    func() interfaces.SpeechSynthesizer
	Papers      interfaces.PaperStorage
	Annotations *annotations.Service
	Events      interfaces.EventService
	Mapper      *readaloud.Mapper
	Logger      arbor.ILogger
}

// Manager owns all live viewer sessions and runs the mode state machine
// when a document is opened:
//
//	detecting -> pdf-direct     fetched content is a PDF and renders
//	pdf-direct -> html-fallback the PDF could not be opened
//	html-fallback -> external-link the HTML rendition also failed
//	any -> error                the fetch itself failed, terminal
type Manager struct {
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session for the given URL and resolves its viewer mode.
// Fetch and render failures are absorbed into the session's mode, not
// returned as errors; only an unusable request fails outright.
func (m *Manager) Open(ctx context.Context, rawURL string) (*Session, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:         common.NewSessionID(),
		URL:        rawURL,
		mode:       models.ModeDetecting,
		createdAt:  now,
		lastAccess: now,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.resolve(ctx, session)

	m.deps.Logger.Info().
		Str("session_id", session.ID).
		Str("url", rawURL).
		Str("mode", string(session.Mode())).
		Msg("Viewer session opened")

	return session, nil
}

// Get returns a live session by ID
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.touch()
	return session, nil
}

// Close stops any pending speech immediately and discards the session
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.mu.Lock()
	session.closed = true
	controller := session.controller
	session.mu.Unlock()

	if controller != nil {
		controller.Stop(ctx)
	}

	m.deps.Events.Publish(ctx, interfaces.Event{
		Type:      interfaces.EventSessionClosed,
		SessionID: id,
	})
	return nil
}

// SessionCount returns the number of live sessions
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// SweepStale closes sessions idle for longer than maxIdle and returns how
// many were closed. Run from the maintenance schedule.
func (m *Manager) SweepStale(ctx context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var stale []string
	for id, session := range m.sessions {
		if session.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		if err := m.Close(ctx, id); err == nil {
			m.deps.Logger.Debug().Str("session_id", id).Msg("Stale viewer session closed")
		}
	}
	return len(stale)
}

// CaptureSelection runs the capture path for one session: the selection
// becomes a persisted annotation owned by the session's paper.
func (m *Manager) CaptureSelection(ctx context.Context, sessionID string, input *annotations.SelectionInput) (*models.Annotation, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	paper := session.Paper()
	if session.Mode() != models.ModePDFDirect || paper == nil {
		return nil, ErrNotPDFSession
	}

	m.deps.Events.Publish(ctx, interfaces.Event{
		Type:      interfaces.EventSelectionCaptured,
		SessionID: sessionID,
		Payload:   input,
	})

	return m.deps.Annotations.CreateFromSelection(ctx, paper.ID, input)
}

// Overlays runs the render path for one page of one session
func (m *Manager) Overlays(ctx context.Context, sessionID string, pageIndex int) ([]annotations.OverlayBox, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	paper := session.Paper()
	if session.Mode() != models.ModePDFDirect || paper == nil {
		return nil, ErrNotPDFSession
	}

	list, err := m.deps.Annotations.List(ctx, paper.ID)
	if err != nil {
		return nil, err
	}
	return annotations.OverlaysForPage(list, pageIndex, session.Rotation()), nil
}

// Play starts or resumes read-aloud for a session
func (m *Manager) Play(ctx context.Context, sessionID string) error {
	controller, err := m.sessionController(sessionID)
	if err != nil {
		return err
	}
	return controller.Play(ctx)
}

// Pause suspends read-aloud for a session
func (m *Manager) Pause(sessionID string) error {
	controller, err := m.sessionController(sessionID)
	if err != nil {
		return err
	}
	controller.Pause()
	return nil
}

// Stop cancels read-aloud for a session
func (m *Manager) Stop(ctx context.Context, sessionID string) error {
	controller, err := m.sessionController(sessionID)
	if err != nil {
		return err
	}
	controller.Stop(ctx)
	return nil
}

// Boundary feeds one externally-produced word-boundary event into a session.
// Used when speech runs in the client and only progress events reach the
// server.
func (m *Manager) Boundary(ctx context.Context, sessionID string, boundary interfaces.WordBoundary) error {
	controller, err := m.sessionController(sessionID)
	if err != nil {
		return err
	}
	controller.HandleBoundary(ctx, boundary)
	return nil
}

func (m *Manager) sessionController(sessionID string) (*readaloud.Controller, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return session.readAloud()
}

// resolve runs the detection state machine for a freshly opened session
func (m *Manager) resolve(ctx context.Context, session *Session) {
	fetched, err := m.deps.Fetcher.Fetch(ctx, session.URL)
	if err != nil {
		m.deps.Logger.Warn().Err(err).Str("url", session.URL).Msg("Document fetch failed")
		m.setMode(ctx, session, models.ModeError, fmt.Sprintf("failed to fetch document: %v", err))
		return
	}

	if looksLikePDF(fetched.ContentType, effectiveURL(fetched, session.URL)) {
		if err := m.enterPDFDirect(ctx, session, fetched.Body); err == nil {
			return
		} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		// Fall through to the HTML rendition of the same URL
	}

	if err := m.enterHTMLFallback(ctx, session, fetched.Body); err != nil {
		m.deps.Logger.Warn().Err(err).Str("url", session.URL).Msg("HTML fallback failed, degrading to external link")
		m.setMode(ctx, session, models.ModeExternalLink, "")
	}
}

// enterPDFDirect opens the PDF, builds the text map and wires up read-aloud.
// Returns ErrRenderFailure (wrapped) when the document cannot be opened so
// the caller can degrade to the HTML fallback.
func (m *Manager) enterPDFDirect(ctx context.Context, session *Session, pdfContent []byte) error {
	source, err := m.deps.Opener.Open(ctx, pdfContent)
	if err != nil {
		m.deps.Logger.Warn().Err(err).Str("url", session.URL).Msg("PDF open failed")
		return fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}

	builtMap, err := m.deps.Extractor.BuildTextMap(ctx, source)
	if err != nil {
		return err
	}

	var fallbackText string
	advisory := ""
	if builtMap.TotalRuns() == 0 {
		// One server-side extraction attempt before giving up on text
		fallbackText, err = m.deps.TextFall.ExtractText(ctx, pdfContent, 0)
		if err != nil || strings.TrimSpace(fallbackText) == "" {
			if err != nil {
				m.deps.Logger.Warn().Err(err).Str("url", session.URL).Msg("Fallback text extraction failed")
			}
			fallbackText = ""
			advisory = noTextAdvisory
		}
	}

	paper, err := m.upsertPaper(ctx, session.URL, source.NumPages())
	if err != nil {
		return err
	}

	synth := m.deps.NewSynth()
	controller := readaloud.NewController(session.ID, builtMap, m.deps.Mapper, synth, m.deps.Events, m.deps.Logger)

	session.mu.Lock()
	session.paper = paper
	session.textMap = builtMap
	session.controller = controller
	session.fallback = fallbackText
	session.usedFall = fallbackText != ""
	session.errMessage = advisory
	session.mu.Unlock()

	m.setMode(ctx, session, models.ModePDFDirect, advisory)
	m.deps.Events.Publish(ctx, interfaces.Event{
		Type:      interfaces.EventTextMapReady,
		SessionID: session.ID,
		Payload:   builtMap,
	})
	return nil
}

// enterHTMLFallback renders the fetched body as a readable article
func (m *Manager) enterHTMLFallback(ctx context.Context, session *Session, body []byte) error {
	if m.deps.Renderer == nil {
		return fmt.Errorf("no article renderer configured")
	}

	article, err := m.deps.Renderer.Render(ctx, body, session.URL)
	if err != nil {
		return err
	}

	session.mu.Lock()
	session.article = article
	session.mu.Unlock()

	m.setMode(ctx, session, models.ModeHTMLFallback, "")
	return nil
}

func (m *Manager) setMode(ctx context.Context, session *Session, mode models.ViewerMode, errMessage string) {
	session.mu.Lock()
	session.mode = mode
	if errMessage != "" {
		session.errMessage = errMessage
	}
	session.mu.Unlock()

	m.deps.Events.Publish(ctx, interfaces.Event{
		Type:      interfaces.EventViewerModeChanged,
		SessionID: session.ID,
		Payload:   mode,
	})
}

// upsertPaper registers the document in the paper registry, keyed by URL
func (m *Manager) upsertPaper(ctx context.Context, rawURL string, pageCount int) (*models.Paper, error) {
	paper, err := m.deps.Papers.GetPaperByURL(ctx, rawURL)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			return nil, err
		}
		paper = &models.Paper{
			ID:    common.NewPaperID(),
			URL:   rawURL,
			Title: titleFromURL(rawURL),
		}
	}
	paper.PageCount = pageCount

	if err := m.deps.Papers.SavePaper(ctx, paper); err != nil {
		return nil, fmt.Errorf("failed to save paper: %w", err)
	}
	return paper, nil
}

// looksLikePDF applies the content-type check with a URL-pattern heuristic
// for servers that mislabel PDF responses.
func looksLikePDF(contentType, rawURL string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "application/pdf") {
		return true
	}
	if strings.Contains(ct, "text/html") {
		return false
	}

	u := strings.ToLower(rawURL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(u, ".pdf") || strings.Contains(u, "arxiv.org/pdf/")
}

func effectiveURL(fetched *interfaces.FetchResult, fallback string) string {
	if fetched.FinalURL != "" {
		return fetched.FinalURL
	}
	return fallback
}

func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return parsed.Host
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
