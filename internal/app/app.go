package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/handlers"
	"github.com/ternarybob/marginalia/internal/httpclient"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/services/annotations"
	"github.com/ternarybob/marginalia/internal/services/events"
	"github.com/ternarybob/marginalia/internal/services/export"
	"github.com/ternarybob/marginalia/internal/services/htmlview"
	"github.com/ternarybob/marginalia/internal/services/pdf"
	"github.com/ternarybob/marginalia/internal/services/readaloud"
	"github.com/ternarybob/marginalia/internal/services/textmap"
	"github.com/ternarybob/marginalia/internal/services/viewer"
	"github.com/ternarybob/marginalia/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Engine services
	EventService      interfaces.EventService
	AnnotationService *annotations.Service
	TextMapExtractor  *textmap.Extractor
	BoundaryMapper    *readaloud.Mapper
	PDFService        *pdf.Service
	ArticleRenderer   *htmlview.Renderer
	Fetcher           *httpclient.Fetcher
	ViewerManager     *viewer.Manager
	ExportService     *export.Service

	// HTTP handlers
	APIHandler        *handlers.APIHandler
	PaperHandler      *handlers.PaperHandler
	AnnotationHandler *handlers.AnnotationHandler
	ProxyHandler      *handlers.ProxyHandler
	ExtractHandler    *handlers.ExtractHandler
	ViewerHandler     *handlers.ViewerHandler
	WSHandler         *handlers.WebSocketHandler

	maintenance *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if cfg.Maintenance.Enabled {
		if err := app.startMaintenance(); err != nil {
			return nil, fmt.Errorf("failed to start maintenance: %w", err)
		}
	}

	logger.Info().
		Str("storage", cfg.Storage.Badger.Path).
		Bool("maintenance", cfg.Maintenance.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)

	a.AnnotationService = annotations.NewService(
		a.StorageManager.AnnotationStorage(),
		a.EventService,
		a.Logger,
	)

	a.TextMapExtractor = textmap.NewExtractor(a.Config.Reader, a.Logger)
	a.BoundaryMapper = readaloud.NewMapper(a.Config.Reader, a.Logger)

	a.PDFService = pdf.NewService(a.Logger)
	a.ArticleRenderer = htmlview.NewRenderer(a.Logger)

	a.Fetcher = httpclient.NewFetcher(
		a.Config.Proxy,
		a.StorageManager.KeyValueStorage(),
		a.Logger,
	)

	a.ExportService = export.NewService(a.Logger)

	speechConfig := a.Config.Speech
	a.ViewerManager = viewer.NewManager(viewer.Deps{
		Fetcher:     a.Fetcher,
		Opener:      a.PDFService,
		Extractor:   a.TextMapExtractor,
		TextFall:    a.PDFService,
		Renderer:    a.ArticleRenderer,
		NewSynth: func() interfaces.SpeechSynthesizer {
			return readaloud.NewPacedSynthesizer(speechConfig, a.Logger)
		},
		Papers:      a.StorageManager.PaperStorage(),
		Annotations: a.AnnotationService,
		Events:      a.EventService,
		Mapper:      a.BoundaryMapper,
		Logger:      a.Logger,
	})

	a.Logger.Debug().Msg("Viewer manager initialized")
	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.StorageManager, a.ViewerManager, a.Logger)
	a.PaperHandler = handlers.NewPaperHandler(
		a.StorageManager.PaperStorage(),
		a.AnnotationService,
		a.ExportService,
		a.Logger,
	)
	a.AnnotationHandler = handlers.NewAnnotationHandler(a.AnnotationService, a.Logger)
	a.ProxyHandler = handlers.NewProxyHandler(a.Fetcher, a.Logger)
	a.ExtractHandler = handlers.NewExtractHandler(a.Fetcher, a.PDFService, a.Logger)
	a.ViewerHandler = handlers.NewViewerHandler(a.ViewerManager, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// startMaintenance schedules the recurring housekeeping jobs: Badger value-log
// GC, proxy cache expiry, and stale viewer session cleanup.
func (a *App) startMaintenance() error {
	c := cron.New()

	_, err := c.AddFunc(a.Config.Maintenance.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if err := a.StorageManager.RunGC(); err != nil {
			a.Logger.Warn().Err(err).Msg("Badger GC pass failed")
		}

		cutoff := time.Now().Add(-a.Config.Proxy.CacheTTL)
		removed, err := a.StorageManager.KeyValueStorage().DeleteOlderThan(ctx, cutoff)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Cache expiry sweep failed")
		} else if removed > 0 {
			a.Logger.Debug().Int("removed", removed).Msg("Expired cache entries removed")
		}

		swept := a.ViewerManager.SweepStale(ctx, a.Config.Maintenance.SessionMaxIdle)
		if swept > 0 {
			a.Logger.Debug().Int("swept", swept).Msg("Stale viewer sessions closed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", a.Config.Maintenance.Schedule, err)
	}

	c.Start()
	a.maintenance = c
	a.Logger.Debug().Str("schedule", a.Config.Maintenance.Schedule).Msg("Maintenance jobs scheduled")
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.maintenance != nil {
		stopCtx := a.maintenance.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(10 * time.Second):
			a.Logger.Warn().Msg("Timed out waiting for maintenance jobs to finish")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
