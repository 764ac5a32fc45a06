package textmap

import (
	"context"
	"math"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/interfaces"
	"github.com/ternarybob/marginalia/internal/models"
)

// Extractor walks every page of a loaded document and converts raw
// glyph/text-run records into per-page ordered lists of positioned text runs.
// Extraction is best-effort: a page the renderer cannot read is logged and
// skipped, and the remaining pages are still processed.
type Extractor struct {
	config        common.ReaderConfig
	reconstructor *Reconstructor
	logger        arbor.ILogger
}

// NewExtractor creates an extractor with the given heuristic configuration
func NewExtractor(config common.ReaderConfig, logger arbor.ILogger) *Extractor {
	return &Extractor{
		config:        config,
		reconstructor: NewReconstructor(config.LineTolerance),
		logger:        logger,
	}
}

// BuildTextMap extracts positioned runs for all pages of the document and
// returns them in reading order. A map with zero total runs is returned
// as-is, not as an error; the caller decides whether to fall back to
// server-side extraction.
//
// Pages are processed sequentially and the context is checked between pages
// so a closed viewer can abandon a long extraction.
func (e *Extractor) BuildTextMap(ctx context.Context, source interfaces.DocumentSource) (*models.PageTextMap, error) {
	textMap := models.NewPageTextMap()

	numPages := source.NumPages()
	for pageIndex := 0; pageIndex < numPages; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := source.PageContent(ctx, pageIndex)
		if err != nil {
			e.logger.Warn().
				Err(err).
				Int("page_index", pageIndex).
				Msg("Failed to read page text content, skipping page")
			continue
		}

		runs := e.extractPage(content, pageIndex)
		if len(runs) == 0 {
			continue
		}

		textMap.Pages[pageIndex] = e.reconstructor.Order(runs)
	}

	e.logger.Debug().
		Int("pages", textMap.PageCount()).
		Int("runs", textMap.TotalRuns()).
		Msg("Text map built")

	return textMap, nil
}

// extractPage converts one page's raw runs into positioned TextRuns
func (e *Extractor) extractPage(content *interfaces.PageContent, pageIndex int) []models.TextRun {
	runs := make([]models.TextRun, 0, len(content.Runs))

	for _, raw := range content.Runs {
		if strings.TrimSpace(raw.Text) == "" {
			continue
		}

		fontSize := math.Abs(raw.Transform[0])

		width := raw.Width
		if width <= 0 {
			// Rough character-count estimate, not exact glyph metrics. Only
			// has to produce visually plausible highlight rectangles.
			width = float64(len(raw.Text)) * fontSize * e.config.WidthFactor
		}
		height := raw.Height
		if height <= 0 {
			height = fontSize * e.config.HeightFactor
		}

		runs = append(runs, models.TextRun{
			Text:       raw.Text,
			X:          raw.Transform[4],
			Y:          raw.Transform[5],
			Width:      width,
			Height:     height,
			FontSize:   fontSize,
			PageIndex:  pageIndex,
			PageWidth:  content.Viewport.Width,
			PageHeight: content.Viewport.Height,
		})
	}

	return runs
}
