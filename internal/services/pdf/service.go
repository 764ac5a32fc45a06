// -----------------------------------------------------------------------
// PDF Document Service - Positioned text access for paper rendering
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// US Letter in PDF points, used when a page carries no usable MediaBox
const (
	fallbackPageWidth  = 612.0
	fallbackPageHeight = 792.0
)

var tempSeq atomic.Int64

// Service opens PDF documents and exposes their text with positions.
// pdfcpu has no in-memory positioned-text API, so documents round-trip
// through a temp file and their raw page content streams are scanned for
// text operators afterwards.
type Service struct {
	logger  arbor.ILogger
	tempDir string
}

var (
	_ interfaces.DocumentOpener = (*Service)(nil)
	_ interfaces.TextExtractor  = (*Service)(nil)
)

// NewService creates a PDF document service
func NewService(logger arbor.ILogger) *Service {
	tempDir := filepath.Join(os.TempDir(), "marginalia-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Service{
		logger:  logger,
		tempDir: tempDir,
	}
}

// Open parses a PDF and returns a DocumentSource over its pages. The whole
// document is materialized up front; papers are small enough that holding
// every page's content stream in memory is fine.
func (s *Service) Open(ctx context.Context, pdfContent []byte) (interfaces.DocumentSource, error) {
	contents, viewports, err := s.extractPages(ctx, pdfContent)
	if err != nil {
		return nil, err
	}

	return &documentSource{
		contents:  contents,
		viewports: viewports,
	}, nil
}

// ExtractText returns the document's plain text up to maxPages pages,
// for clients that cannot recover text positions themselves. maxPages <= 0
// means all pages.
func (s *Service) ExtractText(ctx context.Context, pdfContent []byte, maxPages int) (string, error) {
	contents, _, err := s.extractPages(ctx, pdfContent)
	if err != nil {
		return "", err
	}

	pageIndexes := make([]int, 0, len(contents))
	for idx := range contents {
		pageIndexes = append(pageIndexes, idx)
	}
	sort.Ints(pageIndexes)

	var builder strings.Builder
	for _, idx := range pageIndexes {
		if maxPages > 0 && idx >= maxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		runs := scanTextRuns(contents[idx])
		if len(runs) == 0 {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		for i, run := range runs {
			if i > 0 {
				builder.WriteString(" ")
			}
			builder.WriteString(strings.TrimSpace(run.Text))
		}
	}

	return builder.String(), nil
}

// extractPages writes the PDF to a temp file, extracts per-page content
// streams with pdfcpu and reads them back keyed by zero-based page index.
func (s *Service) extractPages(ctx context.Context, pdfContent []byte) (map[int][]byte, []interfaces.PageViewport, error) {
	if len(pdfContent) == 0 {
		return nil, nil, fmt.Errorf("empty PDF content")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	seq := tempSeq.Add(1)
	tempFile := filepath.Join(s.tempDir, fmt.Sprintf("doc_%d_%d.pdf", os.Getpid(), seq))
	if err := os.WriteFile(tempFile, pdfContent, 0644); err != nil {
		return nil, nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	pageCount := pdfCtx.PageCount
	viewports := pageViewports(pdfCtx, pageCount)

	outDir := filepath.Join(s.tempDir, fmt.Sprintf("pages_%d_%d", os.Getpid(), seq))
	os.MkdirAll(outDir, 0755)
	defer os.RemoveAll(outDir)

	contents := make(map[int][]byte, pageCount)

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		// A document with unreadable content streams still opens; it just
		// has no server-recoverable text.
		s.logger.Warn().Err(err).Msg("Failed to extract PDF content streams")
		return contents, viewports, nil
	}

	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err != nil {
				continue
			}
		}
		data, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		contents[pageNum-1] = data
	}

	return contents, viewports, nil
}

// pageViewports reads per-page media box dimensions, falling back to US
// Letter when pdfcpu cannot resolve them.
func pageViewports(pdfCtx *model.Context, pageCount int) []interfaces.PageViewport {
	viewports := make([]interfaces.PageViewport, pageCount)
	for i := range viewports {
		viewports[i] = interfaces.PageViewport{
			Width:  fallbackPageWidth,
			Height: fallbackPageHeight,
		}
	}

	dims, err := pdfCtx.PageDims()
	if err != nil {
		return viewports
	}
	for i, dim := range dims {
		if i >= pageCount {
			break
		}
		if dim.Width > 0 && dim.Height > 0 {
			viewports[i] = interfaces.PageViewport{
				Width:  dim.Width,
				Height: dim.Height,
			}
		}
	}
	return viewports
}

// documentSource serves positioned runs from extracted content streams
type documentSource struct {
	contents  map[int][]byte
	viewports []interfaces.PageViewport
}

var _ interfaces.DocumentSource = (*documentSource)(nil)

func (d *documentSource) NumPages() int {
	return len(d.viewports)
}

// PageContent scans one page's content stream into positioned runs. Pages
// outside the document or without a recovered stream yield empty content,
// not an error.
func (d *documentSource) PageContent(ctx context.Context, pageIndex int) (*interfaces.PageContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= len(d.viewports) {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", pageIndex, len(d.viewports))
	}

	content := &interfaces.PageContent{
		Viewport: d.viewports[pageIndex],
	}
	if stream, ok := d.contents[pageIndex]; ok {
		content.Runs = scanTextRuns(stream)
	}
	return content, nil
}
