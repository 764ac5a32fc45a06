// -----------------------------------------------------------------------
// Export Service - Annotation notes report as markdown and PDF
// -----------------------------------------------------------------------

package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Service turns a paper's annotations into a downloadable notes document
type Service struct {
	logger arbor.ILogger
}

// NewService creates an export service
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// ExportMarkdown returns the notes report as markdown
func (s *Service) ExportMarkdown(ctx context.Context, paper *models.Paper, annotationList []*models.Annotation) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return BuildReport(paper, annotationList, time.Now()), nil
}

// ExportPDF typesets the notes report as a PDF document
func (s *Service) ExportPDF(ctx context.Context, paper *models.Paper, annotationList []*models.Annotation) ([]byte, error) {
	markdown, err := s.ExportMarkdown(ctx, paper, annotationList)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 10)

	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	renderer := &reportRenderer{
		pdf:    pdf,
		source: source,
		size:   10,
	}
	if err := renderer.render(doc); err != nil {
		return nil, fmt.Errorf("failed to typeset report: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().
		Str("paper_id", paper.ID).
		Int("annotations", len(annotationList)).
		Int("pdf_size", buf.Len()).
		Msg("Notes report exported")

	return buf.Bytes(), nil
}

// reportRenderer walks the goldmark AST and writes it with fpdf. The report
// only uses headings, paragraphs, blockquotes, lists and emphasis, so that is
// all it handles.
type reportRenderer struct {
	pdf    *fpdf.Fpdf
	source []byte
	size   float64
	bold   bool
	italic bool
	quoted bool
}

func (r *reportRenderer) render(node ast.Node) error {
	return ast.Walk(node, r.walk)
}

func (r *reportRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(6)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindBlockquote:
		r.handleBlockquote(entering)
	case ast.KindList:
		if !entering {
			r.pdf.Ln(2)
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(20)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(3)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(3)
		}
	}
	return ast.WalkContinue, nil
}

func (r *reportRenderer) handleHeading(n *ast.Heading, entering bool) {
	if entering {
		r.pdf.Ln(6)
		size := 14.0
		if n.Level >= 2 {
			size = 12
		}
		r.pdf.SetFont("Arial", "B", size)
		return
	}
	r.pdf.Ln(7)
	r.updateFont()
}

func (r *reportRenderer) handleBlockquote(entering bool) {
	r.quoted = entering
	if entering {
		r.pdf.Ln(2)
		r.pdf.SetX(20)
		r.pdf.SetTextColor(90, 90, 90)
		r.italic = true
	} else {
		r.pdf.SetTextColor(0, 0, 0)
		r.italic = false
	}
	r.updateFont()
}

func (r *reportRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, r.size)
}
