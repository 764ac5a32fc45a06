// -----------------------------------------------------------------------
// HTML View Renderer - Readable article extraction for the HTML fallback
// -----------------------------------------------------------------------

package htmlview

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

// mainContentSelector picks the most article-like region of the page;
// first match wins, body is the catch-all.
const mainContentSelector = "main, article, .content, .main-content, #content, #main, body"

// Renderer converts fetched HTML into a readable markdown article when a
// document cannot be displayed as a PDF.
type Renderer struct {
	logger arbor.ILogger
}

var _ interfaces.ArticleRenderer = (*Renderer)(nil)

// NewRenderer creates an article renderer
func NewRenderer(logger arbor.ILogger) *Renderer {
	return &Renderer{logger: logger}
}

// Render extracts the main content of an HTML page and converts it to
// markdown. An unparseable or content-free page is an error; the viewer then
// degrades to an external link.
func (r *Renderer) Render(ctx context.Context, html []byte, sourceURL string) (*interfaces.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(html)) == 0 {
		return nil, fmt.Errorf("empty HTML document")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := extractTitle(doc)

	// Chrome elements only add noise to the reading view
	doc.Find("script, style, nav, footer, aside, header, iframe").Remove()

	content := doc.Find(mainContentSelector).First()
	if content.Length() == 0 {
		content = doc.Selection
	}

	contentHTML, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize content: %w", err)
	}

	converter := md.NewConverter(sourceURL, true, nil)
	markdown, err := converter.ConvertString(contentHTML)
	if err != nil {
		return nil, fmt.Errorf("markdown conversion failed: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("no readable content found")
	}

	r.logger.Debug().
		Str("source_url", sourceURL).
		Str("title", title).
		Int("markdown_length", len(markdown)).
		Msg("Article rendered")

	return &interfaces.Article{
		Title:    title,
		Markdown: markdown,
	}, nil
}

// extractTitle tries the usual title sources in order of reliability
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		if title := strings.TrimSpace(ogTitle); title != "" {
			return title
		}
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return "Untitled"
}
