package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/marginalia/internal/models"
)

// BuildReport renders a paper's annotations as a markdown notes report,
// grouped by page in reading order. The report is what the PDF exporter
// typesets; it is also served directly for markdown export.
func BuildReport(paper *models.Paper, annotationList []*models.Annotation, now time.Time) string {
	var b strings.Builder

	title := paper.Title
	if title == "" {
		title = paper.URL
	}

	fmt.Fprintf(&b, "# Notes: %s\n\n", title)
	fmt.Fprintf(&b, "Source: %s\n\n", paper.URL)
	fmt.Fprintf(&b, "Exported %s. %d annotation(s).\n", now.Format("2 January 2006"), len(annotationList))

	sorted := make([]*models.Annotation, len(annotationList))
	copy(sorted, annotationList)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PageNumber != sorted[j].PageNumber {
			return sorted[i].PageNumber < sorted[j].PageNumber
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	lastPage := -1
	for _, annotation := range sorted {
		if annotation.PageNumber != lastPage {
			fmt.Fprintf(&b, "\n## Page %d\n", annotation.PageNumber)
			lastPage = annotation.PageNumber
		}

		b.WriteString("\n")
		if text := strings.TrimSpace(annotation.Text); text != "" {
			fmt.Fprintf(&b, "> %s\n\n", text)
		}

		fmt.Fprintf(&b, "- Type: %s\n", annotation.Type)
		if annotation.Label != "" {
			fmt.Fprintf(&b, "- Label: %s\n", annotation.Label)
		}
		if note := strings.TrimSpace(annotation.Note); note != "" {
			fmt.Fprintf(&b, "- Note: %s\n", note)
		}
	}

	return b.String()
}
