package textmap

import (
	"math"
	"sort"

	"github.com/ternarybob/marginalia/internal/models"
)

// Reconstructor normalizes raw extraction order into visual reading order.
// The renderer reports runs in content-stream order, which is not guaranteed
// to match how a human reads the page.
type Reconstructor struct {
	// lineTolerance is the y-distance (page units) within which two runs
	// belong to the same line. Tuned for typical body-text line height.
	lineTolerance float64
}

// NewReconstructor creates a reconstructor with the given line tolerance
func NewReconstructor(lineTolerance float64) *Reconstructor {
	return &Reconstructor{lineTolerance: lineTolerance}
}

// Order returns the runs sorted into reading order: top-to-bottom lines,
// left-to-right within each line. The input slice is not modified. An empty
// input yields an empty output, not an error.
func (r *Reconstructor) Order(runs []models.TextRun) []models.TextRun {
	lines := r.Lines(runs)
	if len(lines) == 0 {
		return nil
	}

	ordered := make([]models.TextRun, 0, len(runs))
	for _, line := range lines {
		ordered = append(ordered, line...)
	}
	return ordered
}

// Lines groups runs into reading-order lines: runs are sorted top-to-bottom
// by baseline, a run joins the current line while its baseline is within the
// tolerance of the previous run, and each finished line is sorted
// left-to-right.
func (r *Reconstructor) Lines(runs []models.TextRun) [][]models.TextRun {
	if len(runs) == 0 {
		return nil
	}

	sorted := make([]models.TextRun, len(runs))
	copy(sorted, runs)

	// PDF y increases upward, so descending y is top-to-bottom. The sort is
	// stable so runs sharing a baseline keep their relative input order until
	// the per-line x sort below.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines [][]models.TextRun
	start := 0
	lastY := sorted[0].Y
	for i := 1; i < len(sorted); i++ {
		if math.Abs(sorted[i].Y-lastY) >= r.lineTolerance {
			lines = append(lines, sorted[start:i])
			start = i
		}
		lastY = sorted[i].Y
	}
	lines = append(lines, sorted[start:])

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].X < line[j].X
		})
	}

	return lines
}
