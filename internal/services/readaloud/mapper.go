package readaloud

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marginalia/internal/common"
	"github.com/ternarybob/marginalia/internal/models"
)

// tokenCutset is the punctuation stripped from both ends of spoken tokens
// and run words before comparison.
const tokenCutset = ".,!?;:'\""

// Mapper locates the text run matching the word currently being spoken and
// converts it into a percentage-based highlight rectangle for overlay
// rendering. It returns at most one match per word to avoid flooding the
// overlay with false positives.
type Mapper struct {
	config common.ReaderConfig
	logger arbor.ILogger
}

// NewMapper creates a mapper with the given heuristic configuration
func NewMapper(config common.ReaderConfig, logger arbor.ILogger) *Mapper {
	return &Mapper{
		config: config,
		logger: logger,
	}
}

// MapWords maps the word(s) reported by a speech word-boundary event onto a
// highlight area. currentPage is the 0-based page the user is looking at:
// a match there always wins over a match anywhere else, even an exact one,
// so read-aloud never highlights off-screen content. Returns false when no
// run matches; that is a normal outcome, not an error.
func (m *Mapper) MapWords(words []string, currentPage int, textMap *models.PageTextMap) (models.HighlightArea, bool) {
	if len(words) == 0 || textMap == nil {
		return models.HighlightArea{}, false
	}

	token := normalizeToken(words[0])
	if utf8.RuneCountInString(token) < m.config.MinTokenLen {
		return models.HighlightArea{}, false
	}

	// Current page first; other pages only when it has no match
	if area, ok := m.matchOnPage(token, currentPage, textMap); ok {
		return area, true
	}

	for _, pageIndex := range sortedPageIndexes(textMap) {
		if pageIndex == currentPage {
			continue
		}
		if area, ok := m.matchOnPage(token, pageIndex, textMap); ok {
			return area, true
		}
	}

	return models.HighlightArea{}, false
}

// matchOnPage scans one page's runs in reading order and returns the first
// matching word's highlight area.
func (m *Mapper) matchOnPage(token string, pageIndex int, textMap *models.PageTextMap) (models.HighlightArea, bool) {
	for _, run := range textMap.RunsForPage(pageIndex) {
		word, offset, ok := m.matchInRun(token, run.Text)
		if !ok {
			continue
		}
		return m.wordArea(run, word, offset), true
	}
	return models.HighlightArea{}, false
}

// matchInRun finds the first word in the run text matching the spoken token.
// Exact matches are always accepted; tokens longer than the configured prefix
// threshold may also prefix-match, which compensates for hyphenation and
// truncation artifacts from extraction. Returns the matched run word and its
// character offset within the run text.
func (m *Mapper) matchInRun(token, runText string) (string, int, bool) {
	allowPrefix := utf8.RuneCountInString(token) > m.config.PrefixMatchMinLen

	offset := 0
	for _, word := range strings.Fields(runText) {
		idx := strings.Index(runText[offset:], word)
		if idx < 0 {
			break
		}
		wordOffset := offset + idx
		offset = wordOffset + len(word)

		candidate := normalizeToken(word)
		if candidate == token {
			return word, wordOffset, true
		}
		if allowPrefix && strings.HasPrefix(candidate, token) {
			return word, wordOffset, true
		}
	}
	return "", 0, false
}

// wordArea computes the percentage box for one matched word inside a run.
// Single-word runs use the whole run box; multi-word runs estimate the
// word's horizontal sub-span proportionally to its character position and
// length within the run text.
func (m *Mapper) wordArea(run models.TextRun, word string, charOffset int) models.HighlightArea {
	left := run.X
	width := run.Width

	if len(strings.Fields(run.Text)) > 1 && len(run.Text) > 0 {
		left = run.X + run.Width*float64(charOffset)/float64(len(run.Text))
		width = run.Width * float64(len(word)) / float64(len(run.Text))
	}

	// Baseline to visual top, with approximate ascender compensation
	textTop := run.Y + run.FontSize*m.config.AscenderFactor

	area := models.HighlightArea{
		PageIndex: run.PageIndex,
		Left:      left / run.PageWidth * 100,
		Top:       (run.PageHeight - textTop) / run.PageHeight * 100,
		Width:     width / run.PageWidth * 100,
		Height:    run.Height / run.PageHeight * 100,
	}
	return area.Clamp()
}

// normalizeToken lowercases a word and strips leading/trailing punctuation
func normalizeToken(word string) string {
	return strings.Trim(strings.ToLower(word), tokenCutset)
}

// sortedPageIndexes returns the map's page indexes in ascending order so
// cross-page fallback scanning is deterministic.
func sortedPageIndexes(textMap *models.PageTextMap) []int {
	indexes := make([]int, 0, len(textMap.Pages))
	for pageIndex := range textMap.Pages {
		indexes = append(indexes, pageIndex)
	}
	sort.Ints(indexes)
	return indexes
}
