package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/marginalia/internal/interfaces"
)

func TestScanTextRuns_PositionedShow(t *testing.T) {
	stream := []byte(`BT /F1 12 Tf 1 0 0 1 100 700 Tm (Hello) Tj ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 1)

	assert.Equal(t, "Hello", runs[0].Text)
	assert.Equal(t, [6]float64{12, 0, 0, 12, 100, 700}, runs[0].Transform)
}

func TestScanTextRuns_TdAdvancesLine(t *testing.T) {
	stream := []byte(`BT
/F1 10 Tf
1 0 0 1 72 720 Tm
(first) Tj
0 -14 Td
(second) Tj
ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 2)

	assert.Equal(t, 720.0, runs[0].Transform[5])
	assert.Equal(t, 706.0, runs[1].Transform[5])
	assert.Equal(t, 72.0, runs[1].Transform[4])
}

func TestScanTextRuns_TDSetsLeadingForTStar(t *testing.T) {
	stream := []byte(`BT /F1 10 Tf 1 0 0 1 72 720 Tm 0 -20 TD (a1) Tj T* (a2) Tj ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 2)

	assert.Equal(t, 700.0, runs[0].Transform[5])
	assert.Equal(t, 680.0, runs[1].Transform[5])
}

func TestScanTextRuns_QuoteOperatorShowsOnNextLine(t *testing.T) {
	stream := []byte(`BT /F1 10 Tf 14 TL 1 0 0 1 72 720 Tm (a) Tj (b) ' ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 2)

	assert.Equal(t, "b", runs[1].Text)
	assert.Equal(t, 706.0, runs[1].Transform[5])
}

func TestScanTextRuns_TJArrayJoinsStrings(t *testing.T) {
	stream := []byte(`BT /F1 9 Tf 1 0 0 1 50 600 Tm [(Hel) -20 (lo)] TJ ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 1)

	assert.Equal(t, "Hello", runs[0].Text)
	assert.Equal(t, 9.0, runs[0].Transform[0])
}

func TestScanTextRuns_HexString(t *testing.T) {
	stream := []byte(`BT /F1 11 Tf 1 0 0 1 50 600 Tm <48656C6C6F> Tj ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 1)
	assert.Equal(t, "Hello", runs[0].Text)
}

func TestScanTextRuns_EscapedLiterals(t *testing.T) {
	stream := []byte(`BT /F1 11 Tf 1 0 0 1 50 600 Tm (a\(b\)c \\ d) Tj ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 1)
	assert.Equal(t, `a(b)c \ d`, runs[0].Text)
}

func TestScanTextRuns_NegativeScalePreserved(t *testing.T) {
	// Downstream extraction takes abs(); the scanner reports the raw matrix
	stream := []byte(`BT /F1 1 Tf -12 0 0 12 100 700 Tm (flip) Tj ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 1)
	assert.Equal(t, -12.0, runs[0].Transform[0])
	assert.Equal(t, 12.0, runs[0].Transform[3])
}

func TestScanTextRuns_SkipsBlankShows(t *testing.T) {
	stream := []byte(`BT /F1 12 Tf 1 0 0 1 10 10 Tm (   ) Tj () Tj (x) Tj ET`)

	runs := scanTextRuns(stream)
	require.Len(t, runs, 1)
	assert.Equal(t, "x", runs[0].Text)
}

func TestScanTextRuns_GarbageStream(t *testing.T) {
	assert.Empty(t, scanTextRuns([]byte(`q 0.5 0 0 0.5 0 0 cm /Im1 Do Q % drawing only`)))
	assert.Empty(t, scanTextRuns([]byte(`((((`)))
	assert.Empty(t, scanTextRuns(nil))
}

func TestDocumentSource_PageContent(t *testing.T) {
	src := &documentSource{
		contents: map[int][]byte{
			0: []byte(`BT /F1 12 Tf 1 0 0 1 72 700 Tm (Hello) Tj ET`),
		},
		viewports: []interfaces.PageViewport{
			{Width: 612, Height: 792},
			{Width: 595, Height: 842},
		},
	}

	assert.Equal(t, 2, src.NumPages())

	content, err := src.PageContent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 612.0, content.Viewport.Width)
	require.Len(t, content.Runs, 1)
	assert.Equal(t, "Hello", content.Runs[0].Text)

	// A page without a recovered stream is empty, not an error
	content, err = src.PageContent(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, content.Runs)
	assert.Equal(t, 842.0, content.Viewport.Height)

	_, err = src.PageContent(context.Background(), 2)
	assert.Error(t, err)
	_, err = src.PageContent(context.Background(), -1)
	assert.Error(t, err)
}

func TestDocumentSource_ContextCancellation(t *testing.T) {
	src := &documentSource{viewports: []interfaces.PageViewport{{Width: 612, Height: 792}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.PageContent(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
