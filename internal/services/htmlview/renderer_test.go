package htmlview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestRenderer() *Renderer {
	return NewRenderer(arbor.NewLogger())
}

func TestRender_ExtractsArticleContent(t *testing.T) {
	html := []byte(`<html>
<head><title>Attention Is All You Need</title></head>
<body>
<nav>Home | Papers</nav>
<article>
<h2>Abstract</h2>
<p>The dominant sequence transduction models are based on recurrent networks.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`)

	article, err := newTestRenderer().Render(context.Background(), html, "https://example.org/paper")
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", article.Title)
	assert.Contains(t, article.Markdown, "## Abstract")
	assert.Contains(t, article.Markdown, "sequence transduction")
	assert.NotContains(t, article.Markdown, "Home | Papers")
	assert.NotContains(t, article.Markdown, "Copyright")
}

func TestRender_TitleFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			"og title",
			`<html><head><meta property="og:title" content="OG Title"/></head><body><p>x</p></body></html>`,
			"OG Title",
		},
		{
			"h1",
			`<html><body><h1>Heading Title</h1><p>x</p></body></html>`,
			"Heading Title",
		},
		{
			"untitled",
			`<html><body><p>just text</p></body></html>`,
			"Untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article, err := newTestRenderer().Render(context.Background(), []byte(tt.html), "https://example.org")
			require.NoError(t, err)
			assert.Equal(t, tt.want, article.Title)
		})
	}
}

func TestRender_RelativeLinksResolved(t *testing.T) {
	html := []byte(`<html><body><article><a href="/files/paper.pdf">download</a></article></body></html>`)

	article, err := newTestRenderer().Render(context.Background(), html, "https://example.org")
	require.NoError(t, err)
	assert.Contains(t, article.Markdown, "https://example.org/files/paper.pdf")
}

func TestRender_EmptyDocument(t *testing.T) {
	_, err := newTestRenderer().Render(context.Background(), nil, "https://example.org")
	assert.Error(t, err)

	_, err = newTestRenderer().Render(context.Background(), []byte("   \n"), "https://example.org")
	assert.Error(t, err)
}

func TestRender_ScriptOnlyDocument(t *testing.T) {
	html := []byte(`<html><body><script>alert(1)</script></body></html>`)

	_, err := newTestRenderer().Render(context.Background(), html, "https://example.org")
	assert.Error(t, err)
}

func TestRender_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRenderer().Render(ctx, []byte("<html></html>"), "https://example.org")
	assert.ErrorIs(t, err, context.Canceled)
}
