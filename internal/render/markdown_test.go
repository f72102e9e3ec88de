package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLRendersStepsAndCode(t *testing.T) {
	out, err := NewMarkdown().HTML("1. Log into FTP\n2. Rename `plugins`\n\n```php\ndefine('WP_DEBUG', true);\n```")
	require.NoError(t, err)

	assert.Contains(t, out, "<ol>")
	assert.Contains(t, out, "<code>plugins</code>")
	assert.Contains(t, out, `<pre><code class="language-php">`)
}

func TestHTMLHardWraps(t *testing.T) {
	out, err := NewMarkdown().HTML("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, out, "line one<br>")
}

func TestHTMLOmitsRawHTML(t *testing.T) {
	out, err := NewMarkdown().HTML("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestHTMLAutolinksURLs(t *testing.T) {
	out, err := NewMarkdown().HTML("See https://wordpress.org/support/")
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://wordpress.org/support/">`)
}
