package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTelegramHTML(t *testing.T) {
	got := ToTelegramHTML("**Photosynthesis** is *vital*.\n\n- light\n- water")
	assert.Contains(t, got, "<b>Photosynthesis</b>")
	assert.Contains(t, got, "<i>vital</i>")
	assert.Contains(t, got, "• light")
	assert.NotContains(t, got, "<p>")
	assert.NotContains(t, got, "<ul>")
}

func TestToTelegramHTMLCodeAndHeadings(t *testing.T) {
	got := ToTelegramHTML("# Title\n\n```\nx := 1\n```")
	assert.Contains(t, got, "<b>Title</b>")
	assert.Contains(t, got, "<pre>x := 1\n</pre>")
	assert.NotContains(t, got, "<h1>")
}

func TestToTelegramHTMLEmpty(t *testing.T) {
	assert.Equal(t, "", ToTelegramHTML(""))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "ax² &lt; b &amp; c", Escape("ax² < b & c"))
}

func TestToSafeHTML(t *testing.T) {
	assert.Contains(t, ToSafeHTML("# Export"), "<h1>Export</h1>")
}

func TestToSafeHTMLDropsRawHTML(t *testing.T) {
	got := ToSafeHTML("hello\n\n<script>alert(document.cookie)</script>\n\n" +
		"inline <img src=x onerror=alert(1)> and [link](javascript:alert(1))")
	assert.NotContains(t, got, "<script")
	assert.NotContains(t, got, "<img")
	assert.NotContains(t, got, `href="javascript:`)
	assert.Contains(t, got, "hello")
}
