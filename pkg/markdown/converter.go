package markdown

import (
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	paragraphPattern = regexp.MustCompile(`(?s)<p>(.*?)</p>`)
	codeBlockPattern = regexp.MustCompile(`(?s)<pre><code(?: class="[^"]*")?>(.*?)</code></pre>`)
	headingPattern   = regexp.MustCompile(`(?s)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	tagPattern       = regexp.MustCompile(`</?([a-zA-Z0-9]+)(?:\s[^>]*)?/?>`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// telegramTags are the only tags Telegram's HTML parse mode accepts
var telegramTags = map[string]bool{
	"b": true, "i": true, "u": true, "s": true,
	"code": true, "pre": true, "a": true,
}

// ToTelegramHTML converts markdown to Telegram-compatible HTML
func ToTelegramHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	out := string(blackfriday.Run([]byte(markdown), blackfriday.WithExtensions(blackfriday.CommonExtensions)))
	return cleanHTMLForTelegram(out)
}

// ToSafeHTML renders markdown as an HTML fragment for serving to browsers.
// Raw HTML in the source is dropped and only safe link schemes are kept.
func ToSafeHTML(markdown string) string {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.Safelink,
	})
	return string(blackfriday.Run([]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(renderer)))
}

// Escape escapes text for Telegram HTML parse mode
func Escape(text string) string {
	return html.EscapeString(text)
}

// cleanHTMLForTelegram cleans HTML to be compatible with Telegram
func cleanHTMLForTelegram(out string) string {
	out = paragraphPattern.ReplaceAllString(out, "$1\n")
	out = headingPattern.ReplaceAllString(out, "<b>$1</b>\n")

	out = strings.ReplaceAll(out, "<strong>", "<b>")
	out = strings.ReplaceAll(out, "</strong>", "</b>")
	out = strings.ReplaceAll(out, "<em>", "<i>")
	out = strings.ReplaceAll(out, "</em>", "</i>")
	out = strings.ReplaceAll(out, "<del>", "<s>")
	out = strings.ReplaceAll(out, "</del>", "</s>")

	out = codeBlockPattern.ReplaceAllString(out, "<pre>$1</pre>")

	out = strings.ReplaceAll(out, "<li>", "• ")
	out = strings.ReplaceAll(out, "</li>", "\n")
	out = strings.ReplaceAll(out, "<br>", "\n")
	out = strings.ReplaceAll(out, "<br />", "\n")

	out = tagPattern.ReplaceAllStringFunc(out, func(match string) string {
		if m := tagPattern.FindStringSubmatch(match); len(m) > 1 && telegramTags[m[1]] {
			return match
		}
		return ""
	})

	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
