package crawl

import "regexp"

// cleanHTML and toMarkdown are intentionally minimal stdlib-only
// transforms: DESIGN.md records why no pack library covers this (the
// crawler engine's own markdown rendering is the spec's actual interface,
// §6.2; this is the fallback used only by RodEngine, which must produce
// something to render before an artifact reaches ContentPreparer).

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`[ \t]+`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
)

// cleanHTML strips script/style blocks but keeps the remaining markup,
// approximating the crawler engine's "cleaned_html" field.
func cleanHTML(html string) string {
	return scriptStyleRe.ReplaceAllString(html, "")
}

// toMarkdown renders a crude plain-text approximation of the page body by
// dropping tags entirely and collapsing whitespace. It is not a full HTML-
// to-Markdown converter; it exists only so RodEngine always has text to
// hand ContentPreparer.
func toMarkdown(html string) string {
	noScripts := scriptStyleRe.ReplaceAllString(html, "")
	text := tagRe.ReplaceAllString(noScripts, "\n")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return text
}
