package parser

import (
	"regexp"
	"strings"
)

var (
	lineBreakTagRe = regexp.MustCompile(`(?i)<br\s*/?>`)
	paragraphEndRe = regexp.MustCompile(`(?i)</p>`)
	divEndRe       = regexp.MustCompile(`(?i)</div>`)
	anyTagRe       = regexp.MustCompile(`<[^>]+>`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	)
)

// StripHTML converts a markup body into plain text with line semantics
// preserved: line-break tags become newlines, closing block tags become
// paragraph breaks, every remaining tag is deleted and the four common
// entities are decoded. Unknown entities pass through literally. The
// conversion is lossy; it recovers plausible human text, not exact markup.
func StripHTML(html string) string {
	text := lineBreakTagRe.ReplaceAllString(html, "\n")
	text = paragraphEndRe.ReplaceAllString(text, "\n\n")
	text = divEndRe.ReplaceAllString(text, "\n")
	text = anyTagRe.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	return strings.TrimSpace(text)
}
