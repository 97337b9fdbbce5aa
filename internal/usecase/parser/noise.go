package parser

import "regexp"

var (
	cssDeclarationRe = regexp.MustCompile(`(?i)font-family:|font-size:|color:#[0-9a-f]{3,6}|background:|margin:|padding:`)
	markupArtifactRe = regexp.MustCompile(`(?i)<[a-z]+|&nbsp;|&amp;|style=|class=`)
)

// IsGarbage reports whether a candidate text fragment is presentation
// markup or styling leakage rather than authored human content. Forwarded
// emails frequently embed raw style text verbatim in the extracted body,
// and a garbage note is worse than no note at all.
func IsGarbage(text string) bool {
	if text == "" {
		return true
	}

	if cssDeclarationRe.MatchString(text) {
		return true
	}

	if markupArtifactRe.MatchString(text) {
		return true
	}

	// Mostly-punctuation fragments: fewer than 30% alphanumeric characters
	runes := []rune(text)
	alphanumeric := 0
	for _, r := range runes {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			alphanumeric++
		}
	}
	return float64(alphanumeric) < float64(len(runes))*0.3
}
