// Package format turns reply text into HTML that is safe to inject into the
// widget's message list.
package format

import (
	"regexp"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// blankLine matches a line break, optional whitespace, and another line break.
// Whitespace includes vertical tab, every Unicode space separator and the
// byte order mark, not only the ASCII set RE2 uses for \s.
var blankLine = regexp.MustCompile(`\n[\s\v\p{Z}\x{FEFF}]*\n`)

// Escape replaces the five HTML metacharacters with their entities.
func Escape(s string) string {
	return htmlEscaper.Replace(s)
}

// HTML formats content as paragraphs. Escaping runs before any markup is
// introduced, so nothing in content can become a tag. Blank-line runs become
// paragraph boundaries and remaining line breaks become <br>. Windows line
// endings are treated as plain line breaks.
func HTML(content string) string {
	escaped := Escape(content)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	withParagraphs := blankLine.ReplaceAllString(escaped, "</p><p>")
	withBreaks := strings.ReplaceAll(withParagraphs, "\n", "<br>")
	return "<p>" + withBreaks + "</p>"
}
