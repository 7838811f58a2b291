package canonical

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Typographic characters that different capture pipelines substitute for
// plain ASCII. Mapped back so the same conversation hashes identically.
var typographicReplacer = strings.NewReplacer(
	"“", `"`, // left double quote
	"”", `"`, // right double quote
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"–", "-", // en dash
	"—", "-", // em dash
	"«", `"`, // left guillemet
	"»", `"`, // right guillemet
)

var (
	controlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
	// \p{Z} picks up NBSP and other Unicode spaces that ASCII \s misses.
	whitespace = regexp.MustCompile(`[\s\p{Z}\x{85}]+`)
)

// NormalizeText rewrites free-form transcript text into a single stable form
// before hashing. Two captures of the same conversation must hash identically
// even when they passed through pipelines with different Unicode, line-ending,
// or whitespace conventions.
//
// Steps, in order: Unicode NFC, CRLF/CR to LF, strip C0 control characters
// (except LF), replace typographic quotes and dashes with ASCII, collapse
// whitespace runs within each line, trim.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = controlChars.ReplaceAllString(s, "")
	s = typographicReplacer.Replace(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
