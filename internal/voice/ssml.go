package voice

import "strings"

var ssmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
)

// Sanitize makes text safe to embed in SSML. C0 and C1 control characters
// are dropped and XML special characters are entity-escaped.
func Sanitize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, text)
	return ssmlEscaper.Replace(cleaned)
}
