package xmlbuilder

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes characters and drops combining marks, so
// "Ñandú" becomes "Nandu". The authority's schema validator rejects
// raw accented bytes in some encodings, so escaping alone is not
// enough.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize prepares free text for embedding in the canonical XML:
// accents are normalized to ASCII and control characters removed.
// The five XML metacharacters are escaped by the serializer.
func Sanitize(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, out)
}
