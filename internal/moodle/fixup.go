package moodle

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// replacer flattens typographic punctuation that LMS imports choke on and
// drops stray replacement characters left by mis-decoded sources.
var replacer = strings.NewReplacer(
	"�", "",
	"’", "'",
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
)

// FixText normalizes rendered output to NFC and applies the punctuation
// replacements. Runs on the emitted text only, after rendering.
func FixText(s string) string {
	return replacer.Replace(norm.NFC.String(s))
}
