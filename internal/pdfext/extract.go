// Package pdfext pulls plain text out of PDF documents for the generation
// step. It is a thin boundary wrapper: pages that yield nothing are skipped,
// never an error.
package pdfext

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads path and concatenates the plain text of every page,
// one page per line. A page that cannot be decoded contributes nothing.
// Only an unopenable document is an error.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdfext: open %s: %w", path, err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}
