package labeling

import (
	"strings"
	"unicode"
)

const (
	maxFilenameNameRunes = 30
	fallbackProductName  = "Producto"
	pdfFilenamePrefix    = "Etiquetas_"
)

// SanitizeProductName turns a product name into a filename fragment: characters other
// than letters, digits, dashes and spaces are dropped, the result is cut to 30
// characters, and each whitespace becomes an underscore.
func SanitizeProductName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}

	kept := []rune(strings.TrimSpace(b.String()))
	if len(kept) > maxFilenameNameRunes {
		kept = kept[:maxFilenameNameRunes]
	}
	for i, r := range kept {
		if unicode.IsSpace(r) {
			kept[i] = '_'
		}
	}

	out := strings.Trim(string(kept), "_")
	if out == "" {
		return fallbackProductName
	}
	return out
}

// PDFFilename is the download name for a product's label sheet
func PDFFilename(productName string) string {
	return pdfFilenamePrefix + SanitizeProductName(productName) + ".pdf"
}
