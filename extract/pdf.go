package extract

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// pdfText extracts plain text from a PDF, one page at a time, joining
// pages with form feeds so section splitting can recover page numbers.
// Pages that fail to decode are skipped rather than failing the whole
// document; scanned or image-only pages simply contribute no text.
func pdfText(data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			if i > 1 {
				buf.WriteString("\f")
			}
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}

	return normalizeText(buf.String()), nil
}
