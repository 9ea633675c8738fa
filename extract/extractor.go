// Package extract turns raw policy documents into ordered, typed
// sections: article and section boundaries with page numbers and
// character offsets. PDF text extraction is page-aware; plain text
// and markdown documents are treated as single-page input.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fabfab/policy-qa/doc"
)

// Error reports a failed extraction for one document. Callers skip the
// document and keep going; extraction failures never abort a query.
type Error struct {
	FileName string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.FileName, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Sections extracts the ordered section list from a stored document,
// dispatching on file extension. Unknown extensions are read as plain
// text.
func Sections(document doc.Document) ([]doc.Section, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(document.FileName)) {
	case ".pdf":
		text, err = pdfText(document.Data)
	default:
		text = normalizeText(string(document.Data))
	}
	if err != nil {
		return nil, &Error{FileName: document.FileName, Err: err}
	}

	sections := SplitSections(text, document.ID, document.FileName)
	if len(sections) == 0 {
		return nil, &Error{FileName: document.FileName, Err: fmt.Errorf("no extractable text")}
	}
	return sections, nil
}

func normalizeText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
