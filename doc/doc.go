// Package doc holds the document and section types shared by the
// extraction, retrieval and answer layers.
package doc

import "time"

// Position locates a section inside its source document.
type Position struct {
	StartPage   int `json:"startPage"`
	EndPage     int `json:"endPage,omitempty"`
	StartOffset int `json:"startOffset,omitempty"`
	EndOffset   int `json:"endOffset,omitempty"`
}

// Section is a titled, paged excerpt of a source policy document,
// optionally tagged with an article or section number. Sections are
// immutable once extracted and live for a single retrieval request.
type Section struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	PageNumber    int       `json:"pageNumber"`
	ArticleNumber string    `json:"articleNumber,omitempty"`
	SectionID     string    `json:"sectionId,omitempty"`
	Position      *Position `json:"position,omitempty"`
	DocumentID    string    `json:"documentId,omitempty"`
	FileName      string    `json:"fileName,omitempty"`
}

// StartPage returns the page the section starts on, falling back to
// PageNumber when no position was recorded.
func (s Section) StartPage() int {
	if s.Position != nil && s.Position.StartPage > 0 {
		return s.Position.StartPage
	}
	return s.PageNumber
}

// Document is an uploaded source document as stored at rest.
type Document struct {
	ID          string
	FileName    string
	ContentType string
	Data        []byte
	SHA256      string
	SizeBytes   int64
	UploadedAt  time.Time
}
