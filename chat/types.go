package chat

import "github.com/fabfab/policy-qa/doc"

// DocumentRef is the provenance a citation resolves to: which stored
// document a cited article or section came from, and where in it.
type DocumentRef struct {
	DocumentID string        `json:"documentId,omitempty"`
	FileName   string        `json:"fileName,omitempty"`
	Position   *doc.Position `json:"position,omitempty"`
}

// Citation is one resolved citation marker from a generated answer.
// IDs are unique within an answer and match the inline link targets
// rewritten into the text.
type Citation struct {
	ID         string        `json:"id"`
	Reference  string        `json:"reference"`
	DocumentID string        `json:"documentId,omitempty"`
	FileName   string        `json:"fileName,omitempty"`
	Position   *doc.Position `json:"position,omitempty"`
}

// Source describes a section that contributed context to an answer.
type Source struct {
	Title         string `json:"title"`
	FileName      string `json:"fileName,omitempty"`
	Page          int    `json:"page,omitempty"`
	ArticleNumber string `json:"articleNumber,omitempty"`
	SectionID     string `json:"sectionId,omitempty"`
}

// Response is the answer produced for one question. It is always a
// best-effort answer; pipeline failures degrade the answer text rather
// than surfacing as errors.
type Response struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	Sources   []Source   `json:"sources,omitempty"`
}

func sourcesFrom(sections []doc.Section) []Source {
	if len(sections) == 0 {
		return nil
	}
	sources := make([]Source, 0, len(sections))
	for _, s := range sections {
		sources = append(sources, Source{
			Title:         s.Title,
			FileName:      s.FileName,
			Page:          s.StartPage(),
			ArticleNumber: s.ArticleNumber,
			SectionID:     s.SectionID,
		})
	}
	return sources
}
