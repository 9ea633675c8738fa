package extract

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/fabfab/policy-qa/doc"
)

var (
	articleHeading  = regexp.MustCompile(`^(?i:ARTICLE)\s+([0-9]+[A-Za-z]?|[IVXLCivxlc]+)\s*[:.\-]?\s*(.*)$`)
	sectionHeading  = regexp.MustCompile(`^(?i:SECTION)\s+([0-9]+(?:\.[0-9]+)*[A-Za-z]?)\s*[:.\-]?\s*(.*)$`)
	numberedHeading = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)+)\s+([^\d\s].*)$`)
)

// SplitSections splits page-separated text (form feed between pages)
// into ordered sections at article and section headings. Sections
// opened by a "Section N" heading inside an article carry both the
// article number and the section id. Text before the first heading
// becomes a preamble section named after the file.
func SplitSections(text, docID, fileName string) []doc.Section {
	pages := strings.Split(text, "\f")

	var sections []doc.Section

	preambleTitle := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	current := doc.Section{
		Title:      preambleTitle,
		PageNumber: 1,
		DocumentID: docID,
		FileName:   fileName,
		Position:   &doc.Position{StartPage: 1},
	}
	var body []string
	currentArticle := ""
	inPreamble := true

	flush := func(endPage, endOffset int) {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if content == "" {
			return
		}
		current.Content = content
		current.Position.EndPage = endPage
		current.Position.EndOffset = endOffset
		sections = append(sections, current)
	}

	offset := 0
	for pi, page := range pages {
		pageNum := pi + 1
		lineStart := offset
		for _, line := range strings.Split(page, "\n") {
			trimmed := strings.TrimSpace(line)

			if m := articleHeading.FindStringSubmatch(trimmed); m != nil {
				inPreamble = false
				flush(pageNum, lineStart)
				currentArticle = m[1]
				current = doc.Section{
					Title:         headingTitle(m[2], "Article "+m[1]),
					PageNumber:    pageNum,
					ArticleNumber: m[1],
					DocumentID:    docID,
					FileName:      fileName,
					Position:      &doc.Position{StartPage: pageNum, StartOffset: lineStart},
				}
			} else if m := sectionHeading.FindStringSubmatch(trimmed); m != nil {
				inPreamble = false
				flush(pageNum, lineStart)
				current = doc.Section{
					Title:         headingTitle(m[2], "Section "+m[1]),
					PageNumber:    pageNum,
					ArticleNumber: currentArticle,
					SectionID:     m[1],
					DocumentID:    docID,
					FileName:      fileName,
					Position:      &doc.Position{StartPage: pageNum, StartOffset: lineStart},
				}
			} else if m := numberedHeading.FindStringSubmatch(trimmed); m != nil {
				inPreamble = false
				flush(pageNum, lineStart)
				current = doc.Section{
					Title:         strings.TrimSpace(m[2]),
					PageNumber:    pageNum,
					ArticleNumber: currentArticle,
					SectionID:     m[1],
					DocumentID:    docID,
					FileName:      fileName,
					Position:      &doc.Position{StartPage: pageNum, StartOffset: lineStart},
				}
			} else if isCapsHeading(trimmed) {
				inPreamble = false
				flush(pageNum, lineStart)
				currentArticle = ""
				current = doc.Section{
					Title:      trimmed,
					PageNumber: pageNum,
					DocumentID: docID,
					FileName:   fileName,
					Position:   &doc.Position{StartPage: pageNum, StartOffset: lineStart},
				}
			} else if trimmed != "" {
				// A short first line of an unstructured preamble names
				// it, the way a cover page names a handbook.
				if inPreamble && len(body) == 0 && len(trimmed) <= 60 && !strings.HasSuffix(trimmed, ".") {
					current.Title = trimmed
				} else {
					body = append(body, trimmed)
				}
				inPreamble = false
			} else if len(body) > 0 {
				body = append(body, "")
			}

			lineStart += len(line) + 1
		}
		offset += len(page) + 1
	}

	flush(len(pages), offset-1)
	return sections
}

func headingTitle(rest, fallback string) string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return fallback
	}
	return rest
}

// isCapsHeading treats short all-uppercase lines without terminal
// punctuation as section boundaries ("GENERAL PROVISIONS" and the like).
func isCapsHeading(line string) bool {
	if len(line) < 4 || len(line) > 80 {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 4
}
