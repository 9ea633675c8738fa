package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fabfab/policy-qa/doc"
)

const (
	// DefaultMaxContextChars bounds the assembled context block;
	// DefaultMaxPromptChars is the secondary cap applied to the
	// composed prompt at the LLM-facing boundary.
	DefaultMaxContextChars = 40000
	DefaultMaxPromptChars  = 50000

	// generalContextSections caps the breadth-first fallback used when
	// no section matches the query lexically.
	generalContextSections = 5
)

// ErrEmptyCorpus signals that there are no sections at all, so the
// caller can short-circuit to a no-documents answer without calling
// the generative model.
var ErrEmptyCorpus = errors.New("corpus contains no sections")

// buildContext renders the bounded context block from the ranked
// sections, best first, stopping at the first section that would push
// the block past maxChars. When nothing ranked, it falls back to a
// general context: the first section of up to five distinct documents
// in extraction order. It also returns the citation lookup built from
// every selected section and the selection itself (used by the
// degraded answer path).
func buildContext(ranked, corpus []doc.Section, maxChars int) (string, map[string]DocumentRef, []doc.Section, error) {
	if len(corpus) == 0 {
		return "", nil, nil, ErrEmptyCorpus
	}

	selected := ranked
	if len(selected) == 0 {
		selected = generalSections(corpus, generalContextSections)
	}

	var b strings.Builder
	for _, section := range selected {
		block := formatSection(section)
		if b.Len()+len(block) >= maxChars {
			break
		}
		b.WriteString(block)
	}

	return b.String(), buildDocumentInfo(selected), selected, nil
}

func formatSection(s doc.Section) string {
	return fmt.Sprintf("[Source: %s] [Page: %d] %s\n%s\n\n", s.FileName, s.StartPage(), s.Title, s.Content)
}

// generalSections picks the first section of each distinct document,
// in extraction order, up to limit. It provides breadth when no
// specific lexical match exists.
func generalSections(corpus []doc.Section, limit int) []doc.Section {
	seen := make(map[string]struct{})
	picked := make([]doc.Section, 0, limit)
	for _, section := range corpus {
		if _, ok := seen[section.DocumentID]; ok {
			continue
		}
		seen[section.DocumentID] = struct{}{}
		picked = append(picked, section)
		if len(picked) == limit {
			break
		}
	}
	return picked
}

// buildDocumentInfo maps normalized reference keys ("article 5",
// "section 3.2") to the provenance of the section that carries them.
// The first section to claim a key wins.
func buildDocumentInfo(sections []doc.Section) map[string]DocumentRef {
	info := make(map[string]DocumentRef)
	add := func(key string, s doc.Section) {
		key = strings.ToLower(strings.TrimSpace(key))
		if _, exists := info[key]; exists {
			return
		}
		info[key] = DocumentRef{
			DocumentID: s.DocumentID,
			FileName:   s.FileName,
			Position:   s.Position,
		}
	}

	for _, s := range sections {
		if s.ArticleNumber != "" {
			add("article "+s.ArticleNumber, s)
		}
		if s.SectionID != "" {
			add("section "+s.SectionID, s)
		}
	}
	return info
}

// truncateAtParagraph cuts text to at most limit characters at the
// last whole-paragraph boundary before the limit, falling back to a
// line boundary and then a hard cut.
func truncateAtParagraph(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, "\n\n"); idx > 0 {
		return cut[:idx]
	}
	if idx := strings.LastIndex(cut, "\n"); idx > 0 {
		return cut[:idx]
	}
	return cut
}

func systemPrompt(hasContext bool) string {
	var b strings.Builder
	b.WriteString("You are a policy assistant answering questions about institutional policy documents.\n")
	b.WriteString("When you reference a specific policy provision, cite it inline using the exact form [Article <number>: <title>], [Section <number>: <title>] or [Policy <number>: <title>], matching the numbering used in the context.\n")
	if hasContext {
		b.WriteString("Answer only from the given context. If the context does not contain the answer, say so plainly instead of guessing.")
	} else {
		b.WriteString("No context is available for this question. Do not invent policy content or citations; state that you cannot answer from the available documents.")
	}
	return b.String()
}

func userPrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(question)
	if contextText != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(contextText)
	}
	return b.String()
}
