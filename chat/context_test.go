package chat

import (
	"errors"
	"strings"
	"testing"

	"github.com/fabfab/policy-qa/doc"
)

func TestBuildContext_FormatsSections(t *testing.T) {
	ranked := []doc.Section{
		{
			Title:    "Attendance Policy",
			Content:  "Students must attend class.",
			FileName: "handbook.pdf",
			Position: &doc.Position{StartPage: 3},
		},
	}

	text, _, selected, err := buildContext(ranked, ranked, DefaultMaxContextChars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "[Source: handbook.pdf] [Page: 3] Attendance Policy\nStudents must attend class.\n\n"
	if text != want {
		t.Errorf("unexpected context:\n%q\nwant:\n%q", text, want)
	}
	if len(selected) != 1 {
		t.Errorf("expected 1 selected section, got %d", len(selected))
	}
}

func TestBuildContext_RespectsBudgetAndStops(t *testing.T) {
	big := doc.Section{Title: "Big", Content: strings.Repeat("x", 400), FileName: "a.pdf", PageNumber: 1}
	small := doc.Section{Title: "Small", Content: "tiny", FileName: "a.pdf", PageNumber: 2}
	ranked := []doc.Section{big, big, small}

	maxChars := 500
	text, _, _, err := buildContext(ranked, ranked, maxChars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(text) >= maxChars {
		t.Fatalf("context length %d exceeds budget %d", len(text), maxChars)
	}
	// The second big section overflows; the small one after it must
	// not be pulled forward.
	if strings.Contains(text, "tiny") {
		t.Error("expected assembly to stop at the first overflowing section")
	}
	if !strings.Contains(text, "Big") {
		t.Error("expected first section in context")
	}
}

func TestBuildContext_EmptyCorpusSignals(t *testing.T) {
	_, _, _, err := buildContext(nil, nil, DefaultMaxContextChars)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestBuildContext_GeneralFallbackOnePerDocument(t *testing.T) {
	corpus := []doc.Section{
		{Title: "A1", DocumentID: "doc-a", Content: "a first", FileName: "a.pdf"},
		{Title: "A2", DocumentID: "doc-a", Content: "a second", FileName: "a.pdf"},
		{Title: "B1", DocumentID: "doc-b", Content: "b first", FileName: "b.pdf"},
		{Title: "C1", DocumentID: "doc-c", Content: "c first", FileName: "c.pdf"},
	}

	text, _, selected, err := buildContext(nil, corpus, DefaultMaxContextChars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("expected one section per document, got %d", len(selected))
	}
	for _, title := range []string{"A1", "B1", "C1"} {
		if !strings.Contains(text, title) {
			t.Errorf("expected %s in general context", title)
		}
	}
	if strings.Contains(text, "A2") {
		t.Error("general context should only take the first section per document")
	}
}

func TestBuildContext_GeneralFallbackCap(t *testing.T) {
	var corpus []doc.Section
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		corpus = append(corpus, doc.Section{Title: id, DocumentID: id, Content: "text " + id})
	}

	_, _, selected, err := buildContext(nil, corpus, DefaultMaxContextChars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 5 {
		t.Fatalf("expected general context capped at 5 documents, got %d", len(selected))
	}
}

func TestBuildDocumentInfo_KeysAndFirstMatchWins(t *testing.T) {
	sections := []doc.Section{
		{
			ArticleNumber: "5",
			SectionID:     "5.2",
			DocumentID:    "doc-a",
			FileName:      "conduct.pdf",
			Position:      &doc.Position{StartPage: 4},
		},
		{
			ArticleNumber: "5", // duplicate key from another document
			DocumentID:    "doc-b",
			FileName:      "other.pdf",
		},
	}

	info := buildDocumentInfo(sections)
	ref, ok := info["article 5"]
	if !ok {
		t.Fatal("expected key 'article 5'")
	}
	if ref.DocumentID != "doc-a" {
		t.Errorf("first match should win, got %q", ref.DocumentID)
	}
	if _, ok := info["section 5.2"]; !ok {
		t.Error("expected key 'section 5.2'")
	}
}

func TestTruncateAtParagraph(t *testing.T) {
	text := "first paragraph.\n\nsecond paragraph.\n\nthird paragraph."

	if got := truncateAtParagraph(text, len(text)); got != text {
		t.Errorf("text within limit must be unchanged")
	}

	got := truncateAtParagraph(text, len(text)-4)
	if got != "first paragraph.\n\nsecond paragraph." {
		t.Errorf("expected cut at paragraph boundary, got %q", got)
	}

	// No paragraph boundary before the limit: fall back to a hard cut.
	if got := truncateAtParagraph("abcdefghij", 4); got != "abcd" {
		t.Errorf("expected hard cut, got %q", got)
	}
}

func TestSystemPrompt_CitationConventionAlwaysPresent(t *testing.T) {
	for _, hasContext := range []bool{true, false} {
		p := systemPrompt(hasContext)
		if !strings.Contains(p, "[Article <number>: <title>]") {
			t.Errorf("hasContext=%v: prompt must state the citation convention", hasContext)
		}
	}
	if !strings.Contains(systemPrompt(true), "only from the given context") {
		t.Error("context prompt must restrict answers to the context")
	}
	if !strings.Contains(systemPrompt(false), "No context is available") {
		t.Error("empty-context prompt must say no context is available")
	}
}
