package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/fabfab/policy-qa/doc"
)

const handbookText = `Campus Handbook
Welcome to the institution.

Article 1: General Conduct
All members of the community are expected to behave respectfully.

Section 1.1: Classroom Behavior
Disruptions of instruction are prohibited.
` + "\f" + `Section 1.2: Online Behavior
The same standards apply in virtual classrooms.

Article 2: Attendance
Students who miss more than 20% of class meetings may fail the course.`

func TestSplitSections_HeadingsAndPages(t *testing.T) {
	sections := SplitSections(handbookText, "doc-1", "handbook.pdf")

	titles := make([]string, len(sections))
	for i, s := range sections {
		titles[i] = s.Title
	}

	want := []string{
		"Campus Handbook",
		"General Conduct",
		"Classroom Behavior",
		"Online Behavior",
		"Attendance",
	}
	if len(sections) != len(want) {
		t.Fatalf("expected %d sections, got %d (%v)", len(want), len(sections), titles)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("section %d: expected title %q, got %q", i, want[i], titles[i])
		}
	}

	// Section 1.2 starts on the second page.
	if sections[3].PageNumber != 2 {
		t.Errorf("expected Online Behavior on page 2, got %d", sections[3].PageNumber)
	}
	if sections[1].PageNumber != 1 {
		t.Errorf("expected General Conduct on page 1, got %d", sections[1].PageNumber)
	}
}

func TestSplitSections_ArticleAndSectionNumbers(t *testing.T) {
	sections := SplitSections(handbookText, "doc-1", "handbook.pdf")

	classroom := sections[2]
	if classroom.ArticleNumber != "1" {
		t.Errorf("expected article number 1, got %q", classroom.ArticleNumber)
	}
	if classroom.SectionID != "1.1" {
		t.Errorf("expected section id 1.1, got %q", classroom.SectionID)
	}

	attendance := sections[4]
	if attendance.ArticleNumber != "2" {
		t.Errorf("expected article number 2, got %q", attendance.ArticleNumber)
	}
	if attendance.SectionID != "" {
		t.Errorf("expected empty section id on article body, got %q", attendance.SectionID)
	}
}

func TestSplitSections_ProvenanceOnEverySection(t *testing.T) {
	for i, s := range SplitSections(handbookText, "doc-9", "handbook.pdf") {
		if s.DocumentID != "doc-9" {
			t.Errorf("section %d: expected document id doc-9, got %q", i, s.DocumentID)
		}
		if s.FileName != "handbook.pdf" {
			t.Errorf("section %d: expected file name handbook.pdf, got %q", i, s.FileName)
		}
		if s.Position == nil || s.Position.StartPage == 0 {
			t.Errorf("section %d: missing position", i)
		}
	}
}

func TestSplitSections_CapsHeadingResetsArticle(t *testing.T) {
	text := "Article 3: Housing\nRooms are assigned by lottery.\n\nAPPENDIX MATERIALS\nForms are available at the front desk.\n"
	sections := SplitSections(text, "d", "rules.txt")
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[1].Title != "APPENDIX MATERIALS" {
		t.Errorf("expected caps heading as title, got %q", sections[1].Title)
	}
	if sections[1].ArticleNumber != "" {
		t.Errorf("caps heading should not inherit article number, got %q", sections[1].ArticleNumber)
	}
}

func TestSplitSections_NoHeadings(t *testing.T) {
	sections := SplitSections("Just a plain memo with no structure at all.", "d", "memo.txt")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].Title != "memo" {
		t.Errorf("expected file-stem title, got %q", sections[0].Title)
	}
}

func TestSplitSections_Empty(t *testing.T) {
	if got := SplitSections("", "d", "empty.txt"); len(got) != 0 {
		t.Fatalf("expected no sections for empty text, got %d", len(got))
	}
}

func TestSections_PlainTextDocument(t *testing.T) {
	document := doc.Document{
		ID:       "doc-2",
		FileName: "policy.txt",
		Data:     []byte("Article 7: Dress Code\r\nUniforms are required on formal days.\r\n"),
	}

	sections, err := Sections(document)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(sections))
	}
	if sections[0].ArticleNumber != "7" {
		t.Errorf("expected article number 7, got %q", sections[0].ArticleNumber)
	}
	if !strings.Contains(sections[0].Content, "Uniforms") {
		t.Errorf("unexpected content: %q", sections[0].Content)
	}
}

func TestSections_EmptyDocumentFails(t *testing.T) {
	_, err := Sections(doc.Document{ID: "d", FileName: "blank.txt", Data: nil})
	if err == nil {
		t.Fatal("expected error for empty document")
	}
	var exErr *Error
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *extract.Error, got %T", err)
	}
	if exErr.FileName != "blank.txt" {
		t.Errorf("expected file name in error, got %q", exErr.FileName)
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get("sha-a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put("sha-a", []doc.Section{{Title: "T"}})
	got, ok := c.Get("sha-a")
	if !ok || len(got) != 1 || got[0].Title != "T" {
		t.Fatalf("expected cached sections back, got %v (ok=%v)", got, ok)
	}
	c.Delete("sha-a")
	if _, ok := c.Get("sha-a"); ok {
		t.Fatal("expected miss after delete")
	}
}
