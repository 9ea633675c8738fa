package chat

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/fabfab/policy-qa/doc"
	"github.com/fabfab/policy-qa/llm"
)

type stubLLM struct {
	answer   string
	err      error
	calls    int
	messages []llm.Message
}

func (s *stubLLM) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

var _ llm.Client = (*stubLLM)(nil)

type failingSource struct{ err error }

func (f failingSource) Sections(context.Context) ([]doc.Section, error) { return nil, f.err }

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func policyCorpus() SectionList {
	return SectionList{
		{
			Title:         "Dress Code",
			Content:       "Students must wear uniforms on formal days.",
			ArticleNumber: "3",
			DocumentID:    "doc-1",
			FileName:      "handbook.pdf",
			Position:      &doc.Position{StartPage: 2},
		},
		{
			Title:      "Cafeteria Menu",
			Content:    "Monday soup, Tuesday pasta.",
			DocumentID: "doc-2",
			FileName:   "menu.pdf",
		},
	}
}

func TestAsk_EmptyCorpusSkipsLLM(t *testing.T) {
	client := &stubLLM{answer: "should not be used"}
	svc := NewService(SectionList{}, client, Config{}, testLogger())

	resp, err := svc.Ask(context.Background(), "dress code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 0 {
		t.Fatalf("LLM must not be called for an empty corpus, got %d calls", client.calls)
	}
	if resp.Answer == "" || len(resp.Citations) != 0 {
		t.Errorf("expected no-documents answer with no citations, got %+v", resp)
	}
}

func TestAsk_SuccessResolvesCitations(t *testing.T) {
	client := &stubLLM{answer: "Uniforms are required [Article 3: Dress Code]."}
	svc := NewService(policyCorpus(), client, Config{}, testLogger())

	resp, err := svc.Ask(context.Background(), "dress code uniforms")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one LLM call, got %d", client.calls)
	}
	if !strings.Contains(resp.Answer, "[Article 3: Dress Code](citation-0)") {
		t.Errorf("citation marker not rewritten: %q", resp.Answer)
	}
	if len(resp.Citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(resp.Citations))
	}
	if resp.Citations[0].DocumentID != "doc-1" {
		t.Errorf("citation not resolved to source document: %+v", resp.Citations[0])
	}
	if len(resp.Sources) == 0 {
		t.Error("expected sources for a matched query")
	}
}

func TestAsk_PromptsCarryContextAndConvention(t *testing.T) {
	client := &stubLLM{answer: "ok"}
	svc := NewService(policyCorpus(), client, Config{}, testLogger())

	if _, err := svc.Ask(context.Background(), "dress code uniforms"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(client.messages))
	}
	system, user := client.messages[0], client.messages[1]
	if system.Role != llm.RoleSystem || user.Role != llm.RoleUser {
		t.Fatalf("unexpected roles %q, %q", system.Role, user.Role)
	}
	if !strings.Contains(system.Content, "only from the given context") {
		t.Error("system prompt must restrict answers to the context")
	}
	if !strings.Contains(user.Content, "[Source: handbook.pdf]") {
		t.Error("user prompt must embed the assembled context")
	}
}

func TestAsk_LLMFailureDegradesToTopSection(t *testing.T) {
	client := &stubLLM{err: llm.ErrUnavailable}
	svc := NewService(policyCorpus(), client, Config{}, testLogger())

	resp, err := svc.Ask(context.Background(), "dress code uniforms")
	if err != nil {
		t.Fatalf("degraded path must not error, got %v", err)
	}
	if resp.Answer != "Students must wear uniforms on formal days." {
		t.Errorf("expected top section content verbatim, got %q", resp.Answer)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("degraded answer must carry no citations, got %d", len(resp.Citations))
	}
}

func TestAsk_LLMFailureWithoutContextApologizes(t *testing.T) {
	// A budget too small for even the first section leaves the context
	// empty while the corpus is not, so there is no section to fall
	// back on verbatim.
	client := &stubLLM{err: llm.ErrUnavailable}
	svc := NewService(policyCorpus(), client, Config{MaxContextChars: 10}, testLogger())

	resp, err := svc.Ask(context.Background(), "dress code uniforms")
	if err != nil {
		t.Fatalf("degraded path must not error, got %v", err)
	}
	if resp.Answer != degradedAnswer {
		t.Errorf("expected generic apology, got %q", resp.Answer)
	}
	if len(resp.Citations) != 0 {
		t.Errorf("degraded answer must carry no citations, got %d", len(resp.Citations))
	}
	if len(resp.Sources) != 0 {
		t.Errorf("apology answer must carry no sources, got %d", len(resp.Sources))
	}
}

func TestAsk_GeneralContextWhenNothingRanks(t *testing.T) {
	client := &stubLLM{answer: "General overview."}
	svc := NewService(policyCorpus(), client, Config{}, testLogger())

	resp, err := svc.Ask(context.Background(), "zzzunmatchable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected LLM call with general context, got %d", client.calls)
	}
	// One section per distinct document lands in the prompt.
	user := client.messages[1].Content
	if !strings.Contains(user, "handbook.pdf") || !strings.Contains(user, "menu.pdf") {
		t.Errorf("general context should span distinct documents: %q", user)
	}
	if resp.Answer != "General overview." {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
}

func TestAsk_ValidatesQuestion(t *testing.T) {
	svc := NewService(policyCorpus(), &stubLLM{}, Config{}, testLogger())
	if _, err := svc.Ask(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty question")
	}
}

func TestAsk_CorpusLoadFailurePropagates(t *testing.T) {
	loadErr := errors.New("store offline")
	svc := NewService(failingSource{err: loadErr}, &stubLLM{}, Config{}, testLogger())
	if _, err := svc.Ask(context.Background(), "anything at all"); !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}
