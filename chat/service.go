// Package chat answers policy questions: it ranks extracted sections
// against the question, assembles a bounded context block, calls the
// generative model once, and resolves citation markers in the answer
// back to source documents. Every failure mode degrades to a usable
// textual answer instead of an error.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/fabfab/policy-qa/doc"
	"github.com/fabfab/policy-qa/llm"
	"github.com/fabfab/policy-qa/retrieval"
)

// DefaultLLMTimeout bounds the single generative call. There is no
// retry; on timeout the service degrades immediately.
const DefaultLLMTimeout = 30 * time.Second

const (
	noDocumentsAnswer = "No policy documents are available yet, so I cannot answer from your documents. Upload the relevant policies and ask again."
	degradedAnswer    = "I could not generate an answer right now. Please try again in a moment."
)

// SectionSource supplies the corpus of extracted sections for a query.
type SectionSource interface {
	Sections(ctx context.Context) ([]doc.Section, error)
}

// SectionList is a fixed in-memory corpus.
type SectionList []doc.Section

func (s SectionList) Sections(context.Context) ([]doc.Section, error) { return s, nil }

type Config struct {
	MaxContextChars int
	MaxPromptChars  int
	LLMTimeout      time.Duration
}

type Service struct {
	source SectionSource
	llm    llm.Client
	cfg    Config
	logger *log.Logger
}

func NewService(source SectionSource, llmClient llm.Client, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = DefaultMaxContextChars
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}

	return &Service{
		source: source,
		llm:    llmClient,
		cfg:    cfg,
		logger: logger,
	}
}

// Ask answers one question against the current corpus. The only errors
// it returns are misuse (empty question, missing collaborators) and
// corpus-load failures; ranking misses, generative failures and
// timeouts all produce a degraded but valid Response.
func (s *Service) Ask(ctx context.Context, question string) (Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Response{}, fmt.Errorf("question cannot be empty")
	}
	if s.source == nil {
		return Response{}, fmt.Errorf("section source is not configured")
	}
	if s.llm == nil {
		return Response{}, fmt.Errorf("llm client is not configured")
	}

	sections, err := s.source.Sections(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("load corpus: %w", err)
	}

	ranked := retrieval.Rank(question, sections)
	if len(ranked) == 0 && len(sections) > 0 {
		s.logger.Printf("no sections matched %q, falling back to general context", question)
	}

	contextText, info, selected, err := buildContext(ranked, sections, s.cfg.MaxContextChars)
	if err != nil {
		if errors.Is(err, ErrEmptyCorpus) {
			return Response{Answer: noDocumentsAnswer, Citations: []Citation{}}, nil
		}
		return Response{}, err
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(contextText != "")},
		{Role: llm.RoleUser, Content: truncateAtParagraph(userPrompt(question, contextText), s.cfg.MaxPromptChars)},
	}

	llmCtx, cancel := context.WithTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()

	generated, genErr := s.llm.Generate(llmCtx, messages)
	if genErr != nil {
		s.logger.Printf("llm call failed, degrading answer: %v", genErr)
		return s.degraded(contextText, selected), nil
	}

	answer, citations := ExtractCitations(strings.TrimSpace(generated), info)
	return Response{Answer: answer, Citations: citations, Sources: sourcesFrom(selected)}, nil
}

// degraded is the answer shape used when the generative call fails:
// the best matching section verbatim when we had context, a generic
// apology when we did not.
func (s *Service) degraded(contextText string, selected []doc.Section) Response {
	if contextText == "" || len(selected) == 0 {
		return Response{Answer: degradedAnswer, Citations: []Citation{}}
	}
	top := selected[0]
	return Response{
		Answer:    top.Content,
		Citations: []Citation{},
		Sources:   sourcesFrom(selected[:1]),
	}
}
