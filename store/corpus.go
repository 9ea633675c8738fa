package store

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/fabfab/policy-qa/doc"
	"github.com/fabfab/policy-qa/extract"
)

// DefaultMaxDocuments caps how many stored documents one query will
// consider. Documents beyond the cap are not extracted for that query;
// this bounds latency, it is not pagination.
const DefaultMaxDocuments = 8

const extractParallelism = 4

// DocumentSource is the slice of Store the corpus loader needs.
type DocumentSource interface {
	List(ctx context.Context) ([]doc.Document, error)
	Get(ctx context.Context, id string) (doc.Document, error)
}

// CorpusLoader turns stored documents into the per-query section
// corpus. Extraction runs in parallel with bounded concurrency, and a
// document that fails to extract is logged and skipped rather than
// failing the query.
type CorpusLoader struct {
	source  DocumentSource
	cache   *extract.Cache
	logger  *log.Logger
	maxDocs int
}

func NewCorpusLoader(source DocumentSource, cache *extract.Cache, maxDocs int, logger *log.Logger) *CorpusLoader {
	if logger == nil {
		logger = log.Default()
	}
	if maxDocs <= 0 {
		maxDocs = DefaultMaxDocuments
	}
	if cache == nil {
		cache = extract.NewCache()
	}

	return &CorpusLoader{
		source:  source,
		cache:   cache,
		logger:  logger,
		maxDocs: maxDocs,
	}
}

// Sections implements chat.SectionSource. The returned sections keep
// document order (upload order), with each document's sections
// contiguous.
func (l *CorpusLoader) Sections(ctx context.Context) ([]doc.Section, error) {
	documents, err := l.source.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(documents) > l.maxDocs {
		l.logger.Printf("corpus has %d documents, considering the first %d", len(documents), l.maxDocs)
		documents = documents[:l.maxDocs]
	}

	perDoc := make([][]doc.Section, len(documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractParallelism)
	for i := range documents {
		i := i
		g.Go(func() error {
			meta := documents[i]
			if cached, ok := l.cache.Get(meta.SHA256); ok {
				perDoc[i] = cached
				return nil
			}

			full, err := l.source.Get(gctx, meta.ID)
			if err != nil {
				l.logger.Printf("skipping document %s (%s): %v", meta.ID, meta.FileName, err)
				return nil
			}

			sections, err := extract.Sections(full)
			if err != nil {
				l.logger.Printf("skipping document %s: %v", meta.ID, err)
				return nil
			}

			l.cache.Put(full.SHA256, sections)
			perDoc[i] = sections
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var corpus []doc.Section
	for _, sections := range perDoc {
		corpus = append(corpus, sections...)
	}
	return corpus, nil
}
