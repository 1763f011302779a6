package analysis

import (
	"context"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/ranking"
	"github.com/yungbote/docinsight-backend/internal/snippet"
)

// Parser is satisfied by outline.Registry.
type Parser interface {
	Parse(ctx context.Context, name string, data []byte) (*domain.Document, error)
	Supports(name string) bool
}

type Upload struct {
	Name string
	Data []byte
}

// ParseAll parses uploads concurrently, at most parallel at a time. Results
// keep upload order; a document that fails to parse is logged and dropped.
func ParseAll(ctx context.Context, log *logger.Logger, parser Parser, uploads []Upload, parallel int, onDone func()) []*domain.Document {
	ctx, span := observability.StartSpan(ctx, "analysis.parse", attribute.Int("documents", len(uploads)))
	defer span.End()

	if parallel <= 0 {
		parallel = 4
	}
	docs := make([]*domain.Document, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, up := range uploads {
		g.Go(func() error {
			defer func() {
				if onDone != nil {
					onDone()
				}
			}()
			doc, err := parser.Parse(gctx, up.Name, up.Data)
			if err != nil {
				log.Warn("Document parse failed; skipping", "document", up.Name, "error", err)
				return nil
			}
			docs[i] = doc
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*domain.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	span.SetAttributes(attribute.Int("documents.parsed", len(out)))
	return out
}

// Supported drops uploads the parser cannot handle and repeated file names,
// keeping the first occurrence.
func Supported(parser Parser, uploads []Upload) []Upload {
	seen := map[string]struct{}{}
	out := make([]Upload, 0, len(uploads))
	for _, up := range uploads {
		up.Name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(up.Name), "\\", "/"))
		if up.Name == "" || up.Name == "." || !parser.Supports(up.Name) {
			continue
		}
		if _, dup := seen[up.Name]; dup {
			continue
		}
		seen[up.Name] = struct{}{}
		out = append(out, up)
	}
	return out
}

// Pipeline runs the local, model-free stages: ranking and snippets.
type Pipeline struct {
	Ranker   *ranking.Ranker
	Snippets *snippet.Extractor
}

type Ranked struct {
	Keywords    []string
	Sections    []domain.RankedSection
	Subsections []domain.SubsectionAnalysis
}

func (p *Pipeline) Run(ctx context.Context, intent domain.Intent, docs []*domain.Document) (*Ranked, error) {
	outlines := make([]domain.Outline, 0, len(docs))
	byName := make(snippet.Documents, len(docs))
	for _, d := range docs {
		outlines = append(outlines, d.Outline)
		byName[d.Name] = d
	}

	rctx, span := observability.StartSpan(ctx, "analysis.rank", attribute.Int("outlines", len(outlines)))
	res, err := p.Ranker.Rank(rctx, intent, outlines)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("keywords", len(res.Keywords)),
		attribute.Int("candidates", len(res.Candidates)),
		attribute.Int("selected", len(res.Sections)),
	)
	span.End()

	sctx, span := observability.StartSpan(ctx, "analysis.snippets")
	subs := p.Snippets.Extract(sctx, intent, res.Sections, byName)
	span.SetAttributes(attribute.Int("snippets", len(subs)))
	span.End()

	return &Ranked{Keywords: res.Keywords, Sections: res.Sections, Subsections: subs}, nil
}
