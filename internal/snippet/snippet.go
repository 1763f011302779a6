// Package snippet locates a representative paragraph for each ranked section.
package snippet

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/outline"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

const (
	DefaultLimit    = 5
	DefaultMaxChars = 1000
	maxReasonKWs    = 2
)

// PageSource resolves page text for a document by name.
type PageSource interface {
	PageText(document string, page int) (string, error)
}

// Documents adapts parsed documents keyed by name to PageSource.
type Documents map[string]*domain.Document

func (d Documents) PageText(document string, page int) (string, error) {
	doc, ok := d[document]
	if !ok {
		return "", fmt.Errorf("unknown document %q", document)
	}
	return doc.PageText(page)
}

type Extractor struct {
	log      *logger.Logger
	limit    int
	maxChars int
}

func NewExtractor(log *logger.Logger, limit, maxChars int) *Extractor {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{log: log.With("service", "SnippetExtractor"), limit: limit, maxChars: maxChars}
}

// Extract handles at most the first limit sections. A section whose page
// cannot be read is logged and left out.
func (e *Extractor) Extract(ctx context.Context, intent domain.Intent, sections []domain.RankedSection, pages PageSource) []domain.SubsectionAnalysis {
	out := make([]domain.SubsectionAnalysis, 0, min(len(sections), e.limit))
	for i, s := range sections {
		if i >= e.limit || ctx.Err() != nil {
			break
		}
		text, err := pages.PageText(s.Document, s.PageNumber)
		if err != nil {
			e.log.Warn("Snippet page read failed; skipping section",
				"document", s.Document,
				"page", s.PageNumber,
				"error", err,
			)
			continue
		}
		out = append(out, domain.SubsectionAnalysis{
			Document:     s.Document,
			PageNumber:   s.PageNumber,
			SectionTitle: s.SectionTitle,
			RefinedText:  Truncate(FindParagraph(text, s.SectionTitle), e.maxChars),
			Reason:       Reason(intent.JobToBeDone, s.Keywords),
		})
	}
	return out
}

// FindParagraph returns the first paragraph mentioning title
// (case-insensitive), else the first paragraph, else "".
func FindParagraph(page, title string) string {
	paras := outline.SplitParagraphs(page)
	if len(paras) == 0 {
		return ""
	}
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle != "" {
		for _, p := range paras {
			if strings.Contains(strings.ToLower(p), needle) {
				return p
			}
		}
	}
	return paras[0]
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Reason explains a selection in terms of the job and at most two matched keywords.
func Reason(job string, kws []string) string {
	job = strings.TrimSpace(job)
	if len(kws) > maxReasonKWs {
		kws = kws[:maxReasonKWs]
	}
	if len(kws) == 0 {
		return fmt.Sprintf("This section is semantically related to the goal: '%s'.", job)
	}
	quoted := make([]string, len(kws))
	for i, k := range kws {
		quoted[i] = "'" + k + "'"
	}
	return fmt.Sprintf("This section is relevant to the goal '%s' because it covers %s.", job, strings.Join(quoted, " and "))
}
