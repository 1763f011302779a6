package ranking

import (
	"context"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/keywords"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

// Result carries the intermediate products of one ranking run so callers can
// explain a selection.
type Result struct {
	Keywords   []string               `json:"keywords"`
	Candidates []domain.Candidate     `json:"candidates"`
	Sections   []domain.RankedSection `json:"sections"`
}

type Ranker struct {
	log       *logger.Logger
	extractor *keywords.Extractor
	scorer    *Scorer
	topN      int
}

func NewRanker(log *logger.Logger, extractor *keywords.Extractor, scorer *Scorer, topN int) *Ranker {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Ranker{log: log.With("service", "Ranker"), extractor: extractor, scorer: scorer, topN: topN}
}

func (r *Ranker) TopN() int { return r.topN }

func (r *Ranker) Rank(ctx context.Context, intent domain.Intent, outlines []domain.Outline) (*Result, error) {
	text := intent.Text()
	kws := r.extractor.Extract(ctx, text)
	cands, err := r.scorer.Score(ctx, text, outlines, kws)
	if err != nil {
		return nil, err
	}
	sections := Select(cands, kws, r.topN)
	r.log.Debug("Ranked sections",
		"keywords", len(kws),
		"candidates", len(cands),
		"selected", len(sections),
	)
	return &Result{Keywords: kws, Candidates: cands, Sections: sections}, nil
}
