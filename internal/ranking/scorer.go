// Package ranking scores document headings against an intent and selects a
// deduplicated, keyword-diverse top-N.
package ranking

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/embedding"
)

const (
	VerbatimBoost = 0.8
	TokenBoost    = 0.4
)

var levelWeights = map[domain.Level]float64{
	domain.LevelTitle: 3.0,
	domain.LevelH1:    2.0,
	domain.LevelH2:    1.5,
	domain.LevelH3:    1.2,
	domain.LevelH4:    1.0,
}

// LevelWeight returns the multiplier for a heading level; unknown levels weigh 1.0.
func LevelWeight(l domain.Level) float64 {
	if w, ok := levelWeights[l]; ok {
		return w
	}
	return 1.0
}

// KeywordBoost sums the per-keyword boosts for a heading and reports which
// keywords matched. A keyword found verbatim adds VerbatimBoost; otherwise a
// multi-word keyword with any token present adds TokenBoost.
func KeywordBoost(heading string, keywords []string) (float64, []string) {
	text := strings.ToLower(heading)
	var (
		boost   float64
		matched []string
	)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			boost += VerbatimBoost
			matched = append(matched, kw)
			continue
		}
		tokens := strings.Fields(kw)
		if len(tokens) < 2 {
			continue
		}
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				boost += TokenBoost
				matched = append(matched, kw)
				break
			}
		}
	}
	return boost, matched
}

// ScoreCandidate computes (similarity + boost) * level weight.
func ScoreCandidate(similarity float64, heading string, level domain.Level, keywords []string) (boost, score float64, matched []string) {
	boost, matched = KeywordBoost(heading, keywords)
	return boost, (similarity + boost) * LevelWeight(level), matched
}

type Scorer struct {
	embedder embedding.Embedder
}

func NewScorer(e embedding.Embedder) *Scorer {
	return &Scorer{embedder: e}
}

type section struct {
	document string
	page     int
	text     string
	level    domain.Level
}

// Score builds one candidate per non-empty title and per heading, in document
// then outline order. The intent and every heading go to the embedder in a
// single batch.
func (s *Scorer) Score(ctx context.Context, intent string, outlines []domain.Outline, keywords []string) ([]domain.Candidate, error) {
	var sections []section
	for _, o := range outlines {
		if title := strings.TrimSpace(o.Title); title != "" {
			sections = append(sections, section{document: o.Document, page: 0, text: title, level: domain.LevelTitle})
		}
		for _, h := range o.Headings {
			text := strings.TrimSpace(h.Text)
			if text == "" {
				continue
			}
			sections = append(sections, section{document: o.Document, page: h.Page, text: text, level: h.Level})
		}
	}
	if len(sections) == 0 {
		return []domain.Candidate{}, nil
	}

	inputs := make([]string, 0, len(sections)+1)
	inputs = append(inputs, intent)
	for _, sec := range sections {
		inputs = append(inputs, strings.ToLower(sec.text))
	}
	vecs, err := s.embedder.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed headings: %w", err)
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("embed headings: want %d vectors, got %d", len(inputs), len(vecs))
	}

	intentVec := vecs[0]
	out := make([]domain.Candidate, 0, len(sections))
	for i, sec := range sections {
		sim := embedding.Cosine(intentVec, vecs[i+1])
		boost, score, matched := ScoreCandidate(sim, sec.text, sec.level, keywords)
		out = append(out, domain.Candidate{
			Document:     sec.document,
			PageNumber:   sec.page,
			SectionTitle: sec.text,
			Level:        sec.level,
			Similarity:   sim,
			Boost:        boost,
			Score:        score,
			Keywords:     matched,
		})
	}
	return out, nil
}
