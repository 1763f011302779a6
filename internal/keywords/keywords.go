// Package keywords turns a free-text intent into an ordered list of keyword
// phrases. Named entities come first, then noun phrases by descending length.
package keywords

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

// Analysis is the raw linguistic output for one text.
type Analysis struct {
	Entities    []string
	NounPhrases []string
}

// Analyzer runs entity recognition and noun-phrase chunking.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Analysis, error)
}

type Extractor struct {
	log      *logger.Logger
	analyzer Analyzer
}

// NewExtractor accepts a nil analyzer; Extract then always returns an empty list.
func NewExtractor(log *logger.Logger, analyzer Analyzer) *Extractor {
	return &Extractor{log: log.With("service", "KeywordExtractor"), analyzer: analyzer}
}

// Extract never fails. When analysis is unavailable or errors, the result is
// empty and ranking proceeds without keyword boosts.
func (e *Extractor) Extract(ctx context.Context, text string) []string {
	out := []string{}
	if e == nil || e.analyzer == nil || strings.TrimSpace(text) == "" {
		return out
	}
	a, err := e.analyzer.Analyze(ctx, text)
	if err != nil {
		e.log.Warn("Keyword analysis failed; continuing without keywords", "error", err)
		return out
	}
	return Order(a)
}

// Order normalizes an Analysis into extraction priority: deduplicated
// lower-case entities in source order, then the remaining noun phrases
// longest first. Phrases of one character are dropped.
func Order(a Analysis) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, ent := range a.Entities {
		k := normalize(ent)
		if utf8.RuneCountInString(k) <= 1 || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}

	phrases := []string{}
	for _, np := range a.NounPhrases {
		k := normalize(np)
		if utf8.RuneCountInString(k) <= 1 || seen[k] {
			continue
		}
		seen[k] = true
		phrases = append(phrases, k)
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		return utf8.RuneCountInString(phrases[i]) > utf8.RuneCountInString(phrases[j])
	})
	return append(out, phrases...)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// None is the analyzer used when linguistic analysis is disabled.
type None struct{}

func (None) Analyze(context.Context, string) (Analysis, error) { return Analysis{}, nil }
