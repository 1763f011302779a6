package keywords

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

type stubAnalyzer struct {
	a   Analysis
	err error
}

func (s stubAnalyzer) Analyze(context.Context, string) (Analysis, error) { return s.a, s.err }

func TestOrder(t *testing.T) {
	got := Order(Analysis{
		Entities:    []string{"Paris", "  paris ", "EU", "x"},
		NounPhrases: []string{"dinner", "vegetarian dinner", "paris", "menu", "a"},
	})
	assert.Equal(t, []string{"paris", "eu", "vegetarian dinner", "dinner", "menu"}, got)
}

func TestOrderStableForEqualLength(t *testing.T) {
	got := Order(Analysis{NounPhrases: []string{"wine", "menu", "food list"}})
	assert.Equal(t, []string{"food list", "wine", "menu"}, got)
}

func TestExtractDegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	e := NewExtractor(logger.NewNop(), stubAnalyzer{err: errors.New("model missing")})
	got := e.Extract(ctx, "plan a vegetarian dinner")
	require.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, NewExtractor(logger.NewNop(), nil).Extract(ctx, "anything"))
	assert.Empty(t, NewExtractor(logger.NewNop(), None{}).Extract(ctx, "anything"))
}

func TestNounPhrases(t *testing.T) {
	tokens := []taggedToken{
		{"plan", "VB"}, {"a", "DT"}, {"vegetarian", "JJ"}, {"dinner", "NN"},
		{"for", "IN"}, {"hungry", "JJ"}, {"and", "CC"},
		{"cooking", "VBG"}, {"classes", "NNS"},
	}
	assert.Equal(t, []string{"vegetarian dinner", "cooking classes"}, nounPhrases(tokens))
}

func TestProseAnalyzer(t *testing.T) {
	e := NewExtractor(logger.NewNop(), NewProseAnalyzer())
	got := e.Extract(context.Background(), "dietitian plan a vegetarian dinner")
	require.NotEmpty(t, got)

	found := false
	for _, k := range got {
		if k == "vegetarian dinner" || k == "dinner" {
			found = true
		}
	}
	assert.True(t, found, "keywords: %v", got)
}
