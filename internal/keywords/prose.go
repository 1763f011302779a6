package keywords

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// ProseAnalyzer uses prose's averaged-perceptron tagger and NER model.
// The models ship inside the library, so construction is cheap and the value
// is safe for concurrent use.
type ProseAnalyzer struct{}

func NewProseAnalyzer() *ProseAnalyzer { return &ProseAnalyzer{} }

func (p *ProseAnalyzer) Analyze(ctx context.Context, text string) (a Analysis, err error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("prose panic: %v", r)
		}
	}()
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return Analysis{}, err
	}
	for _, ent := range doc.Entities() {
		a.Entities = append(a.Entities, ent.Text)
	}
	tokens := make([]taggedToken, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, taggedToken{Text: tok.Text, Tag: tok.Tag})
	}
	a.NounPhrases = nounPhrases(tokens)
	return a, nil
}

type taggedToken struct {
	Text string
	Tag  string
}

// nounPhrases chunks runs of adjectives, nouns and cardinals and keeps those
// that end in a noun. A gerund may open a run ("cooking class").
func nounPhrases(tokens []taggedToken) []string {
	var (
		out []string
		run []taggedToken
	)
	flush := func() {
		end := len(run)
		for end > 0 && !isNoun(run[end-1].Tag) {
			end--
		}
		if end > 0 {
			words := make([]string, 0, end)
			for _, t := range run[:end] {
				words = append(words, t.Text)
			}
			out = append(out, strings.Join(words, " "))
		}
		run = run[:0]
	}
	for _, t := range tokens {
		switch {
		case isNoun(t.Tag) || strings.HasPrefix(t.Tag, "JJ") || t.Tag == "CD":
			run = append(run, t)
		case t.Tag == "VBG" && len(run) == 0:
			run = append(run, t)
		default:
			flush()
		}
	}
	flush()
	return out
}

func isNoun(tag string) bool { return strings.HasPrefix(tag, "NN") }
