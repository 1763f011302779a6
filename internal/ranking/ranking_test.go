package ranking

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/embedding"
	"github.com/yungbote/docinsight-backend/internal/keywords"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

func TestLevelWeight(t *testing.T) {
	cases := map[domain.Level]float64{
		domain.LevelTitle:  3.0,
		domain.LevelH1:     2.0,
		domain.LevelH2:     1.5,
		domain.LevelH3:     1.2,
		domain.LevelH4:     1.0,
		domain.Level("H9"): 1.0,
		domain.Level(""):   1.0,
	}
	for lvl, want := range cases {
		if got := LevelWeight(lvl); got != want {
			t.Fatalf("LevelWeight(%q): want %v got %v", lvl, want, got)
		}
	}
}

func TestKeywordBoost(t *testing.T) {
	cases := []struct {
		name        string
		heading     string
		keywords    []string
		wantBoost   float64
		wantMatched []string
	}{
		{"verbatim", "Vegetarian Entrees", []string{"vegetarian"}, 0.8, []string{"vegetarian"}},
		{"token of multiword", "Vegetarian Entrees", []string{"vegetarian dinner", "dietitian"}, 0.4, []string{"vegetarian dinner"}},
		{"verbatim wins over token", "Vegetarian Dinner Menu", []string{"vegetarian dinner"}, 0.8, []string{"vegetarian dinner"}},
		{"single word no token fallback", "Entrees", []string{"vegetarian"}, 0, nil},
		{"several keywords add up", "Vegetarian Dinner for a Dietitian", []string{"vegetarian dinner", "dietitian", "dinner party"}, 2.0, []string{"vegetarian dinner", "dietitian", "dinner party"}},
		{"no keywords", "Anything", nil, 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			boost, matched := KeywordBoost(tc.heading, tc.keywords)
			if math.Abs(boost-tc.wantBoost) > 1e-9 {
				t.Fatalf("boost: want %v got %v", tc.wantBoost, boost)
			}
			if !reflect.DeepEqual(matched, tc.wantMatched) {
				t.Fatalf("matched: want %v got %v", tc.wantMatched, matched)
			}
		})
	}
}

func TestScoreCandidate(t *testing.T) {
	boost, score, _ := ScoreCandidate(0.5, "Vegetarian Entrees", domain.LevelH1, []string{"vegetarian"})
	if boost != 0.8 || math.Abs(score-2.6) > 1e-9 {
		t.Fatalf("want boost 0.8 score 2.6, got %v %v", boost, score)
	}
	_, again, _ := ScoreCandidate(0.5, "Vegetarian Entrees", domain.LevelH1, []string{"vegetarian"})
	if again != score {
		t.Fatalf("scoring must be deterministic")
	}
}

func TestScorerEmitsTitleCandidate(t *testing.T) {
	s := NewScorer(embedding.NewHashEmbedder(64))
	cands, err := s.Score(context.Background(), "intent", []domain.Outline{
		{Document: "a.pdf", Title: "Guide", Headings: []domain.Heading{{Text: "Intro", Level: domain.LevelH1, Page: 2}}},
		{Document: "b.pdf", Title: "  ", Headings: []domain.Heading{{Text: "Body", Level: domain.LevelH3, Page: 1}}},
	}, nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("want 3 candidates (one title, two headings), got %d", len(cands))
	}
	if c := cands[0]; c.Level != domain.LevelTitle || c.PageNumber != 0 || c.SectionTitle != "Guide" {
		t.Fatalf("title candidate: %#v", c)
	}
	for _, c := range cands {
		if want := c.Similarity * LevelWeight(c.Level); math.Abs(c.Score-want) > 1e-9 {
			t.Fatalf("score without keywords should be similarity*weight: %#v", c)
		}
	}
}

func TestScorerIsDeterministic(t *testing.T) {
	outlines := []domain.Outline{
		{Document: "menu.pdf", Title: "Catering Guide", Headings: []domain.Heading{
			{Text: "Vegetarian Entrees", Level: domain.LevelH2, Page: 1},
			{Text: "Wine Pairing Appendix", Level: domain.LevelH2, Page: 3},
		}},
		{Document: "finance.pdf", Headings: []domain.Heading{
			{Text: "Quarterly Budget", Level: domain.LevelH1, Page: 0},
		}},
	}
	kws := []string{"vegetarian dinner", "dietitian"}
	intent := "dietitian plan a vegetarian dinner"

	first, err := NewScorer(embedding.NewHashEmbedder(128)).Score(context.Background(), intent, outlines, kws)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, err := NewScorer(embedding.NewHashEmbedder(128)).Score(context.Background(), intent, outlines, kws)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(first) != 4 || len(first) != len(second) {
		t.Fatalf("candidate counts: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Score != second[i].Score || first[i].SectionTitle != second[i].SectionTitle {
			t.Fatalf("candidate %d differs: %#v vs %#v", i, first[i], second[i])
		}
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated scoring must produce identical candidates")
	}
}

func cand(title string, score float64, kws ...string) domain.Candidate {
	return domain.Candidate{Document: "d.pdf", SectionTitle: title, Score: score, Keywords: kws}
}

func titles(rs []domain.RankedSection) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.SectionTitle
	}
	return out
}

func assertRanked(t *testing.T, rs []domain.RankedSection, topN int) {
	t.Helper()
	if len(rs) > topN {
		t.Fatalf("selected %d > top_n %d", len(rs), topN)
	}
	seen := map[string]bool{}
	for i, r := range rs {
		if r.ImportanceRank != i+1 {
			t.Fatalf("rank at %d: %d", i, r.ImportanceRank)
		}
		if seen[r.SectionTitle] {
			t.Fatalf("duplicate title %q", r.SectionTitle)
		}
		seen[r.SectionTitle] = true
	}
}

func TestSelectDiversityFirst(t *testing.T) {
	cands := []domain.Candidate{
		cand("A", 5, "x"),
		cand("B", 4, "x", "y"),
		cand("C", 3, "y"),
		cand("D", 10),
		cand("A", 1, "z"),
	}
	kws := []string{"x", "y", "z"}

	got := Select(cands, kws, 3)
	assertRanked(t, got, 3)
	if want := []string{"A", "B", "D"}; !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("top 3: want %v got %v", want, titles(got))
	}

	got = Select(cands, kws, 10)
	assertRanked(t, got, 10)
	if want := []string{"A", "B", "D", "C"}; !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("top 10: want %v got %v", want, titles(got))
	}
}

func TestSelectDefaultsAndTies(t *testing.T) {
	var cands []domain.Candidate
	for _, title := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		cands = append(cands, cand(title, 1))
	}
	got := Select(cands, nil, 0)
	if want := []string{"a", "b", "c", "d", "e"}; !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("default top_n with ties: want %v got %v", want, titles(got))
	}

	tied := []domain.Candidate{cand("low", 1, "k"), cand("early", 2, "k"), cand("late", 2, "k")}
	if got := Select(tied, []string{"k"}, 1); got[0].SectionTitle != "early" {
		t.Fatalf("keyword tie should go to earlier candidate, got %q", got[0].SectionTitle)
	}
	if got := Select(tied, nil, 2); !reflect.DeepEqual(titles(got), []string{"early", "late"}) {
		t.Fatalf("backfill tie should keep generation order, got %v", titles(got))
	}
}

func TestSelectEmpty(t *testing.T) {
	if got := Select(nil, []string{"x"}, 5); len(got) != 0 {
		t.Fatalf("want empty, got %v", got)
	}
}

type fixedAnalyzer keywords.Analysis

func (f fixedAnalyzer) Analyze(context.Context, string) (keywords.Analysis, error) {
	return keywords.Analysis(f), nil
}

func TestRankerVegetarianExample(t *testing.T) {
	log := logger.NewNop()
	ex := keywords.NewExtractor(log, fixedAnalyzer{NounPhrases: []string{"dietitian", "vegetarian dinner"}})
	r := NewRanker(log, ex, NewScorer(embedding.NewHashEmbedder(384)), 5)

	res, err := r.Rank(context.Background(),
		domain.Intent{Persona: "dietitian", JobToBeDone: "plan a vegetarian dinner"},
		[]domain.Outline{
			{Document: "menu.pdf", Headings: []domain.Heading{
				{Text: "Wine Pairing Appendix", Level: domain.LevelH2, Page: 3},
				{Text: "Vegetarian Entrees", Level: domain.LevelH2, Page: 1},
			}},
			{Document: "finance.pdf", Headings: []domain.Heading{
				{Text: "Quarterly Budget", Level: domain.LevelH2, Page: 0},
			}},
		})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if want := []string{"vegetarian dinner", "dietitian"}; !reflect.DeepEqual(res.Keywords, want) {
		t.Fatalf("keywords: %v", res.Keywords)
	}
	assertRanked(t, res.Sections, 5)

	rank := map[string]int{}
	for _, s := range res.Sections {
		rank[s.SectionTitle] = s.ImportanceRank
	}
	if rank["Vegetarian Entrees"] != 1 {
		t.Fatalf("Vegetarian Entrees should rank first: %v", rank)
	}
	if rank["Wine Pairing Appendix"] <= rank["Vegetarian Entrees"] {
		t.Fatalf("wine pairing must rank below vegetarian entrees: %v", rank)
	}
}
