package snippet

import (
	"context"
	"strings"
	"testing"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

func TestFindParagraph(t *testing.T) {
	page := "Menu overview.\n\nOur VEGETARIAN ENTREES include lentil loaf.\n\nVegetarian entrees again."
	cases := []struct {
		name, page, title, want string
	}{
		{"first match case-insensitive", page, "Vegetarian Entrees", "Our VEGETARIAN ENTREES include lentil loaf."},
		{"fallback to first", page, "Wine Pairing", "Menu overview."},
		{"empty page", "  \n\n ", "Anything", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FindParagraph(tc.page, tc.title); got != tc.want {
				t.Fatalf("want %q got %q", tc.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate(strings.Repeat("é", 1200), 1000); len([]rune(got)) != 1000 {
		t.Fatalf("want 1000 runes, got %d", len([]rune(got)))
	}
	if got := Truncate("short", 1000); got != "short" {
		t.Fatalf("short string changed: %q", got)
	}
}

func TestReason(t *testing.T) {
	got := Reason("plan a vegetarian dinner", []string{"vegetarian dinner", "dietitian", "menu"})
	if !strings.Contains(got, "plan a vegetarian dinner") || !strings.Contains(got, "'vegetarian dinner'") || !strings.Contains(got, "'dietitian'") {
		t.Fatalf("reason: %q", got)
	}
	if strings.Contains(got, "menu") {
		t.Fatalf("reason should cite at most two keywords: %q", got)
	}
	if got := Reason("job", nil); !strings.Contains(got, "job") {
		t.Fatalf("reason without keywords: %q", got)
	}
}

func TestExtract(t *testing.T) {
	docs := Documents{
		"menu.md": {Name: "menu.md", Pages: []string{
			"Intro.",
			"Vegetarian Entrees\n\n" + strings.Repeat("x", 1500),
		}},
	}
	sec := func(doc string, page int, title string, kws ...string) domain.RankedSection {
		return domain.RankedSection{Candidate: domain.Candidate{Document: doc, PageNumber: page, SectionTitle: title, Keywords: kws}}
	}
	sections := []domain.RankedSection{
		sec("menu.md", 1, "Vegetarian Entrees", "vegetarian dinner"),
		sec("missing.md", 0, "Gone"),
		sec("menu.md", 9, "Out of range"),
		sec("menu.md", 0, "Intro"),
		sec("menu.md", 0, "A"),
		sec("menu.md", 0, "B"),
		sec("menu.md", 0, "C"),
	}
	e := NewExtractor(logger.NewNop(), 0, 0)
	got := e.Extract(context.Background(), domain.Intent{Persona: "dietitian", JobToBeDone: "plan a vegetarian dinner"}, sections, docs)

	// only the first five sections are considered and two of them fail
	if len(got) != 3 {
		t.Fatalf("want 3 snippets, got %d: %#v", len(got), got)
	}
	if got[0].RefinedText != "Vegetarian Entrees" {
		t.Fatalf("refined text: %q", got[0].RefinedText)
	}
	if !strings.Contains(got[0].Reason, "vegetarian") {
		t.Fatalf("reason must mention vegetarian: %q", got[0].Reason)
	}
	if got[1].SectionTitle != "Intro" || got[2].SectionTitle != "A" {
		t.Fatalf("unexpected sections: %#v", got)
	}
}

func TestExtractTruncates(t *testing.T) {
	docs := Documents{"a.txt": {Name: "a.txt", Pages: []string{strings.Repeat("y", 1500)}}}
	e := NewExtractor(logger.NewNop(), 5, 1000)
	got := e.Extract(context.Background(), domain.Intent{JobToBeDone: "j"},
		[]domain.RankedSection{{Candidate: domain.Candidate{Document: "a.txt", SectionTitle: "zzz"}}}, docs)
	if len(got) != 1 || len(got[0].RefinedText) != 1000 {
		t.Fatalf("want 1000 chars, got %#v", got)
	}
}
