package outline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/platform/gcp"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

func TestParseMarkdown(t *testing.T) {
	src := "# Dinner Guide\nIntro paragraph.\n\n## Vegetarian Entrees\nLentil loaf is great.\n---\n## Wine Pairing Appendix\nReds.\n```\n# not a heading\n```\n"
	doc, err := ParseMarkdown(context.Background(), "guide.md", []byte(src))
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	if doc.Outline.Title != "Dinner Guide" {
		t.Fatalf("title: got %q", doc.Outline.Title)
	}
	want := []domain.Heading{
		{Text: "Vegetarian Entrees", Level: domain.LevelH2, Page: 0},
		{Text: "Wine Pairing Appendix", Level: domain.LevelH2, Page: 1},
	}
	if !reflect.DeepEqual(doc.Outline.Headings, want) {
		t.Fatalf("headings: got %#v", doc.Outline.Headings)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("pages: want 2 got %d", len(doc.Pages))
	}
	paras := SplitParagraphs(doc.Pages[1])
	if len(paras) == 0 || paras[0] != "Wine Pairing Appendix" {
		t.Fatalf("page 1 paragraphs: %#v", paras)
	}
}

func TestParseMarkdownRejectsBinary(t *testing.T) {
	if _, err := ParseMarkdown(context.Background(), "x.md", []byte{0xff, 0xfe, 0x00}); err == nil {
		t.Fatalf("expected error for invalid utf-8")
	}
}

func TestParseText(t *testing.T) {
	src := "INTRODUCTION\nsome text here that is long.\n\n1.2 Methods Used\nmore text.\fSecond Page Heading\nbody text.\n\f"
	doc, err := ParseText(context.Background(), "notes.txt", []byte(src))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("pages: want 2 got %d", len(doc.Pages))
	}
	if doc.Outline.Title != "INTRODUCTION" {
		t.Fatalf("title: got %q", doc.Outline.Title)
	}
	want := []domain.Heading{
		{Text: "1.2 Methods Used", Level: domain.LevelH2, Page: 0},
		{Text: "Second Page Heading", Level: domain.LevelH2, Page: 1},
	}
	if !reflect.DeepEqual(doc.Outline.Headings, want) {
		t.Fatalf("headings: got %#v", doc.Outline.Headings)
	}
}

func TestLooksLikeHeading(t *testing.T) {
	cases := map[string]bool{
		"EXECUTIVE SUMMARY":              true,
		"3.1 Results":                    true,
		"Vegetarian Entrees":             true,
		"The Art of the Deal":            true,
		"this is a sentence.":            false,
		"Lentils are cheap and filling.": false,
		"ok":                             false,
	}
	for in, want := range cases {
		if got := looksLikeHeading(in); got != want {
			t.Fatalf("looksLikeHeading(%q): want %v got %v", in, want, got)
		}
	}
}

func TestGuessLevel(t *testing.T) {
	cases := map[string]domain.Level{
		"1 Intro":        domain.LevelH1,
		"2.3 Scope":      domain.LevelH2,
		"2.3.1 Detail":   domain.LevelH3,
		"2.3.1.4 Deeper": domain.LevelH4,
		"APPENDIX":       domain.LevelH1,
		"Related Work":   domain.LevelH2,
	}
	for in, want := range cases {
		if got := guessLevel(in); got != want {
			t.Fatalf("guessLevel(%q): want %s got %s", in, want, got)
		}
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("first line\ncontinued\n\n  \n\nsecond\r\n\r\nthird  ")
	want := []string{"first line\ncontinued", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitParagraphs: got %#v", got)
	}
	if got := SplitParagraphs("   "); len(got) != 0 {
		t.Fatalf("blank page: got %#v", got)
	}
}

func TestParseHTML(t *testing.T) {
	src := `<html><head><title>Menu Plan</title><style>p{}</style></head><body>
<h1>Overview</h1><p>Para one.</p>
<h2>Vegetarian Entrees</h2><ul><li><p>Lentil loaf</p></li></ul>
<hr>
<h3>Wine</h3><p>Reds</p>
<script>var x = 1;</script>
</body></html>`
	doc, err := ParseHTML(context.Background(), "menu.html", []byte(src))
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	if doc.Outline.Title != "Menu Plan" {
		t.Fatalf("title: got %q", doc.Outline.Title)
	}
	want := []domain.Heading{
		{Text: "Overview", Level: domain.LevelH1, Page: 0},
		{Text: "Vegetarian Entrees", Level: domain.LevelH2, Page: 0},
		{Text: "Wine", Level: domain.LevelH3, Page: 1},
	}
	if !reflect.DeepEqual(doc.Outline.Headings, want) {
		t.Fatalf("headings: got %#v", doc.Outline.Headings)
	}
	wantPages := []string{"Overview\n\nPara one.\n\nVegetarian Entrees\n\nLentil loaf", "Wine\n\nReds"}
	if !reflect.DeepEqual(doc.Pages, wantPages) {
		t.Fatalf("pages: got %#v", doc.Pages)
	}
}

func TestParseHTMLTitleFromFirstH1(t *testing.T) {
	doc, err := ParseHTML(context.Background(), "a.html", []byte(`<body><h1>Guide</h1><h2>Part</h2><p>x</p></body>`))
	if err != nil {
		t.Fatalf("ParseHTML: %v", err)
	}
	if doc.Outline.Title != "Guide" || len(doc.Outline.Headings) != 1 {
		t.Fatalf("outline: %#v", doc.Outline)
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestParseDocx(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Meal Guide</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Vegetarian Entrees</w:t></w:r></w:p>
<w:p><w:r><w:t>Lentils </w:t></w:r><w:r><w:t>and rice.</w:t></w:r></w:p>
<w:p><w:r><w:br w:type="page"/></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Wine Pairing</w:t></w:r></w:p>
</w:body></w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": body})
	doc, err := ParseDocx(context.Background(), "guide.docx", data)
	if err != nil {
		t.Fatalf("ParseDocx: %v", err)
	}
	if doc.Outline.Title != "Meal Guide" {
		t.Fatalf("title: got %q", doc.Outline.Title)
	}
	want := []domain.Heading{
		{Text: "Vegetarian Entrees", Level: domain.LevelH1, Page: 0},
		{Text: "Wine Pairing", Level: domain.LevelH2, Page: 1},
	}
	if !reflect.DeepEqual(doc.Outline.Headings, want) {
		t.Fatalf("headings: got %#v", doc.Outline.Headings)
	}
	if len(doc.Pages) != 2 || doc.Pages[0] != "Meal Guide\n\nVegetarian Entrees\n\nLentils and rice." {
		t.Fatalf("pages: got %#v", doc.Pages)
	}
}

func TestParsePptx(t *testing.T) {
	slide := func(lines ...string) string {
		s := `<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree>`
		for _, l := range lines {
			s += `<p:sp><p:txBody><a:p><a:r><a:t>` + l + `</a:t></a:r></a:p></p:txBody></p:sp>`
		}
		return s + `</p:spTree></p:cSld></p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml":  slide("Quarterly Review"),
		"ppt/slides/slide2.xml":  slide("Budget", "Costs went down."),
		"ppt/slides/slide10.xml": slide("Next Steps"),
	})
	doc, err := ParsePptx(context.Background(), "deck.pptx", data)
	if err != nil {
		t.Fatalf("ParsePptx: %v", err)
	}
	if doc.Outline.Title != "Quarterly Review" {
		t.Fatalf("title: got %q", doc.Outline.Title)
	}
	want := []domain.Heading{
		{Text: "Budget", Level: domain.LevelH1, Page: 1},
		{Text: "Next Steps", Level: domain.LevelH1, Page: 2},
	}
	if !reflect.DeepEqual(doc.Outline.Headings, want) {
		t.Fatalf("headings: got %#v", doc.Outline.Headings)
	}
}

func TestDocumentFromDocAI(t *testing.T) {
	doc := documentFromDocAI(&gcp.DocAIResult{Pages: []gcp.DocAIPage{
		{Number: 1, Paragraphs: []string{"ANNUAL REPORT", "Revenue grew this year."}},
		{Number: 2, Paragraphs: []string{"2.1 Outlook", "We expect growth.", "ANNUAL REPORT"}},
	}})
	if doc.Outline.Title != "ANNUAL REPORT" {
		t.Fatalf("title: got %q", doc.Outline.Title)
	}
	want := []domain.Heading{{Text: "2.1 Outlook", Level: domain.LevelH2, Page: 1}}
	if !reflect.DeepEqual(doc.Outline.Headings, want) {
		t.Fatalf("headings: got %#v", doc.Outline.Headings)
	}
	if doc.Pages[1] != "2.1 Outlook\n\nWe expect growth.\n\nANNUAL REPORT" {
		t.Fatalf("page text: %q", doc.Pages[1])
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(logger.NewNop(), nil)
	if r.Supports("a.pdf") {
		t.Fatalf("pdf should not be registered without a backend")
	}
	if !r.Supports("A.MD") {
		t.Fatalf("markdown should be supported case-insensitively")
	}
	_, err := r.Parse(context.Background(), "a.exe", []byte("x"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("want ErrUnsupported, got %v", err)
	}

	r.Register(".fake", ProviderFunc(func(_ context.Context, _ string, _ []byte) (*domain.Document, error) {
		return &domain.Document{
			Outline: domain.Outline{Title: "  T  ", Headings: []domain.Heading{
				{Text: "ok", Level: domain.LevelH1, Page: 0},
				{Text: " ", Level: domain.LevelH1, Page: 0},
				{Text: "past end", Level: domain.LevelH2, Page: 4},
			}},
			Pages: []string{"ok"},
		}, nil
	}))
	doc, err := r.Parse(context.Background(), "x.fake", nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Name != "x.fake" || doc.Outline.Document != "x.fake" || doc.Outline.Title != "T" {
		t.Fatalf("finalize: %#v", doc.Outline)
	}
	if len(doc.Outline.Headings) != 1 || doc.Outline.Headings[0].Text != "ok" {
		t.Fatalf("headings: %#v", doc.Outline.Headings)
	}
}
