package outline

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/yungbote/docinsight-backend/internal/domain"
)

type docxParagraph struct {
	Style     string
	Text      string
	PageBreak bool // a page break occurs before this paragraph
}

// ParseDocx reads word/document.xml. Heading1-4 and Title paragraph styles
// drive the outline; explicit and rendered page breaks drive pagination.
func ParseDocx(_ context.Context, _ string, data []byte) (*domain.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	body, err := readZipFile(zr.File, "word/document.xml")
	if err != nil {
		return nil, err
	}

	var (
		doc   domain.Document
		paras []string
	)
	for _, p := range extractDocxParagraphs(body) {
		if p.PageBreak {
			doc.Pages = append(doc.Pages, strings.Join(paras, "\n\n"))
			paras = nil
		}
		if p.Text == "" {
			continue
		}
		paras = append(paras, p.Text)
		style := strings.ToLower(p.Style)
		switch {
		case style == "title":
			if doc.Outline.Title == "" {
				doc.Outline.Title = p.Text
			}
		case strings.HasPrefix(style, "heading"):
			depth, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(style, "heading")))
			if err != nil || depth < 1 {
				depth = 1
			}
			doc.Outline.Headings = append(doc.Outline.Headings, domain.Heading{
				Text:  p.Text,
				Level: levelForDepth(depth),
				Page:  len(doc.Pages),
			})
		}
	}
	doc.Pages = append(doc.Pages, strings.Join(paras, "\n\n"))
	return &doc, nil
}

// ParsePptx treats every slide as a page whose first text run is an H1.
func ParsePptx(_ context.Context, _ string, data []byte) (*domain.Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}
	slides := findZipFiles(zr.File, "ppt/slides/slide", ".xml")
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i]) < slideNumber(slides[j]) })

	var doc domain.Document
	for i, name := range slides {
		raw, err := readZipFile(zr.File, name)
		if err != nil {
			return nil, err
		}
		runs := extractRuns(raw)
		doc.Pages = append(doc.Pages, strings.Join(runs, "\n\n"))
		if len(runs) == 0 {
			continue
		}
		if i == 0 && doc.Outline.Title == "" {
			doc.Outline.Title = runs[0]
			continue
		}
		doc.Outline.Headings = append(doc.Outline.Headings, domain.Heading{Text: runs[0], Level: domain.LevelH1, Page: i})
	}
	return &doc, nil
}

func slideNumber(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(name), "ppt/slides/slide"), ".xml")
	n, err := strconv.Atoi(base)
	if err != nil {
		return 1 << 30
	}
	return n
}

func readZipFile(files []*zip.File, target string) ([]byte, error) {
	for _, f := range files {
		if f != nil && strings.EqualFold(f.Name, target) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("archive entry not found: %s", target)
}

func findZipFiles(files []*zip.File, prefix, suffix string) []string {
	var out []string
	for _, f := range files {
		if f == nil {
			continue
		}
		name := strings.ToLower(f.Name)
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			out = append(out, f.Name)
		}
	}
	return out
}

func extractDocxParagraphs(body []byte) []docxParagraph {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		inParagraph bool
		inText      bool
		pendingBrk  bool
		cur         docxParagraph
		text        strings.Builder
		out         []docxParagraph
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				cur = docxParagraph{PageBreak: pendingBrk}
				pendingBrk = false
				text.Reset()
			case "pStyle":
				if inParagraph {
					cur.Style = strings.TrimSpace(attr(t, "val"))
				}
			case "br":
				if inParagraph && attr(t, "type") == "page" {
					pendingBrk = true
				}
			case "lastRenderedPageBreak":
				if inParagraph && text.Len() == 0 {
					cur.PageBreak = true
				}
			case "tab":
				if inParagraph {
					text.WriteString(" ")
				}
			case "t":
				inText = inParagraph
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					cur.Text = strings.TrimSpace(text.String())
					out = append(out, cur)
				}
				inParagraph = false
			}
		}
	}
}

// extractRuns returns the non-empty a:t runs of a slide, one per paragraph.
func extractRuns(body []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		inText bool
		para   strings.Builder
		out    []string
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(para.String()); s != "" {
					out = append(out, s)
				}
				para.Reset()
			}
		}
	}
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}
