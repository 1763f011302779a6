package outline

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yungbote/docinsight-backend/internal/domain"
)

const htmlBlocks = "h1, h2, h3, h4, p, li, pre, blockquote, td, hr"

// ParseHTML walks block elements in document order. <hr> starts a new page.
// The title comes from <title>, falling back to the first <h1>.
func ParseHTML(_ context.Context, _ string, data []byte) (*domain.Document, error) {
	gq, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	gq.Find("script, style, noscript, nav").Remove()

	var (
		doc        domain.Document
		paragraphs []string
	)
	title := collapse(gq.Find("head > title").First().Text())
	titleFromH1 := title == ""

	flush := func() {
		doc.Pages = append(doc.Pages, strings.Join(paragraphs, "\n\n"))
		paragraphs = nil
	}
	gq.Find(htmlBlocks).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag == "hr" {
			flush()
			return
		}
		// nested blocks (p inside li, etc.) are collected through their parent
		if tag != "li" && tag != "td" && s.ParentsFiltered("li, td, blockquote").Length() > 0 {
			return
		}
		text := collapse(s.Text())
		if text == "" {
			return
		}
		paragraphs = append(paragraphs, text)
		if len(tag) == 2 && tag[0] == 'h' {
			depth := int(tag[1] - '0')
			if depth == 1 && titleFromH1 && title == "" {
				title = text
				return
			}
			doc.Outline.Headings = append(doc.Outline.Headings, domain.Heading{
				Text:  text,
				Level: levelForDepth(depth),
				Page:  len(doc.Pages),
			})
		}
	})
	flush()
	doc.Outline.Title = title
	return &doc, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}
