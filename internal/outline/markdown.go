package outline

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/docinsight-backend/internal/domain"
)

var errInvalidUTF8 = errors.New("document is not valid UTF-8 text")

// ParseMarkdown reads ATX headings (# .. ####). A "---" line or a form feed
// starts a new page. The first level-1 heading is the title.
func ParseMarkdown(_ context.Context, _ string, data []byte) (*domain.Document, error) {
	if !utf8.Valid(data) {
		return nil, errInvalidUTF8
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var (
		doc     domain.Document
		page    strings.Builder
		inFence bool
	)
	flush := func() {
		doc.Pages = append(doc.Pages, page.String())
		page.Reset()
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}
		if !inFence && (trimmed == "---" || strings.Contains(line, "\f")) {
			before, after, _ := strings.Cut(line, "\f")
			if trimmed != "---" {
				page.WriteString(before)
			}
			flush()
			if trimmed != "---" {
				page.WriteString(after)
				page.WriteString("\n")
			}
			continue
		}
		if !inFence {
			if lvl, heading, ok := atxHeading(trimmed); ok {
				pageNum := len(doc.Pages)
				if lvl == 1 && doc.Outline.Title == "" {
					doc.Outline.Title = heading
				} else {
					doc.Outline.Headings = append(doc.Outline.Headings, domain.Heading{
						Text:  heading,
						Level: levelForDepth(lvl),
						Page:  pageNum,
					})
				}
				// headings stand alone as paragraphs so snippet lookup can find them
				page.WriteString("\n" + heading + "\n\n")
				continue
			}
		}
		page.WriteString(line)
		page.WriteString("\n")
	}
	flush()
	return &doc, nil
}

func atxHeading(line string) (int, string, bool) {
	if !strings.HasPrefix(line, "#") {
		return 0, "", false
	}
	depth := 0
	for depth < len(line) && line[depth] == '#' {
		depth++
	}
	if depth > 6 || depth >= len(line) || line[depth] != ' ' {
		return 0, "", false
	}
	text := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(line[depth:]), "#"))
	if text == "" {
		return 0, "", false
	}
	return depth, text, true
}

func levelForDepth(depth int) domain.Level {
	switch depth {
	case 1:
		return domain.LevelH1
	case 2:
		return domain.LevelH2
	case 3:
		return domain.LevelH3
	default:
		return domain.LevelH4
	}
}
