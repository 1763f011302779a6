package outline

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/yungbote/docinsight-backend/internal/domain"
)

var (
	headingNumPrefix = regexp.MustCompile(`^((\d+)(\.\d+)*\.?|[IVX]+\.?)\s+\S`)
	pageSplit        = regexp.MustCompile(`\f`)
	paragraphSplit   = regexp.MustCompile(`\n[ \t]*\n`)
)

// looksLikeHeading is a line-level guess for sources without style
// information (plain text, pdftotext output, OCR paragraphs).
func looksLikeHeading(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 4 || len(line) > 80 {
		return false
	}
	if strings.HasSuffix(line, ".") && len(line) < 10 {
		return false
	}
	upper, letters := 0, 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return false
	}
	if upper > 0 && float64(upper)/float64(letters) >= 0.6 {
		return true
	}
	if headingNumPrefix.MatchString(line) {
		return true
	}
	return isTitleCase(line)
}

var minorWords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "by": true, "for": true,
	"in": true, "of": true, "on": true, "or": true, "the": true, "to": true, "with": true,
}

// isTitleCase accepts short lines where every significant word starts upper-case
// and the line does not end like a sentence.
func isTitleCase(line string) bool {
	if strings.ContainsAny(line[len(line)-1:], ".,;:!?") {
		return false
	}
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	for i, w := range words {
		r := []rune(w)
		if !unicode.IsLetter(r[0]) {
			if unicode.IsDigit(r[0]) {
				continue
			}
			return false
		}
		if i > 0 && minorWords[strings.ToLower(w)] {
			continue
		}
		if !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

// guessLevel maps a heading-like line to H1..H4. Numbered prefixes follow
// their depth; all-caps lines are top level; anything else is H2.
func guessLevel(line string) domain.Level {
	line = strings.TrimSpace(line)
	if m := headingNumPrefix.FindStringSubmatch(line); m != nil && m[2] != "" {
		depth := strings.Count(strings.TrimSuffix(m[1], "."), ".") + 1
		switch {
		case depth <= 1:
			return domain.LevelH1
		case depth == 2:
			return domain.LevelH2
		case depth == 3:
			return domain.LevelH3
		default:
			return domain.LevelH4
		}
	}
	upper, letters := 0, 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 0 && upper == letters {
		return domain.LevelH1
	}
	return domain.LevelH2
}

// splitPages splits extracted text on form feeds. A trailing empty page
// (pdftotext ends output with \f) is dropped.
func splitPages(text string) []string {
	pages := pageSplit.Split(text, -1)
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}

// SplitParagraphs splits page text on blank-line boundaries, trimming each
// paragraph and dropping empty ones.
func SplitParagraphs(page string) []string {
	page = strings.ReplaceAll(page, "\r\n", "\n")
	raw := paragraphSplit.Split(page, -1)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// outlineFromLines scans page text line by line. The first heading-like line
// on page 0 becomes the title; later heading-like lines become headings.
// Repeated lines (running headers and footers) are kept only once.
func outlineFromLines(pages []string) domain.Outline {
	var out domain.Outline
	seen := map[string]bool{}
	for pageNum, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.Join(strings.Fields(line), " ")
			if !looksLikeHeading(line) {
				continue
			}
			key := strings.ToLower(line)
			if seen[key] {
				continue
			}
			seen[key] = true
			if out.Title == "" && pageNum == 0 && len(out.Headings) == 0 {
				out.Title = line
				continue
			}
			out.Headings = append(out.Headings, domain.Heading{Text: line, Level: guessLevel(line), Page: pageNum})
		}
	}
	return out
}
