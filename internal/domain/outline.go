package domain

import (
	"fmt"
	"strings"
)

type Level string

const (
	LevelTitle Level = "TITLE"
	LevelH1    Level = "H1"
	LevelH2    Level = "H2"
	LevelH3    Level = "H3"
	LevelH4    Level = "H4"
)

// ParseLevel normalizes "h2", "H2", "2" and "title". Unknown input is
// returned upper-cased so it still round-trips.
func ParseLevel(s string) Level {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "1", "2", "3", "4":
		return Level("H" + v)
	}
	return Level(v)
}

type Heading struct {
	Text  string `json:"text"`
	Level Level  `json:"level"`
	Page  int    `json:"page"`
}

type Outline struct {
	Document string    `json:"document"`
	Title    string    `json:"title"`
	Headings []Heading `json:"outline"`
}

// Document is one parsed upload: its outline plus page-indexed text.
// Pages are zero-based to match Heading.Page.
type Document struct {
	Name    string   `json:"name"`
	Outline Outline  `json:"outline"`
	Pages   []string `json:"-"`
}

func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// PageText returns the text of page n.
func (d *Document) PageText(n int) (string, error) {
	if d == nil {
		return "", fmt.Errorf("nil document")
	}
	if n < 0 || n >= len(d.Pages) {
		return "", fmt.Errorf("document %q: page %d out of range (pages=%d)", d.Name, n, len(d.Pages))
	}
	return d.Pages[n], nil
}
