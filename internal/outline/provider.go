// Package outline turns uploaded documents into a title, an ordered list of
// headings and page-indexed text. Each file type has its own backend; the
// Registry dispatches on the file extension.
package outline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

var ErrUnsupported = errors.New("unsupported document type")

type Provider interface {
	Parse(ctx context.Context, name string, data []byte) (*domain.Document, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, name string, data []byte) (*domain.Document, error)

func (f ProviderFunc) Parse(ctx context.Context, name string, data []byte) (*domain.Document, error) {
	return f(ctx, name, data)
}

type Registry struct {
	log   *logger.Logger
	byExt map[string]Provider
}

// NewRegistry returns a registry with the built-in local backends.
func NewRegistry(log *logger.Logger, pdf Provider) *Registry {
	r := &Registry{log: log.With("service", "OutlineRegistry"), byExt: map[string]Provider{}}
	if pdf != nil {
		r.Register(".pdf", pdf)
	}
	r.Register(".docx", ProviderFunc(ParseDocx))
	r.Register(".pptx", ProviderFunc(ParsePptx))
	r.Register(".md", ProviderFunc(ParseMarkdown))
	r.Register(".markdown", ProviderFunc(ParseMarkdown))
	r.Register(".html", ProviderFunc(ParseHTML))
	r.Register(".htm", ProviderFunc(ParseHTML))
	r.Register(".txt", ProviderFunc(ParseText))
	return r
}

func (r *Registry) Register(ext string, p Provider) {
	r.byExt[strings.ToLower(ext)] = p
}

func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions lists the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Parse(ctx context.Context, name string, data []byte) (*domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	p, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	doc, err := p.Parse(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	finalize(doc, name)
	r.log.Debug("Parsed document", "document", name, "pages", len(doc.Pages), "headings", len(doc.Outline.Headings))
	return doc, nil
}

// finalize fills the document name and drops headings that point past the
// last page or carry no text.
func finalize(doc *domain.Document, name string) {
	doc.Name = name
	doc.Outline.Document = name
	doc.Outline.Title = strings.TrimSpace(doc.Outline.Title)
	kept := doc.Outline.Headings[:0]
	for _, h := range doc.Outline.Headings {
		h.Text = strings.TrimSpace(h.Text)
		if h.Text == "" || h.Page < 0 || (len(doc.Pages) > 0 && h.Page >= len(doc.Pages)) {
			continue
		}
		kept = append(kept, h)
	}
	doc.Outline.Headings = kept
}
