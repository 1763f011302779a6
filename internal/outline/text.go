package outline

import (
	"context"
	"unicode/utf8"

	"github.com/yungbote/docinsight-backend/internal/domain"
)

// ParseText handles plain text. Form feeds separate pages.
func ParseText(_ context.Context, _ string, data []byte) (*domain.Document, error) {
	if !utf8.Valid(data) {
		return nil, errInvalidUTF8
	}
	pages := splitPages(string(data))
	return &domain.Document{Outline: outlineFromLines(pages), Pages: pages}, nil
}
