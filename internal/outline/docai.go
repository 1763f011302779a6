package outline

import (
	"context"
	"strings"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/platform/gcp"
)

// DocAIProvider parses PDFs through a Document AI processor. Paragraph boundaries
// come from the processor; heading detection reuses the line heuristics.
type DocAIProvider struct {
	client gcp.Document
	cfg    config.DocAIConfig
}

func NewDocAIProvider(client gcp.Document, cfg config.DocAIConfig) *DocAIProvider {
	return &DocAIProvider{client: client, cfg: cfg}
}

func (d *DocAIProvider) Parse(ctx context.Context, _ string, data []byte) (*domain.Document, error) {
	res, err := d.client.ProcessBytes(ctx, gcp.DocAIProcessBytesRequest{
		ProjectID:        d.cfg.ProjectID,
		Location:         d.cfg.Location,
		ProcessorID:      d.cfg.ProcessorID,
		ProcessorVersion: d.cfg.ProcessorVersion,
		MimeType:         "application/pdf",
		Data:             data,
	})
	if err != nil {
		return nil, err
	}
	return documentFromDocAI(res), nil
}

func documentFromDocAI(res *gcp.DocAIResult) *domain.Document {
	var doc domain.Document
	if res == nil {
		return &doc
	}
	seen := map[string]bool{}
	for i, page := range res.Pages {
		doc.Pages = append(doc.Pages, strings.Join(page.Paragraphs, "\n\n"))
		for _, para := range page.Paragraphs {
			if strings.Contains(para, "\n") || !looksLikeHeading(para) {
				continue
			}
			key := strings.ToLower(para)
			if seen[key] {
				continue
			}
			seen[key] = true
			if i == 0 && doc.Outline.Title == "" {
				doc.Outline.Title = para
				continue
			}
			doc.Outline.Headings = append(doc.Outline.Headings, domain.Heading{
				Text:  para,
				Level: guessLevel(para),
				Page:  i,
			})
		}
	}
	return &doc
}
