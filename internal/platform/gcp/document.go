package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/docinsight-backend/internal/platform/ctxutil"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

type Document interface {
	ProcessBytes(ctx context.Context, req DocAIProcessBytesRequest) (*DocAIResult, error)
	Close() error
}

type DocAIProcessBytesRequest struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	MimeType         string
	Data             []byte
}

// DocAIPage holds the paragraph texts of one page in reading order.
// Number is 1-based as reported by Document AI.
type DocAIPage struct {
	Number     int      `json:"number"`
	Paragraphs []string `json:"paragraphs"`
}

type DocAIResult struct {
	Provider    string      `json:"provider"`
	Processor   string      `json:"processor"`
	MimeType    string      `json:"mime_type"`
	PrimaryText string      `json:"primary_text"`
	Pages       []DocAIPage `json:"pages,omitempty"`
}

type documentService struct {
	log       *logger.Logger
	docClient *documentai.DocumentProcessorClient
	timeout   time.Duration
}

func NewDocument(ctx context.Context, log *logger.Logger, location string, timeout time.Duration) (Document, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Document")

	location = strings.TrimSpace(location)
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	slog.Info("Document AI initialized", "endpoint", endpoint)
	return &documentService{log: slog, docClient: c, timeout: timeout}, nil
}

func (s *documentService) Close() error {
	if s == nil || s.docClient == nil {
		return nil
	}
	return s.docClient.Close()
}

func (s *documentService) ProcessBytes(ctx context.Context, req DocAIProcessBytesRequest) (*DocAIResult, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if req.MimeType == "" {
		req.MimeType = "application/pdf"
	}
	name := processorName(req.ProjectID, req.Location, req.ProcessorID, req.ProcessorVersion)
	if name == "" {
		return nil, fmt.Errorf("documentai processor not configured")
	}
	if len(req.Data) == 0 {
		return &DocAIResult{Provider: "gcp_documentai", Processor: name, MimeType: req.MimeType}, nil
	}

	resp, err := s.docClient.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: req.Data, MimeType: req.MimeType},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return &DocAIResult{Provider: "gcp_documentai", Processor: name, MimeType: req.MimeType}, nil
	}
	return BuildDocAIResult(resp.Document, name, req.MimeType), nil
}

// BuildDocAIResult flattens a processed document into per-page paragraphs.
// When a processor fills doc.Text without page layout, the whole text is
// returned as a single page.
func BuildDocAIResult(doc *documentaipb.Document, processor, mimeType string) *DocAIResult {
	out := &DocAIResult{Provider: "gcp_documentai", Processor: processor, MimeType: mimeType}
	if doc == nil {
		return out
	}
	out.PrimaryText = strings.TrimSpace(doc.Text)

	for i, p := range doc.Pages {
		if p == nil {
			continue
		}
		num := int(p.PageNumber)
		if num <= 0 {
			num = i + 1
		}
		page := DocAIPage{Number: num}
		for _, para := range p.Paragraphs {
			if para == nil || para.Layout == nil || para.Layout.TextAnchor == nil {
				continue
			}
			t := collapseWhitespace(textFromAnchor(doc.Text, para.Layout.TextAnchor))
			if t != "" {
				page.Paragraphs = append(page.Paragraphs, t)
			}
		}
		out.Pages = append(out.Pages, page)
	}

	if len(out.Pages) == 0 && out.PrimaryText != "" {
		out.Pages = []DocAIPage{{Number: 1, Paragraphs: []string{out.PrimaryText}}}
	}
	return out
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func processorName(project, location, processorID, version string) string {
	project = strings.TrimSpace(project)
	location = strings.TrimSpace(location)
	processorID = strings.TrimSpace(processorID)
	version = strings.TrimSpace(version)

	if project == "" || location == "" || processorID == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}
