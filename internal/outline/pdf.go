package outline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/docinsight-backend/internal/domain"
)

// PDFToText shells out to poppler's pdftotext. Form feeds in its output
// separate pages; headings are recovered heuristically from line shape.
type PDFToText struct {
	Path    string
	Timeout time.Duration
}

func NewPDFToText(path string, timeout time.Duration) *PDFToText {
	if strings.TrimSpace(path) == "" {
		path = "pdftotext"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &PDFToText{Path: path, Timeout: timeout}
}

func (p *PDFToText) Parse(ctx context.Context, _ string, data []byte) (*domain.Document, error) {
	text, err := p.run(ctx, data)
	if err != nil {
		return nil, err
	}
	pages := splitPages(text)
	return &domain.Document{Outline: outlineFromLines(pages), Pages: pages}, nil
}

func (p *PDFToText) run(ctx context.Context, data []byte) (string, error) {
	bin, err := exec.LookPath(p.Path)
	if err != nil {
		return "", fmt.Errorf("pdftotext not found in PATH: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "docinsight_pdftotext_*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inPath := filepath.Join(tmpDir, "in.pdf")
	outPath := filepath.Join(tmpDir, "out.txt")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write temp pdf: %w", err)
	}

	cmd := exec.CommandContext(callCtx, bin, "-layout", "-enc", "UTF-8", "-q", inPath, outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("pdftotext failed: %w: %s", err, msg)
		}
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read pdftotext output: %w", err)
	}
	return string(out), nil
}
