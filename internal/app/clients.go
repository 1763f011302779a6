package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/embedding"
	"github.com/yungbote/docinsight-backend/internal/filestore"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/outline"
	"github.com/yungbote/docinsight-backend/internal/platform/gcp"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/platform/redisx"
	"github.com/yungbote/docinsight-backend/internal/speech"
)

// Clients holds every connection that needs closing on shutdown.
type Clients struct {
	Redis     *goredis.Client
	Files     filestore.Store
	FilesDir  string
	Document  gcp.Document
	Speech    speech.Synthesizer
	Embedder  embedding.Embedder
	embedStop io.Closer
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *config.Config) (c Clients, err error) {
	log.Info("Wiring clients...")
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// Redis
	c.Redis, err = redisx.Connect(ctx, log, cfg.Redis)
	observability.Current().SetRedisUp(err == nil)
	if err != nil {
		return c, fmt.Errorf("init redis: %w", err)
	}

	// Object storage
	c.Files, c.FilesDir, err = resolveFileStore(ctx, log, cfg.Storage)
	if err != nil {
		return c, err
	}

	// Document AI
	if strings.EqualFold(cfg.Outline.Backend, "docai") {
		c.Document, err = gcp.NewDocument(ctx, log, cfg.Outline.DocAI.Location, cfg.Outline.Timeout.Duration)
		if err != nil {
			return c, fmt.Errorf("init document ai client: %w", err)
		}
	}

	// Text-to-speech
	c.Speech, err = speech.New(ctx, log, cfg.Speech)
	if err != nil {
		return c, fmt.Errorf("init speech client: %w", err)
	}

	// Embeddings
	c.Embedder, c.embedStop, err = embedding.New(log, cfg.Embedding, c.Redis)
	if err != nil {
		return c, fmt.Errorf("init embedder: %w", err)
	}
	return c, nil
}

// pdfProvider returns the PDF outline backend for the configured mode.
func (c Clients) pdfProvider(cfg config.OutlineConfig) outline.Provider {
	if c.Document != nil {
		return outline.NewDocAIProvider(c.Document, cfg.DocAI)
	}
	return outline.NewPDFToText(cfg.PDFToTextPath, cfg.Timeout.Duration)
}

func (c Clients) Close() {
	if c.embedStop != nil {
		_ = c.embedStop.Close()
	}
	if c.Speech != nil {
		_ = c.Speech.Close()
	}
	if c.Document != nil {
		_ = c.Document.Close()
	}
	if c.Files != nil {
		_ = c.Files.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
