package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

const (
	defaultOllamaModel = "nomic-embed-text:latest"
	defaultOllamaURL   = "http://localhost:11434"
)

// OllamaEmbedder runs embeddings on a local Ollama server.
type OllamaEmbedder struct {
	log   *logger.Logger
	model string
	llm   *ollama.LLM
}

func NewOllamaEmbedder(log *logger.Logger, cfg config.EmbeddingConfig) (*OllamaEmbedder, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOllamaModel
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}
	log.Info("Ollama embedder initialized", "model", model, "server", baseURL)
	return &OllamaEmbedder{log: log.With("service", "OllamaEmbedder"), model: model, llm: llm}, nil
}

func (o *OllamaEmbedder) Model() string { return "ollama:" + o.model }

func (o *OllamaEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	vecs, err := o.llm.CreateEmbedding(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}
	if len(vecs) != len(inputs) || hasMissingEmbeddings(vecs) {
		return nil, fmt.Errorf("ollama embeddings: requested=%d returned=%d", len(inputs), len(vecs))
	}
	return vecs, nil
}
