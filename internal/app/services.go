package app

import (
	"strings"

	"github.com/yungbote/docinsight-backend/internal/analysis"
	"github.com/yungbote/docinsight-backend/internal/auth"
	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/insights"
	"github.com/yungbote/docinsight-backend/internal/keywords"
	"github.com/yungbote/docinsight-backend/internal/llm"
	"github.com/yungbote/docinsight-backend/internal/outline"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/ranking"
	"github.com/yungbote/docinsight-backend/internal/session"
	"github.com/yungbote/docinsight-backend/internal/snippet"
)

type Services struct {
	Auth     *auth.Service
	Analysis *analysis.Service
}

func wireServices(log *logger.Logger, cfg *config.Config, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	model := llm.NewGeminiClient(log, cfg.Model, nil)
	if !model.Configured() {
		log.Warn("GEMINI_API_KEY is not set; model-backed endpoints will fail until it is")
	}

	hasher := auth.BcryptHasher{}
	users := session.NewUserStore(clients.Redis, hasher)
	authService, err := auth.NewService(log, users, hasher, cfg.Auth)
	if err != nil {
		return Services{}, err
	}

	registry := outline.NewRegistry(log, clients.pdfProvider(cfg.Outline))
	extractor := keywords.NewExtractor(log, KeywordAnalyzer(cfg.Ranking.KeywordAnalyzer))
	ranker := ranking.NewRanker(log, extractor, ranking.NewScorer(clients.Embedder), cfg.Ranking.TopN)

	analysisService := analysis.NewService(analysis.Deps{
		Log:    log,
		Parser: registry,
		Pipeline: &analysis.Pipeline{
			Ranker:   ranker,
			Snippets: snippet.NewExtractor(log, cfg.Ranking.SnippetLimit, cfg.Ranking.MaxSnippetChars),
		},
		Insights:    insights.NewService(log, model, cfg.Model),
		Sessions:    session.NewStore(log, clients.Redis),
		Files:       clients.Files,
		Speech:      clients.Speech,
		MaxParallel: cfg.Outline.MaxParallel,
	})

	return Services{Auth: authService, Analysis: analysisService}, nil
}

// KeywordAnalyzer maps the configured analyzer name to an implementation.
func KeywordAnalyzer(name string) keywords.Analyzer {
	if strings.EqualFold(strings.TrimSpace(name), "none") {
		return keywords.None{}
	}
	return keywords.NewProseAnalyzer()
}
