// Package insights turns ranked sections and document text into model
// generated enrichment: insights, translations, podcast scripts, selection
// analyses and chat answers. Every model call goes through llm.Client.
package insights

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/llm"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

const NoInsightsScript = "No insights were generated for this analysis."

var (
	ErrNoInsights         = errors.New("no insights found in this session to translate")
	ErrNothingToTranslate = errors.New("no text found in insights to translate")
	ErrEmptyQuery         = errors.New("query is empty")
)

type SelectionInsights struct {
	Summary            string   `json:"summary"`
	KeyTakeaways       []string `json:"key_takeaways"`
	PotentialQuestions []string `json:"potential_questions"`
}

type Service struct {
	log           *logger.Logger
	model         llm.Client
	enrichTimeout time.Duration
	chatTimeout   time.Duration
}

func NewService(log *logger.Logger, model llm.Client, cfg config.ModelConfig) *Service {
	enrich := cfg.EnrichTimeout.Duration
	if enrich <= 0 {
		enrich = llm.DefaultEnrichTimeout
	}
	chat := cfg.ChatTimeout.Duration
	if chat <= 0 {
		chat = llm.DefaultChatTimeout
	}
	return &Service{
		log:           log.With("service", "InsightsService"),
		model:         model,
		enrichTimeout: enrich,
		chatTimeout:   chat,
	}
}

// Synthesize never fails. A model error is logged and folded into a degraded
// Insights value; the bool reports whether that happened.
func (s *Service) Synthesize(ctx context.Context, intent domain.Intent, sections []domain.RankedSection, subsections []domain.SubsectionAnalysis, sources []Source) (domain.Insights, bool) {
	var out domain.Insights
	err := s.model.GenerateJSON(ctx, llm.Request{
		Prompt:  insightPrompt(intent, sections, subsections, sources),
		Schema:  insightSchema(),
		Timeout: s.enrichTimeout,
	}, &out)
	if err != nil {
		s.log.Warn("Insight synthesis failed; returning degraded insights", "error", err, "kind", llm.Kind(err))
		return domain.DegradedInsights(err), true
	}
	return out.Normalize(), false
}

// Translate translates the non-empty insight lists into lang, keyed by their
// JSON names.
func (s *Service) Translate(ctx context.Context, in domain.Insights, lang string) (map[string][]string, error) {
	name, err := LanguageName(lang)
	if err != nil {
		return nil, err
	}
	batch := nonEmptyLists(in)
	if len(batch) == 0 {
		return nil, ErrNothingToTranslate
	}
	prompt, err := translateBatchPrompt(name, batch)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(batch))
	for k := range batch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := map[string][]string{}
	if err := s.model.GenerateJSON(ctx, llm.Request{Prompt: prompt, Schema: objectOf(keys...), Timeout: s.chatTimeout}, &out); err != nil {
		return nil, fmt.Errorf("translate insights: %w", err)
	}
	return out, nil
}

func (s *Service) TranslateText(ctx context.Context, text, lang string) (string, error) {
	name, err := LanguageName(lang)
	if err != nil {
		return "", err
	}
	out, err := s.model.GenerateText(ctx, llm.Request{Prompt: translateTextPrompt(name, text), Timeout: s.chatTimeout})
	if err != nil {
		return "", fmt.Errorf("translate text: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// PodcastScript writes a narrated summary of the analysis insights.
func (s *Service) PodcastScript(ctx context.Context, analysis *domain.AnalysisResult) (string, error) {
	if analysis == nil || analysis.LLMInsights.Empty() {
		return NoInsightsScript, nil
	}
	prompt, err := podcastPrompt(analysis.Metadata, analysis.LLMInsights)
	if err != nil {
		return "", err
	}
	out, err := s.model.GenerateText(ctx, llm.Request{Prompt: prompt, Timeout: s.enrichTimeout})
	if err != nil {
		return "", fmt.Errorf("podcast script: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Selection analyzes a free-text selection. Unlike Synthesize it does not degrade.
func (s *Service) Selection(ctx context.Context, text string) (*SelectionInsights, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	schema := llm.Object(map[string]llm.Schema{
		"summary":             llm.String(),
		"key_takeaways":       llm.StringArray(),
		"potential_questions": llm.StringArray(),
	}, "summary", "key_takeaways", "potential_questions")

	var out SelectionInsights
	if err := s.model.GenerateJSON(ctx, llm.Request{Prompt: selectionPrompt(text), Schema: schema, Timeout: s.enrichTimeout}, &out); err != nil {
		return nil, fmt.Errorf("selection insights: %w", err)
	}
	if out.KeyTakeaways == nil {
		out.KeyTakeaways = []string{}
	}
	if out.PotentialQuestions == nil {
		out.PotentialQuestions = []string{}
	}
	return &out, nil
}

// Answer replies to the last user query given the stored analysis and history.
func (s *Service) Answer(ctx context.Context, analysis *domain.AnalysisResult, history []domain.ChatMessage, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	prompt, err := chatPrompt(analysis, history, query)
	if err != nil {
		return "", err
	}
	out, err := s.model.GenerateText(ctx, llm.Request{Prompt: prompt, Timeout: s.chatTimeout})
	if err != nil {
		return "", fmt.Errorf("chat answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// DocumentSummaries joins each document's snippets, in rank order, into a
// summary of at most MaxSummaryChars runes.
func DocumentSummaries(subs []domain.SubsectionAnalysis) map[string]string {
	parts := map[string][]string{}
	var order []string
	for _, sa := range subs {
		text := strings.TrimSpace(sa.RefinedText)
		if text == "" {
			continue
		}
		if _, ok := parts[sa.Document]; !ok {
			order = append(order, sa.Document)
		}
		parts[sa.Document] = append(parts[sa.Document], text)
	}
	out := make(map[string]string, len(order))
	for _, doc := range order {
		out[doc] = capRunes(strings.Join(parts[doc], "\n\n"), MaxSummaryChars)
	}
	return out
}

func nonEmptyLists(in domain.Insights) map[string][]string {
	out := map[string][]string{}
	if len(in.KeyInsights) > 0 {
		out["key_insights"] = in.KeyInsights
	}
	if len(in.DidYouKnow) > 0 {
		out["did_you_know"] = in.DidYouKnow
	}
	if len(in.CrossDocumentConnections) > 0 {
		out["cross_document_connections"] = in.CrossDocumentConnections
	}
	return out
}

func objectOf(keys ...string) llm.Schema {
	props := make(map[string]llm.Schema, len(keys))
	for _, k := range keys {
		props[k] = llm.StringArray()
	}
	return llm.Object(props, keys...)
}
