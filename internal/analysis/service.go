// Package analysis orchestrates an analysis run: store uploads, parse,
// rank, extract snippets, enrich and persist. It also serves the follow-up
// operations on a stored session (chat, translation, podcast).
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/filestore"
	"github.com/yungbote/docinsight-backend/internal/insights"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/platform/apierr"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/session"
	"github.com/yungbote/docinsight-backend/internal/speech"
)

const timestampLayout = "2006-01-02T15:04:05"

type AnalyzeRequest struct {
	UserID    string
	Intent    domain.Intent
	SessionID string
	Language  string
	Files     []Upload
}

type AnalyzeResponse struct {
	SessionID string                 `json:"sessionId"`
	Analysis  *domain.AnalysisResult `json:"analysis"`
}

// TranslateResult carries either the translated lists or, when the stored
// insights have no text, a message.
type TranslateResult struct {
	TranslatedInsights map[string][]string `json:"translated_insights,omitempty"`
	Message            string              `json:"message,omitempty"`
}

type Podcast struct {
	Audio    []byte
	Filename string
}

type Deps struct {
	Log         *logger.Logger
	Parser      Parser
	Pipeline    *Pipeline
	Insights    *insights.Service
	Sessions    *session.Store
	Files       filestore.Store
	Speech      speech.Synthesizer
	MaxParallel int
}

type Service struct {
	log         *logger.Logger
	parser      Parser
	pipeline    *Pipeline
	insights    *insights.Service
	sessions    *session.Store
	files       filestore.Store
	speech      speech.Synthesizer
	maxParallel int
	now         func() time.Time
	newID       func() string
}

func NewService(d Deps) *Service {
	sp := d.Speech
	if sp == nil {
		sp = speech.None{}
	}
	return &Service{
		log:         d.Log.With("service", "AnalysisService"),
		parser:      d.Parser,
		pipeline:    d.Pipeline,
		insights:    d.Insights,
		sessions:    d.Sessions,
		files:       d.Files,
		speech:      sp,
		maxParallel: d.MaxParallel,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Analyze runs the full pipeline. With a SessionID owned by the caller the
// session is updated in place, otherwise a new one is created.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	intent := domain.Intent{
		Persona:     strings.TrimSpace(req.Intent.Persona),
		JobToBeDone: strings.TrimSpace(req.Intent.JobToBeDone),
	}
	if !intent.Valid() {
		return nil, apierr.BadRequest("invalid_intent", errors.New("persona and job_to_be_done are required"))
	}
	if len(req.Files) == 0 {
		return nil, apierr.BadRequest("no_files", errors.New("at least one file is required"))
	}
	uploads := Supported(s.parser, req.Files)
	if len(uploads) == 0 {
		return nil, apierr.BadRequest("unsupported_files", errors.New("no supported document in upload"))
	}

	mode := "create"
	sessionID := strings.TrimSpace(req.SessionID)
	var prev *domain.Session
	if sessionID != "" {
		sess, err := s.ownedSession(ctx, req.UserID, sessionID)
		if err != nil {
			return nil, err
		}
		prev = sess
		mode = "update"
	} else {
		sessionID = s.newID()
	}

	filePaths, err := s.storeFiles(ctx, sessionID, uploads)
	if err != nil {
		return nil, err
	}

	docs := ParseAll(ctx, s.log, s.parser, uploads, s.maxParallel, nil)
	if len(docs) == 0 {
		return nil, apierr.BadRequest("unparseable_files", errors.New("none of the uploaded documents could be parsed"))
	}

	ranked, err := s.pipeline.Run(ctx, intent, docs)
	if err != nil {
		return nil, fmt.Errorf("rank sections: %w", err)
	}

	var prevSummaries map[string]string
	if prev != nil {
		prevSummaries = prev.Analysis.DocumentSummaries
	}
	ictx, span := observability.StartSpan(ctx, "analysis.insights", attribute.String("mode", mode))
	in, degraded := s.insights.Synthesize(ictx, intent, ranked.Sections, ranked.Subsections, sources(docs, prevSummaries))
	span.SetAttributes(attribute.Bool("degraded", degraded))
	span.End()

	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if lang == "" {
		lang = "en"
	}
	result := &domain.AnalysisResult{
		Metadata: domain.AnalysisMetadata{
			InputDocuments:      documentNames(docs),
			Persona:             intent.Persona,
			JobToBeDone:         intent.JobToBeDone,
			ProcessingTimestamp: s.now().UTC().Format(timestampLayout),
			FilePaths:           filePaths,
			Language:            lang,
			UserID:              req.UserID,
		},
		TopSections:        ranked.Sections,
		SubsectionAnalysis: ranked.Subsections,
		LLMInsights:        in,
		DocumentSummaries:  mergeSummaries(prevSummaries, insights.DocumentSummaries(ranked.Subsections)),
	}
	if result.TopSections == nil {
		result.TopSections = []domain.RankedSection{}
	}

	if prev != nil {
		err = s.sessions.Update(ctx, sessionID, result)
	} else {
		err = s.sessions.CreateWithID(ctx, sessionID, result, req.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	observability.Current().ObserveAnalysis(mode, degraded)
	s.log.Info("Analysis complete",
		"session_id", sessionID,
		"mode", mode,
		"documents", len(docs),
		"sections", len(result.TopSections),
		"degraded", degraded,
	)
	return &AnalyzeResponse{SessionID: sessionID, Analysis: result}, nil
}

func (s *Service) storeFiles(ctx context.Context, sessionID string, uploads []Upload) ([]string, error) {
	paths := make([]string, 0, len(uploads))
	for _, up := range uploads {
		key, err := filestore.Key(sessionID, up.Name)
		if err != nil {
			return nil, apierr.BadRequest("invalid_file_name", err)
		}
		p, err := s.files.Put(ctx, key, bytes.NewReader(up.Data))
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", up.Name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// ownedSession loads a session and checks that userID owns it.
func (s *Service) ownedSession(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, apierr.NotFound("session_not_found", errors.New("Session not found"))
	}
	if err != nil {
		return nil, err
	}
	owner := sess.Metadata.UserID
	if owner == "" {
		owner = sess.Analysis.Metadata.UserID
	}
	if owner != userID {
		return nil, apierr.Forbidden("forbidden", errors.New("Not authorized to access this session"))
	}
	return sess, nil
}

// Chat appends the user's query, asks the model and appends its answer.
func (s *Service) Chat(ctx context.Context, userID, sessionID, query string) (*domain.ChatMessage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apierr.BadRequest("empty_query", errors.New("query is required"))
	}
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	userMsg := domain.ChatMessage{Role: domain.RoleUser, Content: query}
	if err := s.sessions.AppendMessage(ctx, sessionID, userMsg); err != nil {
		return nil, err
	}
	history := append(sess.ChatHistory, userMsg)

	answer, err := s.insights.Answer(ctx, &sess.Analysis, history, query)
	if err != nil {
		return nil, err
	}
	botMsg := domain.ChatMessage{Role: domain.RoleBot, Content: answer}
	if err := s.sessions.AppendMessage(ctx, sessionID, botMsg); err != nil {
		return nil, err
	}
	return &botMsg, nil
}

func (s *Service) Sessions(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	return s.sessions.ListForUser(ctx, userID)
}

func (s *Service) Session(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	return s.ownedSession(ctx, userID, sessionID)
}

// TranslateInsights translates the stored insights of a session.
func (s *Service) TranslateInsights(ctx context.Context, userID, sessionID, lang string) (*TranslateResult, error) {
	if strings.TrimSpace(lang) == "" {
		lang = insights.DefaultTranslateLanguage
	}
	if !insights.SupportedLanguage(lang) {
		return nil, apierr.Newf(http.StatusBadRequest, "unsupported_language", "Unsupported language '%s'", lang)
	}
	sess, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	in := sess.Analysis.LLMInsights
	if in.KeyInsights == nil && in.DidYouKnow == nil && in.CrossDocumentConnections == nil {
		return nil, apierr.BadRequest("no_insights", insights.ErrNoInsights)
	}
	out, err := s.insights.Translate(ctx, in, lang)
	if errors.Is(err, insights.ErrNothingToTranslate) {
		return &TranslateResult{Message: "No text found in insights to translate."}, nil
	}
	if err != nil {
		return nil, err
	}
	return &TranslateResult{TranslatedInsights: out}, nil
}

// GeneratePodcast scripts, translates when needed, and voices the insights
// of an analysis.
func (s *Service) GeneratePodcast(ctx context.Context, analysis *domain.AnalysisResult, lang string) (*Podcast, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = "en"
	}
	if !insights.SupportedLanguage(lang) {
		return nil, apierr.Newf(http.StatusBadRequest, "unsupported_language", "Unsupported language '%s'", lang)
	}
	script, err := s.insights.PodcastScript(ctx, analysis)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(script) == "" {
		return nil, apierr.New(http.StatusInternalServerError, "podcast_script_failed", errors.New("Failed to generate podcast script"))
	}
	if lang != "en" {
		script, err = s.insights.TranslateText(ctx, script, lang)
		if err != nil {
			return nil, err
		}
		if script == "" {
			return nil, apierr.New(http.StatusInternalServerError, "translation_failed", errors.New("Failed to translate script"))
		}
	}
	audio, err := s.speech.Synthesize(ctx, script, lang)
	if errors.Is(err, speech.ErrDisabled) {
		return nil, apierr.New(http.StatusServiceUnavailable, "tts_unavailable", err)
	}
	if err != nil {
		s.log.Error("Speech synthesis failed", "error", err)
		return nil, apierr.New(http.StatusInternalServerError, "tts_failed", errors.New("Failed to synthesize audio"))
	}
	return &Podcast{Audio: audio, Filename: fmt.Sprintf("podcast_summary_%s.mp3", lang)}, nil
}

func (s *Service) SelectionInsights(ctx context.Context, text string) (*insights.SelectionInsights, error) {
	out, err := s.insights.Selection(ctx, text)
	if errors.Is(err, insights.ErrEmptyQuery) {
		return nil, apierr.BadRequest("empty_text", errors.New("text is required"))
	}
	return out, err
}

func sources(docs []*domain.Document, summaries map[string]string) []insights.Source {
	out := make([]insights.Source, 0, len(docs))
	for _, d := range docs {
		if sum, ok := summaries[d.Name]; ok && strings.TrimSpace(sum) != "" {
			out = append(out, insights.Source{Document: d.Name, Summary: sum})
			continue
		}
		out = append(out, insights.Source{Document: d.Name, Text: strings.Join(d.Pages, "\n\n")})
	}
	return out
}

func documentNames(docs []*domain.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Name)
	}
	return out
}

func mergeSummaries(prev, next map[string]string) map[string]string {
	if len(prev) == 0 && len(next) == 0 {
		return nil
	}
	out := make(map[string]string, len(prev)+len(next))
	for k, v := range prev {
		out[k] = v
	}
	for k, v := range next {
		out[k] = v
	}
	return out
}
