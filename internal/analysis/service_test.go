package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/embedding"
	"github.com/yungbote/docinsight-backend/internal/filestore"
	"github.com/yungbote/docinsight-backend/internal/insights"
	"github.com/yungbote/docinsight-backend/internal/keywords"
	"github.com/yungbote/docinsight-backend/internal/llm"
	"github.com/yungbote/docinsight-backend/internal/outline"
	"github.com/yungbote/docinsight-backend/internal/platform/apierr"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/ranking"
	"github.com/yungbote/docinsight-backend/internal/session"
	"github.com/yungbote/docinsight-backend/internal/snippet"
	"github.com/yungbote/docinsight-backend/internal/speech"
)

const menuDoc = `# Catering Guide

## Wine Pairing Appendix

Pair a light red with roasted mushrooms.

---

## Vegetarian Entrees

Our vegetarian entrees include falafel, hummus and grilled halloumi.
`

const financeDoc = `# Annual Report

## Quarterly Budget

Spending rose four percent.
`

type fixedAnalyzer keywords.Analysis

func (f fixedAnalyzer) Analyze(context.Context, string) (keywords.Analysis, error) {
	return keywords.Analysis(f), nil
}

type fakeModel struct {
	mu      sync.Mutex
	err     error
	prompts []string
}

func (f *fakeModel) record(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	return f.err
}

func (f *fakeModel) GenerateText(ctx context.Context, req llm.Request) (string, error) {
	if err := f.record(req.Prompt); err != nil {
		return "", err
	}
	switch {
	case strings.HasPrefix(req.Prompt, "Translate the following text"):
		return "नमस्ते श्रोताओं", nil
	case strings.HasPrefix(req.Prompt, "You are a podcast host"):
		return "Welcome to the show.", nil
	default:
		return "Try the falafel.", nil
	}
}

func (f *fakeModel) GenerateJSON(ctx context.Context, req llm.Request, out any) error {
	if err := f.record(req.Prompt); err != nil {
		return err
	}
	body := `{"key_insights":["Falafel is the crowd favourite."],"did_you_know":["Did you know halloumi grills well?"],"cross_document_connections":["No contradictions were found."]}`
	if strings.HasPrefix(req.Prompt, "Translate all the text values") {
		body = `{"key_insights":["फलाफल"],"did_you_know":["क्या आप जानते हैं?"],"cross_document_connections":["कोई विरोधाभास नहीं"]}`
	}
	return json.Unmarshal([]byte(body), out)
}

func (f *fakeModel) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeSpeech struct {
	text, lang string
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	f.text, f.lang = text, lang
	return []byte("ID3"), nil
}

func (f *fakeSpeech) Close() error { return nil }

type fixture struct {
	svc      *Service
	model    *fakeModel
	sessions *session.Store
	files    *filestore.LocalStore
	speech   *fakeSpeech
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	files, err := filestore.NewLocalStore(t.TempDir(), "/session_files")
	require.NoError(t, err)

	model := &fakeModel{}
	sp := &fakeSpeech{}
	extractor := keywords.NewExtractor(log, fixedAnalyzer{NounPhrases: []string{"dietitian", "vegetarian dinner"}})
	sessions := session.NewStore(log, rdb)
	svc := NewService(Deps{
		Log:    log,
		Parser: outline.NewRegistry(log, nil),
		Pipeline: &Pipeline{
			Ranker:   ranking.NewRanker(log, extractor, ranking.NewScorer(embedding.NewHashEmbedder(384)), 5),
			Snippets: snippet.NewExtractor(log, 5, 1000),
		},
		Insights:    insights.NewService(log, model, config.ModelConfig{}),
		Sessions:    sessions,
		Files:       files,
		Speech:      sp,
		MaxParallel: 2,
	})
	return &fixture{svc: svc, model: model, sessions: sessions, files: files, speech: sp}
}

func vegRequest(user string) AnalyzeRequest {
	return AnalyzeRequest{
		UserID: user,
		Intent: domain.Intent{Persona: "dietitian", JobToBeDone: "plan a vegetarian dinner"},
		Files: []Upload{
			{Name: "menu.md", Data: []byte(menuDoc)},
			{Name: "finance.md", Data: []byte(financeDoc)},
		},
	}
}

func requireAPIErr(t *testing.T, err error, status int) *apierr.Error {
	t.Helper()
	ae, ok := apierr.As(err)
	require.Truef(t, ok, "want *apierr.Error, got %v", err)
	require.Equal(t, status, ae.Status, "code=%s err=%v", ae.Code, err)
	return ae
}

func TestAnalyzeCreatesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Analyze(ctx, vegRequest("ana@example.com"))
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)

	a := res.Analysis
	assert.Equal(t, []string{"menu.md", "finance.md"}, a.Metadata.InputDocuments)
	assert.Equal(t, "en", a.Metadata.Language)
	assert.Equal(t, []string{
		"/session_files/" + res.SessionID + "/menu.md",
		"/session_files/" + res.SessionID + "/finance.md",
	}, a.Metadata.FilePaths)
	_, err = os.Stat(filepath.Join(f.files.Root(), res.SessionID, "menu.md"))
	require.NoError(t, err)

	rank := map[string]int{}
	for i, s := range a.TopSections {
		assert.Equal(t, i+1, s.ImportanceRank)
		rank[s.SectionTitle] = s.ImportanceRank
	}
	require.Contains(t, rank, "Vegetarian Entrees")
	if wine, ok := rank["Wine Pairing Appendix"]; ok {
		assert.Less(t, rank["Vegetarian Entrees"], wine)
	}

	var reason string
	for _, sa := range a.SubsectionAnalysis {
		if sa.SectionTitle == "Vegetarian Entrees" {
			reason = sa.Reason
		}
	}
	assert.Contains(t, reason, "vegetarian")
	assert.Equal(t, []string{"Falafel is the crowd favourite."}, a.LLMInsights.KeyInsights)
	assert.Contains(t, a.DocumentSummaries, "menu.md")

	sess, err := f.sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sess.Metadata.UserID)
	require.Len(t, sess.ChatHistory, 1)
	assert.Equal(t, session.InitialBotMessage, sess.ChatHistory[0].Content)
}

func TestAnalyzeUpdateOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Analyze(ctx, vegRequest("ana@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Chat(ctx, "ana@example.com", first.SessionID, "What should I serve?")
	require.NoError(t, err)

	req := vegRequest("bob@example.com")
	req.SessionID = first.SessionID
	_, err = f.svc.Analyze(ctx, req)
	requireAPIErr(t, err, http.StatusForbidden)

	req = vegRequest("ana@example.com")
	req.SessionID = "does-not-exist"
	_, err = f.svc.Analyze(ctx, req)
	requireAPIErr(t, err, http.StatusNotFound)

	req = vegRequest("ana@example.com")
	req.SessionID = first.SessionID
	req.Files = append(req.Files, Upload{Name: "desserts.md", Data: []byte("# Desserts\n\n## Fruit Tart\n\nFresh berries.\n")})
	second, err := f.svc.Analyze(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	prompt := f.model.prompts[len(f.model.prompts)-1]
	assert.Contains(t, prompt, "menu.md (summary from an earlier analysis)")
	assert.Contains(t, prompt, "--- Document: desserts.md ---")

	sess, err := f.sessions.Get(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, sess.ChatHistory, 3)
	assert.Len(t, sess.FilePaths, 3)
	// summaries from the first run survive the update
	assert.Contains(t, sess.Analysis.DocumentSummaries, "menu.md")
	assert.Contains(t, sess.Analysis.DocumentSummaries, "finance.md")
}

func TestAnalyzeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := vegRequest("ana@example.com")
	req.Files = nil
	_, err := f.svc.Analyze(ctx, req)
	assert.Equal(t, "no_files", requireAPIErr(t, err, http.StatusBadRequest).Code)

	req = vegRequest("ana@example.com")
	req.Files = []Upload{{Name: "virus.exe", Data: []byte("MZ")}}
	_, err = f.svc.Analyze(ctx, req)
	assert.Equal(t, "unsupported_files", requireAPIErr(t, err, http.StatusBadRequest).Code)

	req = vegRequest("ana@example.com")
	req.Intent.Persona = "  "
	_, err = f.svc.Analyze(ctx, req)
	requireAPIErr(t, err, http.StatusBadRequest)

	req = vegRequest("ana@example.com")
	req.Files = []Upload{{Name: "bad.md", Data: []byte{0xff, 0xfe}}}
	_, err = f.svc.Analyze(ctx, req)
	assert.Equal(t, "unparseable_files", requireAPIErr(t, err, http.StatusBadRequest).Code)
}

func TestAnalyzeDegradesWhenModelFails(t *testing.T) {
	f := newFixture(t)
	f.model.err = llm.ErrServiceUnavailable

	res, err := f.svc.Analyze(context.Background(), vegRequest("ana@example.com"))
	require.NoError(t, err)
	require.Len(t, res.Analysis.LLMInsights.KeyInsights, 1)
	assert.True(t, strings.HasPrefix(res.Analysis.LLMInsights.KeyInsights[0], "Failed to generate insights"))
	assert.NotEmpty(t, res.Analysis.TopSections)
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Analyze(ctx, vegRequest("ana@example.com"))
	require.NoError(t, err)

	msg, err := f.svc.Chat(ctx, "ana@example.com", res.SessionID, "What should I serve?")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBot, msg.Role)
	assert.Equal(t, "Try the falafel.", msg.Content)
	assert.Contains(t, f.model.lastPrompt(), "user: What should I serve?")

	sess, err := f.sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	require.Len(t, sess.ChatHistory, 3)
	assert.Equal(t, domain.RoleUser, sess.ChatHistory[1].Role)
	assert.Equal(t, domain.RoleBot, sess.ChatHistory[2].Role)

	_, err = f.svc.Chat(ctx, "bob@example.com", res.SessionID, "hi")
	requireAPIErr(t, err, http.StatusForbidden)
	_, err = f.svc.Chat(ctx, "ana@example.com", "missing", "hi")
	requireAPIErr(t, err, http.StatusNotFound)

	f.model.err = llm.ErrTimeout
	_, err = f.svc.Chat(ctx, "ana@example.com", res.SessionID, "again?")
	assert.True(t, errors.Is(err, llm.ErrTimeout))
}

func TestSessionsAndDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Analyze(ctx, vegRequest("ana@example.com"))
	require.NoError(t, err)

	list, err := f.svc.Sessions(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.SessionID, list[0].ID)
	assert.Equal(t, 2, list[0].DocCount)

	_, err = f.svc.Session(ctx, "bob@example.com", res.SessionID)
	requireAPIErr(t, err, http.StatusForbidden)
}

func TestTranslateInsights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Analyze(ctx, vegRequest("ana@example.com"))
	require.NoError(t, err)

	out, err := f.svc.TranslateInsights(ctx, "ana@example.com", res.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"फलाफल"}, out.TranslatedInsights["key_insights"])
	assert.Contains(t, f.model.lastPrompt(), "into Hindi")

	_, err = f.svc.TranslateInsights(ctx, "ana@example.com", res.SessionID, "fr")
	assert.Equal(t, "unsupported_language", requireAPIErr(t, err, http.StatusBadRequest).Code)
	assert.Contains(t, err.Error(), "Unsupported language 'fr'")
}

func TestTranslateInsightsWithoutText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := &domain.AnalysisResult{
		Metadata:    domain.AnalysisMetadata{Persona: "p", JobToBeDone: "j", UserID: "ana@example.com"},
		LLMInsights: domain.Insights{}.Normalize(),
	}
	id, err := f.sessions.Create(ctx, a, "ana@example.com")
	require.NoError(t, err)

	out, err := f.svc.TranslateInsights(ctx, "ana@example.com", id, "hi")
	require.NoError(t, err)
	assert.Equal(t, "No text found in insights to translate.", out.Message)
}

func TestGeneratePodcast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := &domain.AnalysisResult{
		Metadata:    domain.AnalysisMetadata{Persona: "dietitian", JobToBeDone: "plan"},
		LLMInsights: domain.Insights{KeyInsights: []string{"k"}},
	}

	p, err := f.svc.GeneratePodcast(ctx, a, "hi")
	require.NoError(t, err)
	assert.Equal(t, "podcast_summary_hi.mp3", p.Filename)
	assert.Equal(t, []byte("ID3"), p.Audio)
	assert.Equal(t, "नमस्ते श्रोताओं", f.speech.text)
	assert.Equal(t, "hi", f.speech.lang)

	p, err = f.svc.GeneratePodcast(ctx, a, "en")
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the show.", f.speech.text)
	assert.Equal(t, "podcast_summary_en.mp3", p.Filename)

	_, err = f.svc.GeneratePodcast(ctx, a, "de")
	requireAPIErr(t, err, http.StatusBadRequest)

	f.svc.speech = speech.None{}
	_, err = f.svc.GeneratePodcast(ctx, a, "en")
	requireAPIErr(t, err, http.StatusServiceUnavailable)
}

func TestSelectionInsights(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SelectionInsights(context.Background(), " ")
	requireAPIErr(t, err, http.StatusBadRequest)

	f.model.err = llm.ErrServiceUnavailable
	_, err = f.svc.SelectionInsights(context.Background(), "some text")
	assert.True(t, errors.Is(err, llm.ErrServiceUnavailable))
}

func TestSupportedDedupesAndFilters(t *testing.T) {
	reg := outline.NewRegistry(logger.NewNop(), nil)
	got := Supported(reg, []Upload{
		{Name: "dir/a.md"},
		{Name: "a.md"},
		{Name: "b.exe"},
		{Name: "c.html"},
	})
	var names []string
	for _, u := range got {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"a.md", "c.html"}, names)
}

func TestParseAllSkipsFailures(t *testing.T) {
	reg := outline.NewRegistry(logger.NewNop(), nil)
	var done int
	var mu sync.Mutex
	docs := ParseAll(context.Background(), logger.NewNop(), reg, []Upload{
		{Name: "a.md", Data: []byte("# A\n\n## One\n")},
		{Name: "b.md", Data: []byte{0xff}},
		{Name: "c.md", Data: []byte("# C\n")},
	}, 2, func() {
		mu.Lock()
		done++
		mu.Unlock()
	})
	require.Len(t, docs, 2)
	assert.Equal(t, "a.md", docs[0].Name)
	assert.Equal(t, "c.md", docs[1].Name)
	assert.Equal(t, 3, done)
}
