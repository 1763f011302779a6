package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docinsight-backend/internal/analysis"
	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/http/middleware"
	"github.com/yungbote/docinsight-backend/internal/http/response"
	"github.com/yungbote/docinsight-backend/internal/insights"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

const defaultMaxUploadBytes int64 = 64 << 20

// AnalysisService is implemented by *analysis.Service.
type AnalysisService interface {
	Analyze(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.AnalyzeResponse, error)
	Chat(ctx context.Context, userID, sessionID, query string) (*domain.ChatMessage, error)
	Sessions(ctx context.Context, userID string) ([]domain.SessionSummary, error)
	Session(ctx context.Context, userID, sessionID string) (*domain.Session, error)
	TranslateInsights(ctx context.Context, userID, sessionID, lang string) (*analysis.TranslateResult, error)
	GeneratePodcast(ctx context.Context, a *domain.AnalysisResult, lang string) (*analysis.Podcast, error)
	SelectionInsights(ctx context.Context, text string) (*insights.SelectionInsights, error)
}

type AnalysisHandler struct {
	log       *logger.Logger
	svc       AnalysisService
	maxUpload int64
}

func NewAnalysisHandler(log *logger.Logger, svc AnalysisService, maxUpload int64) *AnalysisHandler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &AnalysisHandler{log: log.With("handler", "AnalysisHandler"), svc: svc, maxUpload: maxUpload}
}

// POST /analyze/ (multipart: files, persona, job_to_be_done, sessionId, language)
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "upload_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	uploads, err := readUploads(form.File["files"])
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	res, err := h.svc.Analyze(c.Request.Context(), analysis.AnalyzeRequest{
		UserID: middleware.UserEmail(c),
		Intent: domain.Intent{
			Persona:     c.PostForm("persona"),
			JobToBeDone: c.PostForm("job_to_be_done"),
		},
		SessionID: c.PostForm("sessionId"),
		Language:  c.PostForm("language"),
		Files:     uploads,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}

func readUploads(headers []*multipart.FileHeader) ([]analysis.Upload, error) {
	out := make([]analysis.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		out = append(out, analysis.Upload{Name: fh.Filename, Data: data})
	}
	return out, nil
}

// POST /chat/
func (h *AnalysisHandler) Chat(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		Query     string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	msg, err := h.svc.Chat(c.Request.Context(), middleware.UserEmail(c), req.SessionID, req.Query)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, msg)
}

// GET /sessions/
func (h *AnalysisHandler) ListSessions(c *gin.Context) {
	list, err := h.svc.Sessions(c.Request.Context(), middleware.UserEmail(c))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if list == nil {
		list = []domain.SessionSummary{}
	}
	response.RespondOK(c, list)
}

// GET /sessions/:id
func (h *AnalysisHandler) GetSession(c *gin.Context) {
	sess, err := h.svc.Session(c.Request.Context(), middleware.UserEmail(c), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, sess)
}

// POST /translate-insights/
func (h *AnalysisHandler) TranslateInsights(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId"`
		Language  string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.svc.TranslateInsights(c.Request.Context(), middleware.UserEmail(c), req.SessionID, req.Language)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /generate-podcast/
func (h *AnalysisHandler) GeneratePodcast(c *gin.Context) {
	var req struct {
		AnalysisData *domain.AnalysisResult `json:"analysis_data"`
		Language     string                 `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.AnalysisData == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("analysis_data is required"))
		return
	}
	p, err := h.svc.GeneratePodcast(c.Request.Context(), req.AnalysisData, req.Language)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", p.Filename))
	c.Data(http.StatusOK, "audio/mpeg", p.Audio)
}

// POST /insights-on-selection
func (h *AnalysisHandler) InsightsOnSelection(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.svc.SelectionInsights(c.Request.Context(), strings.TrimSpace(req.Text))
	if err != nil {
		h.log.Warn("Selection insights failed", "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, out)
}
