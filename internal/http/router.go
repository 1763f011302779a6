package http

import (
	"io/fs"
	nethttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/docinsight-backend/internal/http/handlers"
	httpMW "github.com/yungbote/docinsight-backend/internal/http/middleware"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	// StaticPrefix/StaticDir serve locally stored session files. Empty
	// when files live in a bucket.
	StaticPrefix string
	StaticDir    string

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	AnalysisHandler *httpH.AnalysisHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.HealthCheck)
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}
	if cfg.StaticPrefix != "" && cfg.StaticDir != "" {
		r.StaticFS(strings.TrimRight(cfg.StaticPrefix, "/"), onlyFiles{nethttp.Dir(cfg.StaticDir)})
	}

	// Auth (public)
	if cfg.AuthHandler != nil {
		r.POST("/register", cfg.AuthHandler.Register)
		r.POST("/login", cfg.AuthHandler.Login)
	}

	protected := r.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.AnalysisHandler != nil {
			protected.POST("/analyze/", cfg.AnalysisHandler.Analyze)
			protected.POST("/chat/", cfg.AnalysisHandler.Chat)
			protected.GET("/sessions/", cfg.AnalysisHandler.ListSessions)
			protected.GET("/sessions/:id", cfg.AnalysisHandler.GetSession)
			protected.POST("/translate-insights/", cfg.AnalysisHandler.TranslateInsights)
			protected.POST("/generate-podcast/", cfg.AnalysisHandler.GeneratePodcast)
			protected.POST("/insights-on-selection", cfg.AnalysisHandler.InsightsOnSelection)
		}
	}

	return r
}

// onlyFiles hides directory listings under the static prefix.
type onlyFiles struct {
	fs nethttp.FileSystem
}

func (o onlyFiles) Open(name string) (nethttp.File, error) {
	f, err := o.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
