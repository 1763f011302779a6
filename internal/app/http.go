package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/http"
	httpH "github.com/yungbote/docinsight-backend/internal/http/handlers"
	httpMW "github.com/yungbote/docinsight-backend/internal/http/middleware"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	Analysis *httpH.AnalysisHandler
}

func wireHandlers(log *logger.Logger, cfg *config.Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(cfg.Version),
		Auth:     httpH.NewAuthHandler(services.Auth),
		Analysis: httpH.NewAnalysisHandler(log, services.Analysis, cfg.HTTP.MaxUploadBytes),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg *config.Config, clients Clients, handlers Handlers, middleware Middleware) *gin.Engine {
	rc := http.RouterConfig{
		Log:             log,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		AnalysisHandler: handlers.Analysis,
	}
	if cfg.Telemetry.Enabled {
		rc.ServiceName = cfg.Telemetry.ServiceName
		if rc.ServiceName == "" {
			rc.ServiceName = "docinsight"
		}
	}
	if cfg.HTTP.MetricsEnabled {
		rc.Metrics = observability.Current()
	}
	if clients.FilesDir != "" {
		rc.StaticPrefix = cfg.Storage.PublicPrefix
		rc.StaticDir = clients.FilesDir
	}
	return http.NewRouter(rc)
}
