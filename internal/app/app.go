package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/http"
	"github.com/yungbote/docinsight-backend/internal/observability"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	Router   *gin.Engine
	Clients  Clients
	Services Services

	server       *http.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.HTTP.MetricsEnabled {
		observability.Init()
	}
	otelShutdown := observability.InitOTel(ctx, log, cfg.Env, cfg.Version, cfg.Telemetry)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	services, err := wireServices(log, cfg, clients)
	if err != nil {
		clients.Close()
		log.Sync()
		return nil, err
	}

	handlers := wireHandlers(log, cfg, services)
	middleware := wireMiddleware(log, services)
	router := wireRouter(log, cfg, clients, handlers, middleware)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Router:   router,
		Clients:  clients,
		Services: services,
		server: http.NewServer(log, router, http.ServerConfig{
			Addr:              cfg.HTTP.Addr,
			ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
			IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
			ShutdownTimeout:   cfg.HTTP.ShutdownTimeout.Duration,
		}),
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.server.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
