// Package app wires the configured components shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"surakshanet/internal/chat"
	"surakshanet/internal/config"
	"surakshanet/internal/gemini"
	"surakshanet/internal/handler"
	"surakshanet/internal/inference"
	"surakshanet/internal/media"
	"surakshanet/internal/middleware"
	"surakshanet/internal/notify"
	"surakshanet/internal/prompts"
	"surakshanet/internal/repository"
	"surakshanet/internal/service"
)

const shutdownTimeout = 5 * time.Second

// App holds the constructed components
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Service  *service.Service
	Chats    *chat.Registry
	Archive  *repository.ReportRepository // nil when disabled
	Notifier *notify.Telegram             // nil when disabled

	gemini *gemini.Client
}

// NewLogger builds the zap logger for level; debug gets the development encoder
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// New constructs every component from cfg. A missing Gemini key is not an error:
// the service starts in the not-configured state.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	var client inference.Client
	if cfg.InferenceConfigured() {
		g, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			ModelName:   cfg.Gemini.ModelName,
			Temperature: cfg.Gemini.Temperature,
			Timeout:     cfg.Timeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		a.gemini = g
		client = inference.NewRateLimitedClient(g, cfg.Gemini.RequestsPerMinute, logger)
	} else {
		logger.Warn("Gemini API key not configured, analysis modules are disabled (set GEMINI_API_KEY)")
	}

	var opts []service.Option
	opts = append(opts, service.WithPhishingHistory(cfg.Phishing.HistorySize))

	if cfg.DatabaseEnabled() {
		if cfg.Database.Type == repository.DriverSQLite {
			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
				a.Close()
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		archive, err := repository.Open(cfg.Database.Type, cfg.Database.Path, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize report archive: %w", err)
		}
		a.Archive = archive
		opts = append(opts, service.WithArchive(archive))
	}

	if cfg.Telegram.Enabled {
		var stats notify.StatsSource
		if a.Archive != nil {
			stats = a.Archive
		}
		n, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, stats, logger)
		if err != nil {
			logger.Warn("Failed to initialize Telegram bot, continuing without alerts", zap.Error(err))
		} else if n != nil {
			a.Notifier = n
			opts = append(opts, service.WithNotifier(n))
		}
	}

	policies := media.NewPolicies(cfg.Uploads.ImageMB*media.MiB, cfg.Uploads.AudioMB*media.MiB, cfg.Uploads.VideoMB*media.MiB)

	var (
		generator inference.Generator
		starter   inference.ChatStarter
	)
	if client != nil {
		generator, starter = client, client
	}
	a.Service = service.New(generator, policies, logger, opts...)
	a.Chats = chat.NewRegistry(starter, prompts.ChatInstruction, cfg.SessionTimeout(), logger)
	return a, nil
}

// Router builds the HTTP handler with logging, auth and CORS
func (a *App) Router() http.Handler {
	gin.SetMode(a.Config.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(a.Logger))

	var reports handler.ReportStore
	if a.Archive != nil {
		reports = a.Archive
	}
	h := handler.NewHandler(a.Service, a.Chats, reports, a.Logger)
	h.RegisterRoutes(router, middleware.Auth([]byte(a.Config.Auth.JWTSecret), a.Logger))

	return middleware.CORS(a.Config.Server.CORSOrigins, router)
}

// Serve runs the HTTP server and background workers until ctx is done
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("Server starting",
			zap.String("address", srv.Addr),
			zap.Bool("inference_configured", a.Service.Configured()),
			zap.Bool("archive_enabled", a.Archive != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return a.Chats.Run(ctx, time.Minute)
	})

	if a.Notifier != nil {
		g.Go(func() error {
			return a.Notifier.Run(ctx)
		})
	}

	return g.Wait()
}

// Close releases the Gemini client and the archive
func (a *App) Close() {
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			a.Logger.Warn("Failed to close Gemini client", zap.Error(err))
		}
	}
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			a.Logger.Warn("Failed to close report archive", zap.Error(err))
		}
	}
}
