package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/database"
	"github.com/readowl/readowl/internal/database/books"
	"github.com/readowl/readowl/internal/database/chapters"
	"github.com/readowl/readowl/internal/database/follows"
	"github.com/readowl/readowl/internal/database/notifications"
	"github.com/readowl/readowl/internal/database/settings"
	"github.com/readowl/readowl/internal/database/users"
	http_controllers "github.com/readowl/readowl/internal/http"
	"github.com/readowl/readowl/internal/logging"
	"github.com/readowl/readowl/internal/readonly"
	"github.com/readowl/readowl/internal/scheduler"
	"github.com/readowl/readowl/internal/services"
	"github.com/readowl/readowl/internal/settingsstore"
	"github.com/readowl/readowl/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	log := logging.WithComponent("server")
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Dur("timeout", timeout).Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Background work stops before the listener so in-flight requests can
	// still enqueue while draining.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}

func Run(cfg *config.Config, version string) error {
	logging.Configure(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Version: version,
	})
	log := logging.WithComponent("entrypoint")
	log.Info().Str("version", version).Msg("starting Readowl")

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("closing database")
		}
	}()

	booksRepo := books.NewRepository(db.DB)
	chaptersRepo := chapters.NewRepository(db.DB)
	followsRepo := follows.NewRepository(db.DB)
	notificationsRepo := notifications.NewRepository(db.DB)

	botSettings, err := settingsstore.New(settings.NewRepository(db.DB), cfg.Bots)
	if err != nil {
		return fmt.Errorf("bot keywords: %w", err)
	}

	templates, static := uiFilesystems(cfg.UI)

	authService := auth.NewService(db.DB, cfg.Auth)
	authService.SetResetLinkSender(auth.LogResetLinkSender{}, cfg.HTTP.BaseURL)

	var (
		authMiddleware *auth.Middleware
		authController *auth.AuthController
		sessionManager *auth.SessionManager
		csrfSecret     []byte
	)
	if cfg.Auth.Mode == config.AuthModeLocal {
		log.Info().Msg("authentication mode: local")

		sqlDB, err := db.DB.DB()
		if err != nil {
			return fmt.Errorf("sql handle for sessions: %w", err)
		}
		sessionManager, err = auth.NewSessionManager(sqlDB, cfg.Auth)
		if err != nil {
			return err
		}
		authMiddleware = auth.NewMiddleware(authService, sessionManager, cfg.Auth)
		authController = auth.NewAuthController(authService, sessionManager, templates, cfg.Auth)

		csrfSecret, err = sessionSecret(cfg.Auth.SessionSecret)
		if err != nil {
			return err
		}
		if cfg.Auth.SessionSecret == "" {
			log.Warn().Msg("generated session secret, set AUTH_SESSION_SECRET to keep sessions across restarts")
		}

		if hasUsers, _ := authService.HasUsers(); !hasUsers {
			log.Info().Msg("no users found, visit /setup to create an administrator account")
		}
	} else {
		log.Warn().Msg("authentication mode: none, every request acts as administrator")
	}

	publisher := services.NewPublishingService(booksRepo, chaptersRepo, followsRepo, notificationsRepo)

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, cfg.Tasks)
		if err != nil {
			return fmt.Errorf("task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error().Err(err).Msg("closing task client")
			}
		}()

		taskClient.Register(
			tasks.NewNotifyFollowersQueue(publisher),
			tasks.NewCleanupResetTokensQueue(authService),
			tasks.NewCleanupNotificationsQueue(notificationsRepo),
			tasks.NewBackfillSlugsQueue(booksRepo),
		)
		publisher.SetDispatcher(tasks.NewDispatcher(taskClient))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	} else {
		log.Info().Msg("task queue disabled, follower notifications run inline")
	}

	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Maintenance.Enabled {
		jobs := maintenanceJobs(cfg, taskClient, authService, notificationsRepo)
		if authController != nil {
			limiter := authController.Limiter()
			jobs = append(jobs, scheduler.Job{
				Name: "prune_rate_limiter",
				Run: func(context.Context) error {
					limiter.Prune()
					return nil
				},
			})
		}
		maintenance = scheduler.NewMaintenanceScheduler(cfg.Maintenance.Schedule, jobs...)
		if err := maintenance.Start(context.Background()); err != nil {
			return fmt.Errorf("maintenance scheduler: %w", err)
		}
	}

	readOnly := readonly.NewMiddleware(cfg.ReadOnly.Enabled)
	if readOnly.Enabled() {
		log.Warn().Msg("read-only mode enabled, write requests will be rejected")
	}

	router, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		Books:          booksRepo,
		Chapters:       chaptersRepo,
		Publisher:      publisher,
		Follows:        followsRepo,
		Notifications:  notificationsRepo,
		Bots:           botSettings,
		Users:          authService,
		Directory:      users.NewRepository(db.DB),
		Health:         db,
		AuthConfig:     cfg.Auth,
		AuthService:    authService,
		AuthMiddleware: authMiddleware,
		AuthController: authController,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		ReadOnly:       readOnly,
		TaskClient:     taskClient,
		TaskTypes:      tasks.ManualTaskTypes(cfg.Notifications.RetentionDays),
		Templates:      templates,
		Static:         static,
		Version:        version,
	})
	if err != nil {
		return err
	}

	onShutdown := func(ctx context.Context) {
		if maintenance != nil {
			maintenance.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	return Serve(router, cfg, onShutdown)
}

// maintenanceJobs enqueues the cleanup tasks when the queue runs, and runs
// them inline otherwise.
func maintenanceJobs(cfg *config.Config, q *tasks.Client, resets tasks.ResetTokenCleaner, notes tasks.NotificationCleaner) []scheduler.Job {
	retention := time.Duration(cfg.Notifications.RetentionDays) * 24 * time.Hour

	if q != nil {
		return []scheduler.Job{
			scheduler.TaskJob(q, tasks.CleanupResetTokensTask{}),
			scheduler.TaskJob(q, tasks.CleanupNotificationsTask{RetentionDays: cfg.Notifications.RetentionDays}),
		}
	}

	return []scheduler.Job{
		{
			Name: "cleanup_reset_tokens",
			Run: func(context.Context) error {
				_, err := resets.DeleteExpiredResetTokens()
				return err
			},
		},
		{
			Name: "cleanup_notifications",
			Run: func(context.Context) error {
				if retention <= 0 {
					return nil
				}
				_, err := notes.DeleteReadOlderThan(retention)
				return err
			},
		},
	}
}

// uiFilesystems returns the configured template and static directories,
// falling back to the copies embedded in the binary.
func uiFilesystems(cfg config.UI) (templates, static fs.FS) {
	templates = http_controllers.DefaultTemplates()
	if cfg.TemplatesPath != "" {
		templates = os.DirFS(cfg.TemplatesPath)
	}
	static = http_controllers.DefaultStatic()
	if cfg.StaticPath != "" {
		static = os.DirFS(cfg.StaticPath)
	}
	return templates, static
}

// sessionSecret decodes a hex secret, accepts any other value as raw bytes
// and generates one when empty.
func sessionSecret(configured string) ([]byte, error) {
	if configured == "" {
		generated, err := auth.GenerateSessionSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		configured = generated
	}
	if secret, err := hex.DecodeString(configured); err == nil && len(secret) >= 32 {
		return secret, nil
	}
	return []byte(configured), nil
}
