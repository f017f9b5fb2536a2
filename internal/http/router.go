package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/readonly"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(RequestLogger())
	router.Use(Recovery())
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF runs before the session middleware so that the request it
	// replaces still carries the session context.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies, cfg.AuthService))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.LoadAndSave())
	}

	authMW := cfg.AuthMiddleware
	if authMW == nil {
		authMW = auth.NewMiddleware(nil, nil, config.Auth{Mode: config.AuthModeNone})
	}
	router.Use(authMW.Handler())
	router.Use(AuthContextMiddleware(cfg.AuthConfig.Mode))

	readOnly := cfg.ReadOnly
	if readOnly == nil {
		readOnly = readonly.NewMiddleware(false)
	}
	router.Use(readOnly.Handler())
	router.Use(BotClassification(cfg.Bots))

	templates := cfg.Templates
	if templates == nil {
		templates = DefaultTemplates()
	}
	tmpl, err := loadTemplates(templates)
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	static := cfg.Static
	if static == nil {
		static = DefaultStatic()
	}
	router.StaticFS("/static", http.FS(static))

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		tokenController := auth.NewAPITokenController(cfg.AuthService)
		tokens := router.Group("/api/auth", authMW.RequireAuth())
		tokens.POST("/token", tokenController.GenerateToken)
		tokens.DELETE("/token", tokenController.RevokeToken)
		tokens.POST("/password", tokenController.ChangePassword)
	}

	if cfg.Books == nil || cfg.Chapters == nil || cfg.Publisher == nil ||
		cfg.Follows == nil || cfg.Notifications == nil {
		return nil, fmt.Errorf("router: book, chapter, publisher, follow and notification stores are required")
	}

	health := NewHealthController(cfg.Health, cfg.Version, readOnly.Enabled())
	books := NewBooksController(cfg.Books, cfg.Follows)
	chapters := NewChaptersController(books, cfg.Chapters, cfg.Publisher)
	follows := NewFollowsController(books, cfg.Follows)
	notifications := NewNotificationsController(cfg.Notifications)
	ui := NewUIController(cfg.Books, cfg.Chapters, cfg.Follows, cfg.Notifications)

	requireAuth := authMW.RequireAuth()
	requireAuthor := authMW.RequireRole(entities.UserRoleAuthor)
	requireAdmin := authMW.RequireRole(entities.UserRoleAdmin)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	router.GET("/metrics", health.Metrics())

	api := router.Group("/api")

	// Books and chapters
	api.GET("/books", books.ListBooks)
	api.GET("/books/search", books.SearchBooks)
	api.GET("/books/mine", requireAuthor, books.MyBooks)
	api.GET("/books/:slug", books.GetBook)
	api.POST("/books", requireAuthor, books.CreateBook)
	api.PATCH("/books/:slug", requireAuthor, books.UpdateBook)
	api.DELETE("/books/:slug", requireAuthor, books.DeleteBook)
	api.GET("/slug/preview", books.SlugPreview)

	api.GET("/books/:slug/chapters", chapters.ListChapters)
	api.POST("/books/:slug/chapters", requireAuthor, chapters.CreateChapter)
	api.GET("/books/:slug/chapters/:chapterSlug", chapters.GetChapter)
	api.PATCH("/books/:slug/chapters/:chapterSlug", requireAuthor, chapters.UpdateChapter)
	api.POST("/books/:slug/chapters/:chapterSlug/publish", requireAuthor, chapters.PublishChapter)
	api.DELETE("/books/:slug/chapters/:chapterSlug", requireAuthor, chapters.DeleteChapter)

	// Follows and notifications
	api.POST("/books/:slug/follow", requireAuth, follows.Follow)
	api.DELETE("/books/:slug/follow", requireAuth, follows.Unfollow)
	api.GET("/library", requireAuth, follows.Library)

	api.GET("/notifications", requireAuth, notifications.List)
	api.GET("/notifications/count", requireAuth, notifications.Count)
	api.POST("/notifications/:id/read", requireAuth, notifications.MarkRead)
	api.POST("/notifications/read-all", requireAuth, notifications.MarkAllRead)

	// Users
	users := NewUsersController(cfg.Users, cfg.Directory)
	api.GET("/me", users.Me)
	if cfg.Directory != nil {
		api.GET("/admin/users", requireAdmin, users.ListUsers)
	}
	if cfg.Users != nil {
		api.POST("/admin/users/:id/promote", requireAdmin, users.Promote)
		api.PUT("/admin/users/:id/role", requireAdmin, users.SetRole)
	}

	// Admin settings
	admin := api.Group("/admin", requireAdmin)
	settings := NewSettingsController(cfg.Bots, cfg.Books)
	if cfg.Bots != nil {
		admin.GET("/settings/bot-keywords", settings.GetBotKeywords)
		admin.PUT("/settings/bot-keywords", settings.UpdateBotKeywords)
		admin.DELETE("/settings/bot-keywords", settings.ResetBotKeywords)
		admin.POST("/settings/bot-keywords/test", settings.TestUserAgent)
	}
	admin.POST("/slugs/backfill", settings.BackfillSlugs)

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient, cfg.TaskTypes)
		taskRoutes := api.Group("/tasks", requireAdmin)
		taskRoutes.GET("/types", tasksController.ListTaskTypes)
		taskRoutes.GET("/:id", tasksController.GetTaskStatus)
		taskRoutes.POST("/:type/run", tasksController.RunTask)
	}

	// UI routes
	router.GET("/", ui.CatalogPage)
	router.GET("/books/:slug", ui.BookPage)
	router.GET("/books/:slug/:chapterSlug", ui.ChapterPage)
	router.POST("/books/:slug/follow", requireAuth, ui.FollowForm(true))
	router.POST("/books/:slug/unfollow", requireAuth, ui.FollowForm(false))
	router.GET("/library", requireAuth, ui.LibraryPage)
	router.GET("/notifications", requireAuth, ui.NotificationsPage)
	router.POST("/notifications/:id/open", requireAuth, ui.OpenNotification)
	router.POST("/notifications/read-all", requireAuth, ui.MarkAllNotificationsRead)

	router.NoRoute(ui.NotFound)

	return router, nil
}
