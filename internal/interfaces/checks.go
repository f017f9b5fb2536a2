package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/database"
	"github.com/readowl/readowl/internal/database/books"
	"github.com/readowl/readowl/internal/database/chapters"
	"github.com/readowl/readowl/internal/database/follows"
	"github.com/readowl/readowl/internal/database/notifications"
	"github.com/readowl/readowl/internal/database/settings"
	"github.com/readowl/readowl/internal/database/users"
	"github.com/readowl/readowl/internal/http"
	"github.com/readowl/readowl/internal/scheduler"
	"github.com/readowl/readowl/internal/services"
	"github.com/readowl/readowl/internal/settingsstore"
	"github.com/readowl/readowl/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.BookStore = (*books.Repository)(nil)
var _ http.ChapterStore = (*chapters.Repository)(nil)
var _ http.FollowStore = (*follows.Repository)(nil)
var _ http.UserDirectory = (*users.Repository)(nil)
var _ http.NotificationStore = (*notifications.Repository)(nil)
var _ http.HealthChecker = (*database.Database)(nil)

var _ settingsstore.SettingsRepository = (*settings.Repository)(nil)

// =============================================================================
// Publishing
// =============================================================================

var _ services.BookReader = (*books.Repository)(nil)
var _ services.ChapterPublisher = (*chapters.Repository)(nil)
var _ services.FollowerLister = (*follows.Repository)(nil)
var _ services.NotificationWriter = (*notifications.Repository)(nil)
var _ services.NotificationDispatcher = (*tasks.Dispatcher)(nil)
var _ http.ChapterPublisher = (*services.PublishingService)(nil)

// =============================================================================
// Settings and Accounts
// =============================================================================

var _ http.BotSettings = (*settingsstore.SettingsStore)(nil)
var _ http.UserAdmin = (*auth.Service)(nil)
var _ auth.ResetLinkSender = auth.LogResetLinkSender{}

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.FollowerNotifier = (*services.PublishingService)(nil)
var _ tasks.ResetTokenCleaner = (*auth.Service)(nil)
var _ tasks.NotificationCleaner = (*notifications.Repository)(nil)
var _ tasks.SlugBackfiller = (*books.Repository)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
