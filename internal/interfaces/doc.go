// Package interfaces documents the core abstractions used throughout the application.
//
// Consumers declare the narrow interfaces they need next to their own code;
// this package only asserts, at compile time, that the concrete types wired
// by the entrypoint satisfy them.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookStore, ChapterStore: books and chapters addressed by slug (internal/http/stores.go)
//   - FollowStore, NotificationStore: reader subscriptions and their notices (internal/http/stores.go)
//   - SettingsRepository: key/value runtime settings (internal/settingsstore)
//   - HealthChecker: database liveness for /health (internal/http/stores.go)
//
// ## Publishing
//
//   - BookReader, ChapterPublisher, FollowerLister, NotificationWriter:
//     what PublishingService needs from the repositories (internal/services/interfaces.go)
//   - NotificationDispatcher: moves follower fan-out onto the task queue;
//     implemented by tasks.Dispatcher
//
// ## Background Work
//
//   - FollowerNotifier, ResetTokenCleaner, NotificationCleaner, SlugBackfiller:
//     task processors' dependencies (internal/tasks)
//   - Enqueuer: what the maintenance scheduler needs from the task client
//     (internal/scheduler)
//
// ## Accounts
//
//   - UserAdmin: role changes from the admin API (internal/http/stores.go)
//   - ResetLinkSender: delivers password reset links (internal/auth/reset.go)
//
// # Adding an Implementation
//
// Declare the interface in the consuming package, implement it, then add a
// `var _ Interface = (*Impl)(nil)` line to checks.go.
package interfaces
