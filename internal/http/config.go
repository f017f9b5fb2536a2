package http

import (
	"io/fs"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/readonly"
	"github.com/readowl/readowl/internal/tasks"
)

// RouterConfig carries every dependency of the router. Optional parts are
// left nil: without a task client the task endpoints are not registered,
// without an auth controller the login pages are not served.
type RouterConfig struct {
	Books         BookStore
	Chapters      ChapterStore
	Publisher     ChapterPublisher
	Follows       FollowStore
	Notifications NotificationStore
	Bots          BotSettings
	Users         UserAdmin
	Directory     UserDirectory
	Health        HealthChecker

	AuthConfig     config.Auth
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	AuthController *auth.AuthController
	SessionManager *auth.SessionManager
	CSRFSecret     []byte

	ReadOnly *readonly.Middleware

	TaskClient *tasks.Client
	TaskTypes  []tasks.TaskType

	// Templates and Static default to the copies embedded in the binary.
	Templates fs.FS
	Static    fs.FS

	Version string
}
