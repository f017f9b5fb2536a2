// Package database opens the SQLite database and migrates the schema.
//
// # Architecture
//
// Data access is split into domain sub-packages, each exposing a Repository
// that wraps *gorm.DB:
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── books/           # Books, slug assignment and legacy slug resolution
//	├── chapters/        # Chapters, per-book slugs, publishing
//	├── follows/         # Reader subscriptions to books
//	├── notifications/   # Follower notifications
//	├── settings/        # Runtime settings (bot keywords)
//	└── users/           # User lookups
//
// # Usage
//
//	db, err := database.NewDatabase("./readowl.db")
//	booksRepo := books.NewRepository(db.DB)
//	book, err := booksRepo.GetBookBySlug("o-monarca-do-ceu")
//
// Lookups that find nothing return an error wrapping gorm.ErrRecordNotFound.
// Password reset tokens are owned by the auth service and have no repository
// here.
package database
