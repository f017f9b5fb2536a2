package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
)

type Database struct {
	DB *gorm.DB
}

// Models lists every entity managed by AutoMigrate, in dependency order.
var Models = []any{
	&entities.User{},
	&entities.Book{},
	&entities.Chapter{},
	&entities.BookFollow{},
	&entities.Notification{},
	&entities.PasswordResetToken{},
	&entities.Setting{},
}

// Options tunes NewDatabaseWithOptions.
type Options struct {
	LogLevel logger.LogLevel
}

func NewDatabase(dbPath string) (*Database, error) {
	return NewDatabaseWithOptions(dbPath, Options{LogLevel: logger.Warn})
}

func NewDatabaseWithOptions(dbPath string, opts Options) (*Database, error) {
	log := logging.WithComponent("database")

	gormLogger := logger.New(logging.Printf{Logger: log}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  opts.LogLevel,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("database initialized")

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// PingContext checks that the database answers.
func (d *Database) PingContext(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
