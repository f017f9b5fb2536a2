package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/database"
	"github.com/readowl/readowl/internal/database/books"
)

// BackfillSlugsCommand assigns slugs to books stored without one.
type BackfillSlugsCommand struct {
	DatabasePath string
	Out          io.Writer
}

func NewBackfillSlugsCommand() *BackfillSlugsCommand {
	return &BackfillSlugsCommand{Out: os.Stdout}
}

func (cmd *BackfillSlugsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backfill-slugs", flag.ContinueOnError)
	fs.StringVar(&cmd.DatabasePath, "db", envOr("DATABASE_PATH", config.DefaultDatabasePath), "Path to the database file")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backfill-slugs [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Assign slugs to books stored without one. Safe to run repeatedly.\n\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *BackfillSlugsCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	updated, err := books.NewRepository(db.DB).BackfillSlugs()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Out, "Assigned slugs to %d books\n", updated)
	return nil
}
