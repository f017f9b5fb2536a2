package main

import (
	"fmt"
	"os"

	"github.com/readowl/readowl/internal/cli"
	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		if err := entrypoint.Run(config.NewConfig(), Version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "create-user":
		cmd = cli.NewCreateUserCommand()
	case "backfill-slugs":
		cmd = cli.NewBackfillSlugsCommand()
	case "slugify":
		cmd = cli.NewSlugifyCommand()
	case "classify-ua":
		cmd = cli.NewClassifyUACommand()
	case "version":
		fmt.Printf("readowl %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve            Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  create-user      Create a user account\n")
	fmt.Fprintf(os.Stderr, "  backfill-slugs   Assign slugs to books stored without one\n")
	fmt.Fprintf(os.Stderr, "  slugify          Print the slug for a title, or a title for a slug\n")
	fmt.Fprintf(os.Stderr, "  classify-ua      Classify user agents as bot or human\n")
	fmt.Fprintf(os.Stderr, "  version          Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
