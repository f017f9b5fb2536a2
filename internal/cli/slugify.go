package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/readowl/readowl/internal/slug"
)

// SlugifyCommand prints the slug for a title followed by the display text
// derived back from it. With -reverse it only prints the display text.
type SlugifyCommand struct {
	Reverse bool
	Text    string
	Out     io.Writer
}

func NewSlugifyCommand() *SlugifyCommand {
	return &SlugifyCommand{Out: os.Stdout}
}

func (cmd *SlugifyCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("slugify", flag.ContinueOnError)
	fs.BoolVar(&cmd.Reverse, "reverse", false, "Turn a slug back into display text")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s slugify [-reverse] <text>\n\n", os.Args[0])
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s slugify \"O Monarca do Céu\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s slugify -reverse o-monarca-do-ceu\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.Text = strings.Join(fs.Args(), " ")
	if cmd.Text == "" {
		fs.Usage()
		return fmt.Errorf("text is required")
	}
	return nil
}

func (cmd *SlugifyCommand) Run() error {
	if cmd.Reverse {
		fmt.Fprintln(cmd.Out, slug.Deslugify(cmd.Text))
		return nil
	}
	s := slug.Slugify(cmd.Text)
	if s == "" {
		return fmt.Errorf("%q has no characters usable in a slug", cmd.Text)
	}
	fmt.Fprintf(cmd.Out, "%s\n%s\n", s, slug.Deslugify(s))
	return nil
}
