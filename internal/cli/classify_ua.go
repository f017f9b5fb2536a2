package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/database"
	"github.com/readowl/readowl/internal/database/settings"
	"github.com/readowl/readowl/internal/settingsstore"
	"github.com/readowl/readowl/internal/useragent"
)

// ClassifyUACommand runs the bot classifier over user agents given as
// arguments, or one per line on stdin. Each line of output is "bot" or
// "human", a tab and the user agent.
//
// Without -keywords or -keywords-file the server's keyword resolution
// applies: the database setting when -db is given, then BOT_KEYWORDS and
// BOT_KEYWORDS_FILE, then the built-in list.
type ClassifyUACommand struct {
	Keywords     string
	KeywordsFile string
	DatabasePath string
	UserAgents   []string

	In  io.Reader
	Out io.Writer
}

func NewClassifyUACommand() *ClassifyUACommand {
	return &ClassifyUACommand{In: os.Stdin, Out: os.Stdout}
}

func (cmd *ClassifyUACommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("classify-ua", flag.ContinueOnError)
	fs.StringVar(&cmd.Keywords, "keywords", "", "Comma-separated keywords replacing the built-in list")
	fs.StringVar(&cmd.KeywordsFile, "keywords-file", "", "YAML file with a keywords list")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Database holding the runtime keyword setting")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s classify-ua [options] [user-agent ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Classify user agents as bot or human. Reads stdin when no user agent is given.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd.UserAgents = fs.Args()
	return nil
}

func (cmd *ClassifyUACommand) classifier() (*useragent.Classifier, error) {
	switch {
	case strings.TrimSpace(cmd.Keywords) != "" || cmd.KeywordsFile != "":
		return envClassifier(config.Bots{Keywords: cmd.Keywords, KeywordsFile: cmd.KeywordsFile})
	case cmd.DatabasePath != "":
		db, err := database.NewDatabase(cmd.DatabasePath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		store, err := settingsstore.New(settings.NewRepository(db.DB), config.NewConfig().Bots)
		if err != nil {
			return nil, err
		}
		return store.Classifier(), nil
	default:
		return envClassifier(config.NewConfig().Bots)
	}
}

func envClassifier(cfg config.Bots) (*useragent.Classifier, error) {
	switch {
	case strings.TrimSpace(cfg.Keywords) != "":
		return useragent.New(useragent.ParseKeywords(cfg.Keywords)), nil
	case cfg.KeywordsFile != "":
		keywords, err := useragent.LoadKeywordsFile(cfg.KeywordsFile)
		if err != nil {
			return nil, err
		}
		return useragent.New(keywords), nil
	default:
		return useragent.Default(), nil
	}
}

func (cmd *ClassifyUACommand) Run() error {
	c, err := cmd.classifier()
	if err != nil {
		return err
	}

	if len(cmd.UserAgents) > 0 {
		for _, ua := range cmd.UserAgents {
			cmd.print(c, ua)
		}
		return nil
	}

	scanner := bufio.NewScanner(cmd.In)
	for scanner.Scan() {
		ua := strings.TrimSpace(scanner.Text())
		if ua == "" {
			continue
		}
		cmd.print(c, ua)
	}
	return scanner.Err()
}

func (cmd *ClassifyUACommand) print(c *useragent.Classifier, ua string) {
	verdict := "human"
	if c.IsLikelyBot(ua) {
		verdict = "bot"
	}
	fmt.Fprintf(cmd.Out, "%s\t%s\n", verdict, ua)
}
