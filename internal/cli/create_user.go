package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/database"
	"github.com/readowl/readowl/internal/entities"
)

// CreateUserCommand creates an account from the shell, typically the first
// administrator on a headless install.
type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	Role         string
	DatabasePath string

	In  io.Reader
	Out io.Writer
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{In: os.Stdin, Out: os.Stdout}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password; read from stdin when omitted")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleReader), "Role: reader, author or admin")
	fs.StringVar(&cmd.DatabasePath, "db", envOr("DATABASE_PATH", config.DefaultDatabasePath), "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  echo 's3cret-pass' | %s create-user -username ana -email ana@example.com -role admin\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Username == "" || cmd.Email == "" {
		fs.Usage()
		return fmt.Errorf("username and email are required")
	}
	if !entities.UserRole(cmd.Role).Valid() {
		return fmt.Errorf("unknown role %q", cmd.Role)
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	if cmd.Password == "" {
		password, err := readLine(cmd.In)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		cmd.Password = password
	}

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.NewConfig().Auth
	service := auth.NewService(db.DB, cfg)

	user, err := service.CreateUser(cmd.Username, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Out, "Created %s %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
