package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readowl/readowl/internal/database"
	"github.com/readowl/readowl/internal/database/settings"
	"github.com/readowl/readowl/internal/database/users"
	"github.com/readowl/readowl/internal/entities"
)

func TestSlugifyCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"title", []string{"O Monarca do Céu"}, "o-monarca-do-ceu\nO Monarca Do Ceu\n"},
		{"words joined", []string{"Hello", "World"}, "hello-world\nHello World\n"},
		{"reverse", []string{"-reverse", "o-monarca-do-ceu"}, "O Monarca Do Ceu\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := NewSlugifyCommand()
			cmd.Out = &out

			require.NoError(t, cmd.ParseFlags(tt.args))
			require.NoError(t, cmd.Run())
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestSlugifyCommand_Errors(t *testing.T) {
	assert.Error(t, NewSlugifyCommand().ParseFlags(nil))

	cmd := NewSlugifyCommand()
	cmd.Out = &bytes.Buffer{}
	require.NoError(t, cmd.ParseFlags([]string{"!!!"}))
	assert.Error(t, cmd.Run())
}

func TestClassifyUACommand_Args(t *testing.T) {
	var out bytes.Buffer
	cmd := NewClassifyUACommand()
	cmd.Out = &out

	require.NoError(t, cmd.ParseFlags([]string{"curl/8.4.0", "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0"}))
	require.NoError(t, cmd.Run())

	assert.Equal(t, "bot\tcurl/8.4.0\nhuman\tMozilla/5.0 (X11; Linux x86_64) Firefox/121.0\n", out.String())
}

func TestClassifyUACommand_StdinWithCustomKeywords(t *testing.T) {
	var out bytes.Buffer
	cmd := NewClassifyUACommand()
	cmd.Out = &out
	cmd.In = strings.NewReader("MyCrawler/1.0\n\ncurl/8.4.0\n")

	require.NoError(t, cmd.ParseFlags([]string{"-keywords", "mycrawler"}))
	require.NoError(t, cmd.Run())

	assert.Equal(t, "bot\tMyCrawler/1.0\nhuman\tcurl/8.4.0\n", out.String())
}

func TestClassifyUACommand_MissingKeywordsFile(t *testing.T) {
	cmd := NewClassifyUACommand()
	cmd.Out = &bytes.Buffer{}
	require.NoError(t, cmd.ParseFlags([]string{"-keywords-file", filepath.Join(t.TempDir(), "none.yaml"), "curl"}))

	assert.Error(t, cmd.Run())
}

func TestCreateUserCommand(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "4")
	dbPath := filepath.Join(t.TempDir(), "readowl.db")

	var out bytes.Buffer
	cmd := NewCreateUserCommand()
	cmd.Out = &out
	cmd.In = strings.NewReader("correct-horse-battery\n")

	require.NoError(t, cmd.ParseFlags([]string{
		"-username", "ana", "-email", "ana@example.com", "-role", "admin", "-db", dbPath,
	}))
	require.NoError(t, cmd.Run())
	assert.Contains(t, out.String(), `Created admin "ana"`)

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	user, err := users.NewRepository(db.DB).GetUserByUsername("ana")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleAdmin, user.Role)
	assert.NotEqual(t, "correct-horse-battery", user.PasswordHash)
}

func TestCreateUserCommand_Validation(t *testing.T) {
	assert.Error(t, NewCreateUserCommand().ParseFlags([]string{"-email", "a@example.com"}))
	assert.Error(t, NewCreateUserCommand().ParseFlags([]string{"-username", "ana", "-email", "a@example.com", "-role", "owner"}))
}

func TestBackfillSlugsCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "readowl.db")

	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	author := &entities.User{Username: "author", Email: "author@example.com", Role: entities.UserRoleAuthor}
	require.NoError(t, db.DB.Create(author).Error)
	legacy := &entities.Book{AuthorID: author.ID, Title: "Legacy Book", Status: entities.BookStatusOngoing}
	require.NoError(t, db.DB.Omit("Author", "Chapters").Create(legacy).Error)
	require.NoError(t, db.Close())

	var out bytes.Buffer
	cmd := NewBackfillSlugsCommand()
	cmd.Out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath}))
	require.NoError(t, cmd.Run())

	assert.Equal(t, "Assigned slugs to 1 books\n", out.String())
}

func TestClassifyUACommand_DatabaseSetting(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "readowl.db")
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	require.NoError(t, settings.NewRepository(db.DB).SetSetting(entities.SettingKeyBotKeywords, "reader-app"))
	require.NoError(t, db.Close())

	var out bytes.Buffer
	cmd := NewClassifyUACommand()
	cmd.Out = &out
	require.NoError(t, cmd.ParseFlags([]string{"-db", dbPath, "Reader-App/2.0", "curl/8.4.0"}))
	require.NoError(t, cmd.Run())

	assert.Equal(t, "bot\tReader-App/2.0\nhuman\tcurl/8.4.0\n", out.String())
}
