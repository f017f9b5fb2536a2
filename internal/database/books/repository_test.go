package books

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/readowl/readowl/internal/database"
	"github.com/readowl/readowl/internal/entities"
)

func setupTestDB(t *testing.T) (*gorm.DB, *Repository, *entities.User) {
	t.Helper()
	db, err := database.NewDatabaseWithOptions(filepath.Join(t.TempDir(), "books.db"), database.Options{LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	author := &entities.User{Username: "author", Email: "author@example.com", Role: entities.UserRoleAuthor}
	require.NoError(t, db.DB.Create(author).Error)

	return db.DB, NewRepository(db.DB), author
}

func createBook(t *testing.T, repo *Repository, authorID uint, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{AuthorID: authorID, Title: title}
	require.NoError(t, repo.CreateBook(book))
	return book
}

// insertLegacyBook writes a row the way it looked before slugs were stored.
func insertLegacyBook(t *testing.T, db *gorm.DB, authorID uint, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{AuthorID: authorID, Title: title, Status: entities.BookStatusOngoing}
	require.NoError(t, db.Omit("Author", "Chapters").Create(book).Error)
	require.Empty(t, book.Slug)
	return book
}

func TestRepository_CreateBook_AssignsSlug(t *testing.T) {
	_, repo, author := setupTestDB(t)

	book := createBook(t, repo, author.ID, "  O Monarca do Céu ")

	assert.Equal(t, "O Monarca do Céu", book.Title)
	assert.Equal(t, "o-monarca-do-ceu", book.Slug)
	assert.Equal(t, entities.BookStatusOngoing, book.Status)
}

func TestRepository_CreateBook_CollidingTitles(t *testing.T) {
	_, repo, author := setupTestDB(t)

	first := createBook(t, repo, author.ID, "O Monarca do Céu")
	second := createBook(t, repo, author.ID, "o monarca do ceu!")
	third := createBook(t, repo, author.ID, "O MONARCA DO CEU")

	assert.Equal(t, "o-monarca-do-ceu", first.Slug)
	assert.Equal(t, "o-monarca-do-ceu-2", second.Slug)
	assert.Equal(t, "o-monarca-do-ceu-3", third.Slug)

	// each slug resolves to its own book
	for _, b := range []*entities.Book{first, second, third} {
		got, err := repo.GetBookBySlug(b.Slug)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	}
}

func TestRepository_CreateBook_PunctuationOnlyTitle(t *testing.T) {
	_, repo, author := setupTestDB(t)

	first := createBook(t, repo, author.ID, "!!!")
	second := createBook(t, repo, author.ID, "???")

	assert.Equal(t, "untitled", first.Slug)
	assert.Equal(t, "untitled-2", second.Slug)
}

func TestRepository_CreateBook_DeletedBookKeepsSlug(t *testing.T) {
	_, repo, author := setupTestDB(t)

	first := createBook(t, repo, author.ID, "Gone Book")
	require.NoError(t, repo.DeleteBook(first.ID))

	second := createBook(t, repo, author.ID, "Gone Book")
	assert.Equal(t, "gone-book-2", second.Slug)
}

func TestRepository_UpdateBook(t *testing.T) {
	_, repo, author := setupTestDB(t)
	createBook(t, repo, author.ID, "Taken Title")
	book := createBook(t, repo, author.ID, "Original Title")

	t.Run("same slug keeps the stored one", func(t *testing.T) {
		book.Title = "original title!"
		book.Synopsis = "new synopsis"
		require.NoError(t, repo.UpdateBook(book))
		assert.Equal(t, "original-title", book.Slug)

		got, err := repo.GetBookByID(book.ID)
		require.NoError(t, err)
		assert.Equal(t, "new synopsis", got.Synopsis)
		assert.Equal(t, "original title!", got.Title)
	})

	t.Run("rename re-slugs with collision policy", func(t *testing.T) {
		book.Title = "Taken Title"
		require.NoError(t, repo.UpdateBook(book))
		assert.Equal(t, "taken-title-2", book.Slug)

		_, err := repo.GetBookBySlug("original-title")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("missing book", func(t *testing.T) {
		err := repo.UpdateBook(&entities.Book{ID: 9999, Title: "x"})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestRepository_GetBookBySlug_InvalidSlug(t *testing.T) {
	_, repo, _ := setupTestDB(t)

	for _, s := range []string{"", "-", "Upper", "a--b"} {
		_, err := repo.GetBookBySlug(s)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "slug %q", s)
	}
}

func TestRepository_GetBookBySlug_LegacyFallback(t *testing.T) {
	db, repo, author := setupTestDB(t)

	older := insertLegacyBook(t, db, author.ID, "Ação & Reação")
	newer := insertLegacyBook(t, db, author.ID, "acao reacao")

	got, err := repo.GetBookBySlug("acao-reacao")
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID, "lowest id wins the tie")
	assert.Equal(t, "acao-reacao", got.Slug)

	// the resolved slug is now stored on the row
	var stored entities.Book
	require.NoError(t, db.First(&stored, older.ID).Error)
	assert.Equal(t, "acao-reacao", stored.Slug)

	// the newer row stays unresolved under this slug
	var untouched entities.Book
	require.NoError(t, db.First(&untouched, newer.ID).Error)
	assert.Empty(t, untouched.Slug)

	_, err = repo.GetBookBySlug("no-such-book")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_GetBookBySlug_LegacyBehindDeletedBook(t *testing.T) {
	db, repo, author := setupTestDB(t)

	gone := createBook(t, repo, author.ID, "Foo")
	require.NoError(t, repo.DeleteBook(gone.ID))
	legacy := insertLegacyBook(t, db, author.ID, "Foo")

	got, err := repo.GetBookBySlug("foo")
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, got.ID)
	assert.Equal(t, "foo-2", got.Slug, "same slug BackfillSlugs would assign")

	n, err := repo.BackfillSlugs()
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err = repo.GetBookBySlug("foo-2")
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, got.ID)
}

func TestRepository_BackfillSlugs(t *testing.T) {
	db, repo, author := setupTestDB(t)

	createBook(t, repo, author.ID, "Existing")
	a := insertLegacyBook(t, db, author.ID, "Existing")
	b := insertLegacyBook(t, db, author.ID, "Fresh Title")
	c := insertLegacyBook(t, db, author.ID, "Fresh title")

	n, err := repo.BackfillSlugs()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for id, want := range map[uint]string{a.ID: "existing-2", b.ID: "fresh-title", c.ID: "fresh-title-2"} {
		got, err := repo.GetBookByID(id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Slug)
	}

	n, err = repo.BackfillSlugs()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRepository_ListAndSearch(t *testing.T) {
	db, repo, author := setupTestDB(t)

	other := &entities.User{Username: "other", Email: "other@example.com", Role: entities.UserRoleAuthor}
	require.NoError(t, db.Create(other).Error)

	createBook(t, repo, author.ID, "Dragon Tales")
	fantasy := &entities.Book{AuthorID: author.ID, Title: "Quiet Forest", Genre: "Fantasy"}
	require.NoError(t, repo.CreateBook(fantasy))
	createBook(t, repo, other.ID, "City Lights")

	books, total, err := repo.ListBooks(2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, books, 2)

	byAuthor, err := repo.ListBooksByAuthor(author.ID)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	found, err := repo.SearchBooks("dragon", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Dragon Tales", found[0].Title)

	found, err = repo.SearchBooks("fantasy", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, fantasy.ID, found[0].ID)

	found, err = repo.SearchBooks("   ", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRepository_IncrementViews(t *testing.T) {
	_, repo, author := setupTestDB(t)
	book := createBook(t, repo, author.ID, "Popular")

	require.NoError(t, repo.IncrementViews(book.ID))
	require.NoError(t, repo.IncrementViews(book.ID))

	got, err := repo.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)
}

func TestRepository_DeleteBook(t *testing.T) {
	db, repo, author := setupTestDB(t)
	book := createBook(t, repo, author.ID, "Short Lived")
	require.NoError(t, db.Create(&entities.Chapter{BookID: book.ID, Title: "One", Slug: "one", Position: 1}).Error)
	require.NoError(t, db.Create(&entities.BookFollow{UserID: author.ID, BookID: book.ID}).Error)

	require.NoError(t, repo.DeleteBook(book.ID))

	_, err := repo.GetBookByID(book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var chapters, follows int64
	db.Model(&entities.Chapter{}).Where("book_id = ?", book.ID).Count(&chapters)
	db.Model(&entities.BookFollow{}).Where("book_id = ?", book.ID).Count(&follows)
	assert.Zero(t, chapters)
	assert.Zero(t, follows)

	assert.ErrorIs(t, repo.DeleteBook(book.ID), gorm.ErrRecordNotFound)
}
