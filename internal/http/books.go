package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
	"github.com/readowl/readowl/internal/metrics"
	"github.com/readowl/readowl/internal/slug"
)

const (
	maxTitleLength    = 512
	maxGenreLength    = 100
	maxCoverURLLength = 2048
)

type BooksController struct {
	books   BookStore
	follows FollowStore
}

func NewBooksController(books BookStore, follows FollowStore) *BooksController {
	return &BooksController{
		books:   books,
		follows: follows,
	}
}

// BookRequest is the body of POST /api/books and PATCH /api/books/:slug.
// Absent fields are left unchanged on PATCH.
type BookRequest struct {
	Title    *string `json:"title"`
	Synopsis *string `json:"synopsis"`
	Genre    *string `json:"genre"`
	Status   *string `json:"status"`
	CoverURL *string `json:"cover_url"`
}

// apply copies the request onto book and validates the result.
func (r BookRequest) apply(book *entities.Book) string {
	if r.Title != nil {
		book.Title = strings.TrimSpace(*r.Title)
	}
	if r.Synopsis != nil {
		book.Synopsis = *r.Synopsis
	}
	if r.Genre != nil {
		book.Genre = strings.TrimSpace(*r.Genre)
	}
	if r.Status != nil {
		book.Status = entities.BookStatus(strings.ToLower(strings.TrimSpace(*r.Status)))
	}
	if r.CoverURL != nil {
		book.CoverURL = strings.TrimSpace(*r.CoverURL)
	}

	switch {
	case book.Title == "":
		return "title is required"
	case len(book.Title) > maxTitleLength:
		return "title is too long"
	case len(book.Genre) > maxGenreLength:
		return "genre is too long"
	case book.Status != "" && !book.Status.Valid():
		return "status must be one of ongoing, completed, hiatus"
	case book.CoverURL != "" && !validCoverURL(book.CoverURL):
		return "cover_url must be an http or https URL"
	}
	return ""
}

func validCoverURL(raw string) bool {
	if len(raw) > maxCoverURLLength {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// loadBook resolves the :slug parameter. Malformed slugs answer 404 without
// a lookup.
func (bc *BooksController) loadBook(c *gin.Context) (*entities.Book, bool) {
	s := c.Param("slug")
	if !slug.IsValid(s) {
		respondNotFound(c, "book")
		return nil, false
	}
	book, err := bc.books.GetBookBySlug(s)
	if err != nil {
		respondStoreError(c, err, "book")
		return nil, false
	}
	return book, true
}

// recordView counts a book view in the metrics and, for human readers, in
// the stored counter.
func recordView(c *gin.Context, books BookStore, book *entities.Book) {
	isBot := IsBot(c)
	metrics.ObserveBookView(isBot)
	if isBot {
		return
	}
	if err := books.IncrementViews(book.ID); err != nil {
		logging.FromContext(c.Request.Context()).Warn().Err(err).Uint("book_id", book.ID).Msg("failed to count view")
		return
	}
	book.Views++
}

func (bc *BooksController) ListBooks(c *gin.Context) {
	limit, offset := parsePagination(c)
	books, total, err := bc.books.ListBooks(limit, offset)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, paginated(toBookDTOs(books), total, limit, offset))
}

func (bc *BooksController) SearchBooks(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}
	limit, _ := parsePagination(c)
	books, err := bc.books.SearchBooks(query, limit)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBookDTOs(books), "query": query})
}

func (bc *BooksController) GetBook(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}
	recordView(c, bc.books, book)

	detail := BookDetailDTO{BookDTO: toBookDTO(book)}
	if bc.follows != nil {
		if n, err := bc.follows.CountFollowers(book.ID); err == nil {
			detail.Followers = n
		}
		if userID := auth.GetUserID(c); userID != auth.DefaultUserID {
			detail.Following, _ = bc.follows.IsFollowing(userID, book.ID)
		}
	}
	c.JSON(http.StatusOK, detail)
}

func (bc *BooksController) CreateBook(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book := &entities.Book{AuthorID: auth.GetUserID(c)}
	if msg := req.apply(book); msg != "" {
		respondBadRequest(c, msg)
		return
	}
	if err := bc.books.CreateBook(book); err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	c.Header("Location", "/api/books/"+book.Slug)
	respondCreated(c, toBookDTO(book))
}

func (bc *BooksController) UpdateBook(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}
	if !canEditBook(c, book) {
		respondForbidden(c)
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if msg := req.apply(book); msg != "" {
		respondBadRequest(c, msg)
		return
	}
	if err := bc.books.UpdateBook(book); err != nil {
		respondInternalError(c, err, "update book")
		return
	}

	updated, err := bc.books.GetBookByID(book.ID)
	if err != nil {
		respondStoreError(c, err, "book")
		return
	}
	c.JSON(http.StatusOK, toBookDTO(updated))
}

func (bc *BooksController) DeleteBook(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}
	if !canEditBook(c, book) {
		respondForbidden(c)
		return
	}
	if err := bc.books.DeleteBook(book.ID); err != nil {
		respondStoreError(c, err, "book")
		return
	}
	respondSuccess(c, "book deleted")
}

// MyBooks lists the books written by the caller.
func (bc *BooksController) MyBooks(c *gin.Context) {
	books, err := bc.books.ListBooksByAuthor(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list own books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBookDTOs(books)})
}

// SlugPreview shows the slug a title would get and how it reads back.
func (bc *BooksController) SlugPreview(c *gin.Context) {
	title := c.Query("title")
	s := slug.Slugify(title)
	c.JSON(http.StatusOK, gin.H{
		"slug":    s,
		"display": slug.Deslugify(s),
	})
}
