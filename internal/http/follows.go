package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/auth"
)

type FollowsController struct {
	books   *BooksController
	follows FollowStore
}

func NewFollowsController(books *BooksController, follows FollowStore) *FollowsController {
	return &FollowsController{
		books:   books,
		follows: follows,
	}
}

func (fc *FollowsController) Follow(c *gin.Context) {
	book, ok := fc.books.loadBook(c)
	if !ok {
		return
	}
	if err := fc.follows.Follow(auth.GetUserID(c), book.ID); err != nil {
		respondInternalError(c, err, "follow book")
		return
	}
	fc.respond(c, book.ID, true)
}

func (fc *FollowsController) Unfollow(c *gin.Context) {
	book, ok := fc.books.loadBook(c)
	if !ok {
		return
	}
	if err := fc.follows.Unfollow(auth.GetUserID(c), book.ID); err != nil {
		respondInternalError(c, err, "unfollow book")
		return
	}
	fc.respond(c, book.ID, false)
}

func (fc *FollowsController) respond(c *gin.Context, bookID uint, following bool) {
	followers, err := fc.follows.CountFollowers(bookID)
	if err != nil {
		respondInternalError(c, err, "count followers")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"following": following,
		"followers": followers,
	})
}

// Library lists the books the caller follows.
func (fc *FollowsController) Library(c *gin.Context) {
	books, err := fc.follows.ListFollowedBooks(auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list followed books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBookDTOs(books)})
}
