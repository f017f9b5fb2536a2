package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/render"
	"github.com/readowl/readowl/internal/slug"
)

type ChaptersController struct {
	books     *BooksController
	chapters  ChapterStore
	publisher ChapterPublisher
}

func NewChaptersController(books *BooksController, chapters ChapterStore, publisher ChapterPublisher) *ChaptersController {
	return &ChaptersController{
		books:     books,
		chapters:  chapters,
		publisher: publisher,
	}
}

// ChapterRequest is the body of chapter create and update calls.
type ChapterRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Position *int    `json:"position"`
	Publish  bool    `json:"publish"`
}

func (r ChapterRequest) apply(ch *entities.Chapter) string {
	if r.Title != nil {
		ch.Title = strings.TrimSpace(*r.Title)
	}
	if r.Content != nil {
		ch.Content = *r.Content
	}
	if r.Position != nil {
		ch.Position = *r.Position
	}

	switch {
	case ch.Title == "":
		return "title is required"
	case len(ch.Title) > maxTitleLength:
		return "title is too long"
	case ch.Position < 0:
		return "position must not be negative"
	}
	return ""
}

// loadChapter resolves :slug and :chapterSlug. Drafts are only visible to
// those who may edit the book.
func (cc *ChaptersController) loadChapter(c *gin.Context) (*entities.Book, *entities.Chapter, bool) {
	book, ok := cc.books.loadBook(c)
	if !ok {
		return nil, nil, false
	}
	s := c.Param("chapterSlug")
	if !slug.IsValid(s) {
		respondNotFound(c, "chapter")
		return nil, nil, false
	}
	ch, err := cc.chapters.GetChapterBySlug(book.ID, s)
	if err != nil {
		respondStoreError(c, err, "chapter")
		return nil, nil, false
	}
	if !ch.IsPublished() && !canEditBook(c, book) {
		respondNotFound(c, "chapter")
		return nil, nil, false
	}
	return book, ch, true
}

func (cc *ChaptersController) ListChapters(c *gin.Context) {
	book, ok := cc.books.loadBook(c)
	if !ok {
		return
	}
	chapters, err := cc.chapters.ListChapters(book.ID, canEditBook(c, book))
	if err != nil {
		respondInternalError(c, err, "list chapters")
		return
	}
	c.JSON(http.StatusOK, gin.H{"book": book.URLSlug(), "data": toChapterDTOs(chapters)})
}

func (cc *ChaptersController) GetChapter(c *gin.Context) {
	_, ch, ok := cc.loadChapter(c)
	if !ok {
		return
	}
	detail, err := cc.detail(ch)
	if err != nil {
		respondInternalError(c, err, "load adjacent chapters")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (cc *ChaptersController) detail(ch *entities.Chapter) (ChapterDetailDTO, error) {
	detail := ChapterDetailDTO{
		ChapterDTO:  toChapterDTO(ch),
		Content:     ch.Content,
		ContentHTML: string(render.Markdown(ch.Content)),
	}
	if !ch.IsPublished() {
		return detail, nil
	}
	prev, next, err := cc.chapters.AdjacentChapters(ch)
	if err != nil {
		return detail, err
	}
	if prev != nil {
		p := toChapterDTO(prev)
		detail.Prev = &p
	}
	if next != nil {
		n := toChapterDTO(next)
		detail.Next = &n
	}
	return detail, nil
}

func (cc *ChaptersController) CreateChapter(c *gin.Context) {
	book, ok := cc.books.loadBook(c)
	if !ok {
		return
	}
	if !canEditBook(c, book) {
		respondForbidden(c)
		return
	}

	var req ChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	ch := &entities.Chapter{BookID: book.ID}
	if msg := req.apply(ch); msg != "" {
		respondBadRequest(c, msg)
		return
	}
	if err := cc.chapters.CreateChapter(ch); err != nil {
		respondInternalError(c, err, "create chapter")
		return
	}

	if req.Publish {
		published, err := cc.publish(c, ch.ID)
		if err != nil {
			respondInternalError(c, err, "publish chapter")
			return
		}
		ch = published
	}

	c.Header("Location", "/api/books/"+book.URLSlug()+"/chapters/"+ch.URLSlug())
	respondCreated(c, toChapterDTO(ch))
}

func (cc *ChaptersController) UpdateChapter(c *gin.Context) {
	book, ch, ok := cc.loadChapter(c)
	if !ok {
		return
	}
	if !canEditBook(c, book) {
		respondForbidden(c)
		return
	}

	var req ChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if msg := req.apply(ch); msg != "" {
		respondBadRequest(c, msg)
		return
	}
	if err := cc.chapters.UpdateChapter(ch); err != nil {
		respondInternalError(c, err, "update chapter")
		return
	}
	if req.Publish && !ch.IsPublished() {
		published, err := cc.publish(c, ch.ID)
		if err != nil {
			respondInternalError(c, err, "publish chapter")
			return
		}
		ch = published
	}
	c.JSON(http.StatusOK, toChapterDTO(ch))
}

func (cc *ChaptersController) PublishChapter(c *gin.Context) {
	book, ch, ok := cc.loadChapter(c)
	if !ok {
		return
	}
	if !canEditBook(c, book) {
		respondForbidden(c)
		return
	}
	published, err := cc.publish(c, ch.ID)
	if err != nil {
		respondInternalError(c, err, "publish chapter")
		return
	}
	c.JSON(http.StatusOK, toChapterDTO(published))
}

func (cc *ChaptersController) publish(c *gin.Context, chapterID uint) (*entities.Chapter, error) {
	return cc.publisher.PublishChapter(c.Request.Context(), chapterID)
}

func (cc *ChaptersController) DeleteChapter(c *gin.Context) {
	book, ch, ok := cc.loadChapter(c)
	if !ok {
		return
	}
	if !canEditBook(c, book) {
		respondForbidden(c)
		return
	}
	if err := cc.chapters.DeleteChapter(ch.ID); err != nil {
		respondStoreError(c, err, "chapter")
		return
	}
	respondSuccess(c, "chapter deleted")
}
