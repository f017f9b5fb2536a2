package http

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/auth"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
	"github.com/readowl/readowl/internal/slug"
)

const catalogPageSize = 24

// maxCatalogPage keeps the page offset arithmetic from overflowing.
const maxCatalogPage = math.MaxInt32 / catalogPageSize

// Breadcrumb is one step of the page trail. The last crumb has no URL.
type Breadcrumb struct {
	Label string
	URL   string
}

type UIController struct {
	books         BookStore
	chapters      ChapterStore
	follows       FollowStore
	notifications NotificationStore
}

func NewUIController(books BookStore, chapters ChapterStore, follows FollowStore, notifications NotificationStore) *UIController {
	return &UIController{
		books:         books,
		chapters:      chapters,
		follows:       follows,
		notifications: notifications,
	}
}

// page assembles the data shared by every template.
func (ui *UIController) page(c *gin.Context, title string, crumbs []Breadcrumb, data gin.H) gin.H {
	out := gin.H{
		"Title":       title,
		"Auth":        GetAuthTemplateData(c),
		"CSRFField":   auth.CSRFField(c),
		"ReadOnly":    isReadOnly(c),
		"Breadcrumbs": crumbs,
		"Flash":       c.Query("msg"),
	}
	if userID := auth.GetUserID(c); userID != auth.DefaultUserID && ui.notifications != nil {
		if n, err := ui.notifications.UnreadCount(userID); err == nil {
			out["UnreadCount"] = n
		}
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

func home() Breadcrumb {
	return Breadcrumb{Label: "Home", URL: "/"}
}

func bookURL(b *entities.Book) string {
	return "/books/" + b.URLSlug()
}

// lastCatalogPage is the highest page that has books, or 1 for an empty catalog.
func lastCatalogPage(total int64) int {
	if total <= 0 {
		return 1
	}
	return int((total + catalogPageSize - 1) / catalogPageSize)
}

// CatalogPage lists books, or search results when q is set.
func (ui *UIController) CatalogPage(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	pageNum, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || pageNum < 1 {
		pageNum = 1
	}

	var (
		books []entities.Book
		total int64
	)
	if query != "" {
		books, err = ui.books.SearchBooks(query, catalogPageSize)
		total = int64(len(books))
	} else {
		pageNum = min(pageNum, maxCatalogPage)
		books, total, err = ui.books.ListBooks(catalogPageSize, (pageNum-1)*catalogPageSize)
		if last := lastCatalogPage(total); err == nil && pageNum > last {
			pageNum = last
			books, total, err = ui.books.ListBooks(catalogPageSize, (pageNum-1)*catalogPageSize)
		}
	}
	if err != nil {
		ui.renderError(c, err, "load catalog")
		return
	}

	c.HTML(http.StatusOK, "catalog.html", ui.page(c, "Readowl", nil, gin.H{
		"Books":   books,
		"Query":   query,
		"Total":   total,
		"Page":    pageNum,
		"HasPrev": query == "" && pageNum > 1,
		"HasNext": query == "" && pageNum < lastCatalogPage(total),
	}))
}

// loadBook resolves :slug for a page, rendering 404 when it does not.
func (ui *UIController) loadBook(c *gin.Context) (*entities.Book, bool) {
	s := c.Param("slug")
	if !slug.IsValid(s) {
		ui.renderNotFound(c)
		return nil, false
	}
	book, err := ui.books.GetBookBySlug(s)
	if err != nil {
		if isNotFound(err) {
			ui.renderNotFound(c)
		} else {
			ui.renderError(c, err, "load book")
		}
		return nil, false
	}
	return book, true
}

func (ui *UIController) BookPage(c *gin.Context) {
	book, ok := ui.loadBook(c)
	if !ok {
		return
	}
	recordView(c, ui.books, book)

	editable := canEditBook(c, book)
	chapters, err := ui.chapters.ListChapters(book.ID, editable)
	if err != nil {
		ui.renderError(c, err, "list chapters")
		return
	}

	followers, following := ui.followState(c, book.ID)
	c.HTML(http.StatusOK, "book.html", ui.page(c, book.Title, []Breadcrumb{
		home(),
		{Label: book.Title},
	}, gin.H{
		"Book":      book,
		"Chapters":  chapters,
		"Editable":  editable,
		"Followers": followers,
		"Following": following,
	}))
}

func (ui *UIController) followState(c *gin.Context, bookID uint) (int64, bool) {
	if ui.follows == nil {
		return 0, false
	}
	followers, _ := ui.follows.CountFollowers(bookID)
	following := false
	if userID := auth.GetUserID(c); userID != auth.DefaultUserID {
		following, _ = ui.follows.IsFollowing(userID, bookID)
	}
	return followers, following
}

func (ui *UIController) ChapterPage(c *gin.Context) {
	book, ok := ui.loadBook(c)
	if !ok {
		return
	}
	s := c.Param("chapterSlug")
	if !slug.IsValid(s) {
		ui.renderNotFound(c)
		return
	}
	ch, err := ui.chapters.GetChapterBySlug(book.ID, s)
	if err != nil {
		if isNotFound(err) {
			ui.renderNotFound(c)
		} else {
			ui.renderError(c, err, "load chapter")
		}
		return
	}
	if !ch.IsPublished() && !canEditBook(c, book) {
		ui.renderNotFound(c)
		return
	}

	var prev, next *entities.Chapter
	if ch.IsPublished() {
		prev, next, err = ui.chapters.AdjacentChapters(ch)
		if err != nil {
			ui.renderError(c, err, "load adjacent chapters")
			return
		}
	}

	c.HTML(http.StatusOK, "chapter.html", ui.page(c, ch.Title+" · "+book.Title, []Breadcrumb{
		home(),
		{Label: book.Title, URL: bookURL(book)},
		{Label: ch.Title},
	}, gin.H{
		"Book":    book,
		"Chapter": ch,
		"Prev":    prev,
		"Next":    next,
	}))
}

// FollowForm handles the follow and unfollow buttons. HTMX requests get
// the button fragment back, plain forms are redirected to the book.
func (ui *UIController) FollowForm(follow bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		book, ok := ui.loadBook(c)
		if !ok {
			return
		}
		userID := auth.GetUserID(c)
		var err error
		if follow {
			err = ui.follows.Follow(userID, book.ID)
		} else {
			err = ui.follows.Unfollow(userID, book.ID)
		}
		if err != nil {
			ui.renderError(c, err, "update follow")
			return
		}

		if isHTMXRequest(c) {
			followers, following := ui.followState(c, book.ID)
			c.HTML(http.StatusOK, "follow_button", ui.page(c, "", nil, gin.H{
				"Book":      book,
				"Followers": followers,
				"Following": following,
			}))
			return
		}
		c.Redirect(http.StatusSeeOther, bookURL(book))
	}
}

func (ui *UIController) NotificationsPage(c *gin.Context) {
	limit, offset := parsePagination(c)
	items, total, err := ui.notifications.ListNotifications(auth.GetUserID(c), false, limit, offset)
	if err != nil {
		ui.renderError(c, err, "list notifications")
		return
	}
	c.HTML(http.StatusOK, "notifications.html", ui.page(c, "Notifications", []Breadcrumb{
		home(),
		{Label: "Notifications"},
	}, gin.H{
		"Notifications": items,
		"Total":         total,
	}))
}

// OpenNotification marks a notification read and follows its link.
func (ui *UIController) OpenNotification(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		ui.renderNotFound(c)
		return
	}
	userID := auth.GetUserID(c)
	n, err := ui.notifications.GetNotification(userID, uint(id))
	if err != nil {
		if isNotFound(err) {
			ui.renderNotFound(c)
		} else {
			ui.renderError(c, err, "load notification")
		}
		return
	}
	if err := ui.notifications.MarkRead(userID, n.ID); err != nil {
		ui.renderError(c, err, "mark notification read")
		return
	}

	target := "/notifications"
	if strings.HasPrefix(n.Link, "/") && !strings.HasPrefix(n.Link, "//") {
		target = n.Link
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (ui *UIController) MarkAllNotificationsRead(c *gin.Context) {
	if _, err := ui.notifications.MarkAllRead(auth.GetUserID(c)); err != nil {
		ui.renderError(c, err, "mark notifications read")
		return
	}
	c.Redirect(http.StatusSeeOther, "/notifications?msg="+url.QueryEscape("All caught up"))
}

func (ui *UIController) LibraryPage(c *gin.Context) {
	books, err := ui.follows.ListFollowedBooks(auth.GetUserID(c))
	if err != nil {
		ui.renderError(c, err, "list library")
		return
	}
	c.HTML(http.StatusOK, "library.html", ui.page(c, "Library", []Breadcrumb{
		home(),
		{Label: "Library"},
	}, gin.H{"Books": books}))
}

// NotFound answers unmatched routes: JSON for API clients, otherwise the
// 404 page.
func (ui *UIController) NotFound(c *gin.Context) {
	if auth.IsAPIRequest(c) {
		respondError(c, http.StatusNotFound, "not found")
		return
	}
	ui.renderNotFound(c)
}

// renderNotFound shows the 404 page. Book and chapter slugs that did not
// resolve are still shown as readable labels in the trail.
func (ui *UIController) renderNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "not_found.html", ui.page(c, "Not found", notFoundCrumbs(c.Request.URL.Path), nil))
	c.Abort()
}

func notFoundCrumbs(path string) []Breadcrumb {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "books" {
		return []Breadcrumb{home(), {Label: "Not found"}}
	}

	crumbs := []Breadcrumb{home()}
	for i, p := range parts[1:] {
		if i >= 2 {
			break
		}
		label := slug.Deslugify(p)
		if label == "" {
			label = "Untitled"
		}
		crumbs = append(crumbs, Breadcrumb{Label: label})
	}
	return crumbs
}

func (ui *UIController) renderError(c *gin.Context, err error, operation string) {
	logging.FromContext(c.Request.Context()).Error().Err(err).Str("operation", operation).Msg("page failed")
	c.HTML(http.StatusInternalServerError, "error.html", ui.page(c, "Something went wrong", []Breadcrumb{home()}, nil))
	c.Abort()
}
