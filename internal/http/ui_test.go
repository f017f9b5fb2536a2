package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readowl/readowl/internal/entities"
)

func TestUI_Catalog(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)
	env.book(author.ID, "Cinder Road")
	env.book(author.ID, "Glass Harbor")

	w := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cinder Road")
	assert.Contains(t, w.Body.String(), `href="/books/glass-harbor"`)

	w = env.do(http.MethodGet, "/?q=glass", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Glass Harbor")
	assert.NotContains(t, w.Body.String(), "Cinder Road")
}

func TestUI_CatalogPageOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)
	env.book(author.ID, "Cinder Road")
	env.book(author.ID, "Glass Harbor")

	for _, page := range []string{"3", "9223372036854775807", "4611686018427387904"} {
		w := env.do(http.MethodGet, "/?page="+page, nil)
		require.Equal(t, http.StatusOK, w.Code, page)
		body := w.Body.String()
		assert.Contains(t, body, "Cinder Road", page)
		assert.Contains(t, body, "Glass Harbor", page)
		assert.NotContains(t, body, `class="pager"`, page)
	}
}

func TestLastCatalogPage(t *testing.T) {
	assert.Equal(t, 1, lastCatalogPage(0))
	assert.Equal(t, 1, lastCatalogPage(catalogPageSize))
	assert.Equal(t, 2, lastCatalogPage(catalogPageSize+1))
}

func TestUI_LegacyBookLinksResolve(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)

	// rows stored before slugs were persisted
	published := time.Now()
	legacy := &entities.Book{AuthorID: author.ID, Title: "Velha Estrada", Status: entities.BookStatusOngoing}
	require.NoError(t, env.db.DB.Omit("Author", "Chapters").Create(legacy).Error)
	ch := &entities.Chapter{BookID: legacy.ID, Title: "Começo", Content: "Once upon a time.", Position: 1, PublishedAt: &published}
	require.NoError(t, env.db.DB.Create(ch).Error)
	require.Empty(t, legacy.Slug)

	w := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/books/velha-estrada"`)
	assert.NotContains(t, w.Body.String(), `href="/books/"`)

	w = env.do(http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"velha-estrada"`)

	w = env.do(http.MethodGet, "/books/velha-estrada", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/books/velha-estrada/comeco"`)

	w = env.do(http.MethodGet, "/books/velha-estrada/comeco", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Once upon a time.")
}

func TestUI_BookPage(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)
	book := env.book(author.ID, "A Rainha Vermelha")
	env.chapter(book.ID, "Capítulo Um", true)
	env.chapter(book.ID, "Secret Draft", false)

	w := env.do(http.MethodGet, "/books/a-rainha-vermelha", nil, userAgent(humanUA))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "A Rainha Vermelha")
	assert.Contains(t, body, `href="/books/a-rainha-vermelha/capitulo-um"`)
	assert.NotContains(t, body, "Secret Draft")
	assert.Contains(t, body, "<em>story</em>")

	env.do(http.MethodGet, "/books/a-rainha-vermelha", nil, userAgent(botUA))
	stored, err := env.books.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Views)
}

func TestUI_ChapterPage(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)
	book := env.book(author.ID, "Tides")
	env.chapter(book.ID, "Low Water", true)
	env.chapter(book.ID, "High Water", true)
	env.chapter(book.ID, "Unreleased", false)

	w := env.do(http.MethodGet, "/books/tides/low-water", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Once upon a time.")
	assert.Contains(t, body, `href="/books/tides/high-water"`)
	assert.Contains(t, body, `<a href="/books/tides">Tides</a>`)

	w = env.do(http.MethodGet, "/books/tides/unreleased", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUI_NotFoundShowsReadableSlug(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/books/o-livro-perdido", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "O Livro Perdido")

	w = env.do(http.MethodGet, "/books/o-livro-perdido/capitulo-nove", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Capitulo Nove")

	w = env.do(http.MethodGet, "/no/such/page", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")
}

func TestUI_InvalidSlugIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/books/--", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/books/Upper-Case", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUI_FollowForm(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)
	fan, token := env.user("fan", entities.UserRoleReader)
	book := env.book(author.ID, "Lanterns")

	w := env.do(http.MethodPost, "/books/lanterns/follow", nil, bearer(token))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/books/lanterns", w.Header().Get("Location"))

	following, err := env.follows.IsFollowing(fan.ID, book.ID)
	require.NoError(t, err)
	assert.True(t, following)

	w = env.do(http.MethodPost, "/books/lanterns/unfollow", nil, bearer(token), header("HX-Request", "true"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hx-post="/books/lanterns/follow"`)

	following, err = env.follows.IsFollowing(fan.ID, book.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestUI_PagesRequireLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/notifications", "/library"} {
		w := env.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/login?next=%2F"+path[1:], w.Header().Get("Location"))
	}
}

func TestUI_NotificationsFlow(t *testing.T) {
	env := newTestEnv(t)
	author, authorToken := env.user("writer", entities.UserRoleAuthor)
	fan, fanToken := env.user("fan", entities.UserRoleReader)
	book := env.book(author.ID, "Almanac")
	require.NoError(t, env.follows.Follow(fan.ID, book.ID))
	ch := env.chapter(book.ID, "Spring", false)
	w := env.do(http.MethodPost, "/api/books/almanac/chapters/"+ch.Slug+"/publish", nil, bearer(authorToken))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/notifications", nil, bearer(fanToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "New chapter in Almanac: Spring")

	items, _, err := env.notifications.ListNotifications(fan.ID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	w = env.do(http.MethodPost, "/notifications/"+uintString(items[0].ID)+"/open", nil, bearer(fanToken))
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/books/almanac/spring", w.Header().Get("Location"))

	unread, err := env.notifications.UnreadCount(fan.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	w = env.do(http.MethodGet, "/library", nil, bearer(fanToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Almanac")
}

func TestNotFoundCrumbs(t *testing.T) {
	tests := []struct {
		path   string
		labels []string
	}{
		{"/books/dark-tower", []string{"Home", "Dark Tower"}},
		{"/books/dark-tower/the-gunslinger", []string{"Home", "Dark Tower", "The Gunslinger"}},
		{"/elsewhere", []string{"Home", "Not found"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			crumbs := notFoundCrumbs(tt.path)
			labels := make([]string, len(crumbs))
			for i, c := range crumbs {
				labels[i] = c.Label
			}
			assert.Equal(t, tt.labels, labels)
		})
	}
}
