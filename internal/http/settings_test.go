package http

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/settingsstore"
)

func TestSettings_BotKeywordsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, readerToken := env.user("reader1", entities.UserRoleReader)

	w := env.do(http.MethodGet, "/api/admin/settings/bot-keywords", nil, bearer(readerToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/api/admin/settings/bot-keywords", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSettings_BotKeywordsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)
	_, adminToken := env.user("boss", entities.UserRoleAdmin)
	book := env.book(author.ID, "Watched")

	w := env.do(http.MethodGet, "/api/admin/settings/bot-keywords", nil, bearer(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[settingsstore.BotKeywordsInfo](t, w)
	assert.Equal(t, settingsstore.SourceDefault, info.Source)
	assert.Contains(t, info.Keywords, "curl")

	w = env.do(http.MethodPut, "/api/admin/settings/bot-keywords", gin.H{"keywords": []string{}}, bearer(adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/api/admin/settings/bot-keywords", gin.H{"keywords": []string{"compatible, msie"}}, bearer(adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/api/admin/settings/bot-keywords", gin.H{"keywords_csv": "MyCrawler, special"}, bearer(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	info = decode[settingsstore.BotKeywordsInfo](t, w)
	assert.Equal(t, settingsstore.SourceDatabase, info.Source)
	assert.Equal(t, []string{"mycrawler", "special"}, info.Keywords)

	// the new list applies to the next request without a restart
	env.do(http.MethodGet, "/api/books/"+book.Slug, nil, userAgent("curl/8.4.0"))
	env.do(http.MethodGet, "/api/books/"+book.Slug, nil, userAgent("MyCrawler/1.0"))
	stored, err := env.books.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Views)

	w = env.do(http.MethodPost, "/api/admin/settings/bot-keywords/test", gin.H{"user_agent": "MyCrawler/2"}, bearer(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["is_bot"])

	w = env.do(http.MethodDelete, "/api/admin/settings/bot-keywords", nil, bearer(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, settingsstore.SourceDefault, decode[settingsstore.BotKeywordsInfo](t, w).Source)
}

func TestSettings_BackfillSlugs(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.user("writer", entities.UserRoleAuthor)
	_, adminToken := env.user("boss", entities.UserRoleAdmin)

	legacy := entities.Book{AuthorID: author.ID, Title: "Velho Livro"}
	require.NoError(t, env.db.DB.Omit("Author", "Chapters").Create(&legacy).Error)

	w := env.do(http.MethodPost, "/api/admin/slugs/backfill", nil, bearer(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, w)["updated"])

	stored, err := env.books.GetBookByID(legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "velho-livro", stored.Slug)
}
