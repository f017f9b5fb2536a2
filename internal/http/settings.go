package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/readowl/readowl/internal/settingsstore"
	"github.com/readowl/readowl/internal/useragent"
)

// SettingsController serves the admin settings API.
type SettingsController struct {
	bots  BotSettings
	books BookStore
}

func NewSettingsController(bots BotSettings, books BookStore) *SettingsController {
	return &SettingsController{
		bots:  bots,
		books: books,
	}
}

// BotKeywordsRequest accepts either a list or a comma-separated string.
type BotKeywordsRequest struct {
	Keywords    []string `json:"keywords"`
	KeywordsCSV string   `json:"keywords_csv"`
}

func (sc *SettingsController) GetBotKeywords(c *gin.Context) {
	c.JSON(http.StatusOK, sc.bots.GetBotKeywordsInfo())
}

func (sc *SettingsController) UpdateBotKeywords(c *gin.Context) {
	var req BotKeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	keywords := req.Keywords
	if len(keywords) == 0 {
		keywords = useragent.ParseKeywords(req.KeywordsCSV)
	}

	if err := sc.bots.SetBotKeywords(keywords); err != nil {
		if errors.Is(err, settingsstore.ErrNoKeywords) || errors.Is(err, settingsstore.ErrKeywordComma) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "save bot keywords")
		return
	}
	c.JSON(http.StatusOK, sc.bots.GetBotKeywordsInfo())
}

// ResetBotKeywords drops the stored override.
func (sc *SettingsController) ResetBotKeywords(c *gin.Context) {
	if err := sc.bots.ClearBotKeywords(); err != nil {
		respondInternalError(c, err, "clear bot keywords")
		return
	}
	c.JSON(http.StatusOK, sc.bots.GetBotKeywordsInfo())
}

// ClassifyRequest is the body of POST /api/admin/settings/bot-keywords/test.
type ClassifyRequest struct {
	UserAgent string `json:"user_agent"`
}

// TestUserAgent classifies a user agent with the current keywords.
func (sc *SettingsController) TestUserAgent(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_agent": req.UserAgent,
		"is_bot":     sc.bots.IsLikelyBot(req.UserAgent),
	})
}

// BackfillSlugs assigns slugs to every stored book that lacks one.
func (sc *SettingsController) BackfillSlugs(c *gin.Context) {
	n, err := sc.books.BackfillSlugs()
	if err != nil {
		respondInternalError(c, err, "backfill slugs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
