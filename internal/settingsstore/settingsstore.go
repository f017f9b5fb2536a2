package settingsstore

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/readowl/readowl/internal/config"
	"github.com/readowl/readowl/internal/entities"
	"github.com/readowl/readowl/internal/logging"
	"github.com/readowl/readowl/internal/useragent"
)

// Sources of the effective bot keyword list, highest priority first.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
	SourceFile        = "file"
	SourceDefault     = "default"
)

var (
	ErrNoKeywords = errors.New("at least one keyword is required")
	// ErrKeywordComma rejects keywords that would split apart when the
	// comma-separated setting is read back.
	ErrKeywordComma = errors.New("keywords must not contain commas")
)

// SettingsRepository is the subset of the settings repository the store needs.
type SettingsRepository interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// BotKeywordsInfo describes the effective keyword list and where it came from.
type BotKeywordsInfo struct {
	Keywords []string `json:"keywords"`
	Source   string   `json:"source"` // "database", "environment", "file" or "default"
}

// SettingsStore resolves runtime settings with priority database > environment > default
// and keeps the bot classifier built from the current keyword list.
type SettingsStore struct {
	repo SettingsRepository

	envKeywords []string
	envSource   string

	mu         sync.RWMutex
	classifier *useragent.Classifier
	source     string
}

// New builds the store and the initial classifier. BOT_KEYWORDS wins over
// BOT_KEYWORDS_FILE; an unreadable keywords file is an error.
func New(repo SettingsRepository, cfg config.Bots) (*SettingsStore, error) {
	s := &SettingsStore{repo: repo}

	switch {
	case strings.TrimSpace(cfg.Keywords) != "":
		s.envKeywords = useragent.ParseKeywords(cfg.Keywords)
		s.envSource = SourceEnvironment
	case cfg.KeywordsFile != "":
		keywords, err := useragent.LoadKeywordsFile(cfg.KeywordsFile)
		if err != nil {
			return nil, err
		}
		s.envKeywords = keywords
		s.envSource = SourceFile
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the database setting and rebuilds the classifier.
func (s *SettingsStore) Reload() error {
	keywords, source := useragent.DefaultKeywords, SourceDefault

	setting, err := s.repo.GetSetting(entities.SettingKeyBotKeywords)
	switch {
	case err == nil && strings.TrimSpace(setting.Value) != "":
		keywords, source = useragent.ParseKeywords(setting.Value), SourceDatabase
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("load bot keywords: %w", err)
	case len(s.envKeywords) > 0:
		keywords, source = s.envKeywords, s.envSource
	}

	classifier := useragent.New(keywords)

	s.mu.Lock()
	s.classifier = classifier
	s.source = source
	s.mu.Unlock()

	logging.WithComponent("settings").Debug().
		Str("source", source).
		Int("keywords", len(classifier.Keywords())).
		Msg("bot classifier rebuilt")
	return nil
}

// Classifier returns the classifier for the current keyword list.
func (s *SettingsStore) Classifier() *useragent.Classifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifier
}

// IsLikelyBot classifies userAgent with the current keyword list.
func (s *SettingsStore) IsLikelyBot(userAgent string) bool {
	return s.Classifier().IsLikelyBot(userAgent)
}

func (s *SettingsStore) GetBotKeywordsInfo() BotKeywordsInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BotKeywordsInfo{
		Keywords: s.classifier.Keywords(),
		Source:   s.source,
	}
}

// SetBotKeywords stores keywords in the database and applies them immediately.
func (s *SettingsStore) SetBotKeywords(keywords []string) error {
	for _, k := range keywords {
		if strings.Contains(k, ",") {
			return fmt.Errorf("%w: %q", ErrKeywordComma, k)
		}
	}
	normalized := useragent.New(keywords).Keywords()
	if len(normalized) == 0 {
		return ErrNoKeywords
	}
	if err := s.repo.SetSetting(entities.SettingKeyBotKeywords, strings.Join(normalized, ",")); err != nil {
		return fmt.Errorf("save bot keywords: %w", err)
	}
	return s.Reload()
}

// ClearBotKeywords removes the database override, falling back to the
// environment or the built-in list.
func (s *SettingsStore) ClearBotKeywords() error {
	if err := s.repo.DeleteSetting(entities.SettingKeyBotKeywords); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("clear bot keywords: %w", err)
	}
	return s.Reload()
}
