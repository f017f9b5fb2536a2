// Package useragent flags automated HTTP clients from their User-Agent header.
//
// Classification is a keyword membership test: a user agent containing any
// configured keyword (case-insensitive) is treated as a bot. Agents that
// contain none of them are treated as humans, so unlisted bots slip through
// and legitimate clients whose name contains a keyword are flagged.
//
// The keyword list is configuration. Build a Classifier from DefaultKeywords,
// from a comma-separated list (ParseKeywords) or from a YAML file
// (LoadKeywordsFile).
package useragent

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultKeywords covers common crawler signatures and HTTP client libraries.
var DefaultKeywords = []string{
	// crawlers and link previewers
	"bot",
	"crawl",
	"spider",
	"slurp",
	"mediapartners",
	"facebookexternalhit",
	"embedly",
	"quora link preview",
	"preview",
	"headless",
	"lighthouse",
	"pingdom",
	"uptime",
	"archive.org_bot",
	"ia_archiver",
	"feedfetcher",
	// HTTP client libraries
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"aiohttp",
	"httpclient",
	"go-http-client",
	"okhttp",
	"axios",
	"node-fetch",
	"undici",
	"libwww",
	"scrapy",
	"java/",
	"httpie",
	"postman",
}

// Classifier tests user agents against a fixed keyword set.
// It is immutable and safe for concurrent use.
type Classifier struct {
	keywords []string
	pattern  *regexp.Regexp
}

// New builds a classifier. Keywords are trimmed, lowercased and
// de-duplicated; empty entries are dropped. A classifier without keywords
// never flags anything.
func New(keywords []string) *Classifier {
	normalized := normalize(keywords)
	if len(normalized) == 0 {
		return &Classifier{}
	}

	quoted := make([]string, len(normalized))
	for i, k := range normalized {
		quoted[i] = regexp.QuoteMeta(k)
	}

	return &Classifier{
		keywords: normalized,
		pattern:  regexp.MustCompile(strings.Join(quoted, "|")),
	}
}

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier built from DefaultKeywords.
func Default() *Classifier {
	defaultOnce.Do(func() {
		defaultClassifier = New(DefaultKeywords)
	})
	return defaultClassifier
}

// IsLikelyBot classifies userAgent with the default keyword set.
func IsLikelyBot(userAgent string) bool {
	return Default().IsLikelyBot(userAgent)
}

// IsLikelyBot reports whether userAgent contains one of the keywords.
// An empty user agent (absent header) is never a bot.
func (c *Classifier) IsLikelyBot(userAgent string) bool {
	if c == nil || c.pattern == nil || userAgent == "" {
		return false
	}
	return c.pattern.MatchString(strings.ToLower(userAgent))
}

// Keywords returns a copy of the normalized keyword list.
func (c *Classifier) Keywords() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keywords))
	copy(out, c.keywords)
	return out
}

// ParseKeywords splits a comma-separated keyword list.
func ParseKeywords(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	return normalize(strings.Split(csv, ","))
}

// keywordsFile is the YAML layout accepted by LoadKeywordsFile:
//
//	keywords:
//	  - bot
//	  - curl
type keywordsFile struct {
	Keywords []string `yaml:"keywords"`
}

// LoadKeywordsFile reads a keyword list from a YAML file.
func LoadKeywordsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}

	var f keywordsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse keywords file %s: %w", path, err)
	}

	return normalize(f.Keywords), nil
}

func normalize(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
