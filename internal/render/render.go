// Package render turns user-authored markdown (chapter bodies, book
// synopses) into sanitized HTML for templates.
package render

import (
	"bytes"
	"html"
	"html/template"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	initOnce     sync.Once
	md           goldmark.Markdown
	ugcPolicy    *bluemonday.Policy
	strictPolicy *bluemonday.Policy
)

func setup() {
	initOnce.Do(func() {
		md = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
		)
		ugcPolicy = bluemonday.UGCPolicy()
		strictPolicy = bluemonday.StrictPolicy()
	})
}

// Markdown renders src as GitHub-flavoured markdown and strips anything
// the UGC policy does not allow (scripts, event handlers, javascript: URLs).
func Markdown(src string) template.HTML {
	setup()

	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(ugcPolicy.SanitizeBytes(buf.Bytes()))
}

// PlainText renders src and drops all markup, collapsing whitespace.
func PlainText(src string) string {
	setup()

	var buf bytes.Buffer
	text := src
	if err := md.Convert([]byte(src), &buf); err == nil {
		text = buf.String()
	}
	text = html.UnescapeString(strictPolicy.Sanitize(text))
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns at most n runes of the plain text of src, cut at a word
// boundary when possible and suffixed with an ellipsis when shortened.
func Excerpt(src string, n int) string {
	text := PlainText(src)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
