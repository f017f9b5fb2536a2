package http

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"github.com/readowl/readowl/internal/render"
	"github.com/readowl/readowl/internal/slug"
)

//go:embed templates static
var embedded embed.FS

// DefaultTemplates returns the page templates compiled into the binary.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// DefaultStatic returns the stylesheet and other assets compiled into the
// binary.
func DefaultStatic() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"markdown":  render.Markdown,
		"excerpt":   render.Excerpt,
		"deslugify": slug.Deslugify,
		"date": func(t time.Time) string {
			return t.Format("2 Jan 2006")
		},
		"datePtr": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2 Jan 2006")
		},
		"add":      func(a, b int) int { return a + b },
		"subtract": func(a, b int) int { return a - b },
	}
}

// loadTemplates parses every top-level page of fsys. Pages are executed by
// file name, for example "catalog.html".
func loadTemplates(fsys fs.FS) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
