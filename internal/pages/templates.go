package pages

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pageFiles = map[string]string{
	"home":      "templates/home.html",
	"ssr":       "templates/ssr.html",
	"isr_index": "templates/isr_index.html",
	"isr_post":  "templates/isr_post.html",
	"image":     "templates/image.html",
	"font":      "templates/font.html",
	"env":       "templates/env.html",
	"not_found": "templates/not_found.html",
	"error":     "templates/error.html",
}

var printer = message.NewPrinter(language.English)

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
}

// formatViews renders a counter the way an English reader expects: "1,234 views".
func formatViews(n int64) string {
	if n == 1 {
		return "1 view"
	}
	return printer.Sprintf("%d views", n)
}

type navItem struct {
	Path  string
	Label string
}

var nav = []navItem{
	{"/ssr-demo", "SSR"},
	{"/isr-demo", "ISR"},
	{"/image-demo", "Images"},
	{"/font-demo", "Fonts"},
	{"/env-demo", "Environment"},
	{"/api/server-info", "API"},
}

type layoutData struct {
	Title       string
	Description string
	AppName     string
	Version     string
	CurrentPath string
	Nav         []navItem
	Content     any
}

type templates map[string]*template.Template

func parseTemplates(fsys fs.FS) (templates, error) {
	base, err := template.New("layout").Funcs(funcs).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	out := make(templates, len(pageFiles))
	for name, file := range pageFiles {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		out[name] = t
	}
	return out, nil
}

func (ts templates) render(name string, data layoutData) ([]byte, error) {
	t, ok := ts[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
