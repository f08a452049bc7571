package pages

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

const highlightStyle = "github"

// Catalog holds the posts parsed from Markdown files with YAML front matter.
type Catalog struct {
	posts []models.Post
	byID  map[string]models.Post
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			meta.Meta,
			extension.Table,
			highlighting.NewHighlighting(
				highlighting.WithStyle(highlightStyle),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
	)
}

// LoadCatalog parses every *.md file in dir.
func LoadCatalog(fsys fs.FS, dir string) (*Catalog, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	md := newMarkdown()
	c := &Catalog{byID: make(map[string]models.Post)}
	for _, name := range names {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		p, err := parsePost(md, src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate post id %q", name, p.ID)
		}
		c.byID[p.ID] = p
		c.posts = append(c.posts, p)
	}
	sort.Slice(c.posts, func(i, j int) bool {
		return lessID(c.posts[i].ID, c.posts[j].ID)
	})
	return c, nil
}

// numeric ids sort numerically, everything else lexically after them
func lessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}

func parsePost(md goldmark.Markdown, src []byte) (models.Post, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext()
	if err := md.Convert(src, &buf, parser.WithContext(ctx)); err != nil {
		return models.Post{}, err
	}
	fm, err := meta.TryGet(ctx)
	if err != nil {
		return models.Post{}, fmt.Errorf("front matter: %w", err)
	}

	str := func(key string) string {
		v, ok := fm[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	}

	p := models.Post{
		ID:       str("id"),
		Title:    str("title"),
		Excerpt:  str("excerpt"),
		Author:   str("author"),
		ReadTime: str("readTime"),
		HTML:     buf.String(),
	}
	if p.ID == "" || p.Title == "" {
		return models.Post{}, fmt.Errorf("front matter needs id and title")
	}
	switch v := fm["publishedAt"].(type) {
	case time.Time:
		p.PublishedAt = v.UTC()
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return models.Post{}, fmt.Errorf("publishedAt: %w", err)
		}
		p.PublishedAt = t.UTC()
	}
	return p, nil
}

func (c *Catalog) All() []models.Post {
	out := make([]models.Post, len(c.posts))
	copy(out, c.posts)
	return out
}

func (c *Catalog) Get(id string) (models.Post, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// HighlightCSS returns the stylesheet for the classes emitted by the
// code highlighter.
func HighlightCSS() ([]byte, error) {
	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, styles.Get(highlightStyle)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
