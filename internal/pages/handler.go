// Package pages renders the demo documents: per-request pages, pages served
// through the isr cache, and the embedded static assets.
package pages

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/isr"
	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	"github.com/devghori1264/aerophoenix/showcase/internal/serverinfo"
	"github.com/devghori1264/aerophoenix/showcase/internal/storage"
	"go.uber.org/zap"
)

const isrIndexKey = "/isr-demo"

func postKey(id string) string { return isrIndexKey + "/" + id }

// Options wires a Handler to its collaborators.
type Options struct {
	Settings        Settings
	Info            *serverinfo.Provider
	Cache           *isr.Cache
	Store           storage.Store
	Logger          *zap.Logger
	IndexRevalidate time.Duration
	PostRevalidate  time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Handler struct {
	opts         Options
	posts        *Catalog
	tmpl         templates
	static       http.Handler
	highlightCSS []byte
	logger       *zap.Logger
	now          func() time.Time
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Info == nil || opts.Cache == nil || opts.Store == nil {
		return nil, errors.New("pages: info, cache and store are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tmpl, err := parseTemplates(templateFS)
	if err != nil {
		return nil, err
	}
	posts, err := LoadCatalog(postsFS, "content/posts")
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	css, err := HighlightCSS()
	if err != nil {
		return nil, fmt.Errorf("highlight css: %w", err)
	}

	h := &Handler{
		opts:         opts,
		posts:        posts,
		tmpl:         tmpl,
		static:       staticHandler(),
		highlightCSS: css,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	h.registerISRPages()
	return h, nil
}

// registerISRPages hands the isr cache one renderer per known path, the
// equivalent of generating static params at build time.
func (h *Handler) registerISRPages() {
	h.opts.Cache.Register(isr.Page{
		Key:        isrIndexKey,
		Revalidate: h.opts.IndexRevalidate,
		Render:     h.renderISRIndex,
	})
	for _, p := range h.posts.All() {
		id := p.ID
		h.opts.Cache.Register(isr.Page{
			Key:        postKey(id),
			Revalidate: h.opts.PostRevalidate,
			Render: func(ctx context.Context) ([]byte, error) {
				return h.renderISRPost(ctx, id)
			},
		})
	}
}

// Register mounts the document routes. "/" is the catch-all 404 page.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /ssr-demo", h.handleSSR)
	mux.HandleFunc("GET /isr-demo", h.handleISRIndex)
	mux.HandleFunc("GET /isr-demo/{id}", h.handleISRPost)
	mux.HandleFunc("GET /image-demo", h.handleImage)
	mux.HandleFunc("GET /font-demo", h.handleFont)
	mux.HandleFunc("GET /env-demo", h.handleEnv)
	mux.HandleFunc("GET /static/css/highlight.css", h.handleHighlightCSS)
	mux.Handle("GET /static/", h.static)
	mux.HandleFunc("/", h.handleNotFound)
}

func (h *Handler) layout(path, title, description string, content any) layoutData {
	return layoutData{
		Title:       title,
		Description: description,
		AppName:     h.opts.Settings.AppName,
		Version:     h.opts.Settings.Version,
		CurrentPath: path,
		Nav:         nav,
		Content:     content,
	}
}

func (h *Handler) write(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, name string, data layoutData) {
	body, err := h.tmpl.render(name, data)
	if err != nil {
		h.logger.Error("render failed", zap.String("template", name), zap.Error(err))
		h.renderError(w, r)
		return
	}
	h.write(w, http.StatusOK, body)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	body, err := h.tmpl.render("error", h.layout(r.URL.Path, "Error", "Internal server error", nil))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.write(w, http.StatusInternalServerError, body)
}

// ErrorPage renders the 500 document.
func (h *Handler) ErrorPage() http.Handler {
	return http.HandlerFunc(h.renderError)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	body, err := h.tmpl.render("not_found", h.layout(r.URL.Path, "Not Found", "Page not found", nil))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	h.write(w, http.StatusNotFound, body)
}

type routeCard struct {
	Path        string
	Label       string
	Description string
	NewWindow   bool
	IsAPI       bool
}

var homeRoutes = []routeCard{
	{Path: "/ssr-demo", Label: "SSR Demo", Description: "Server-side rendering with real-time data fetching"},
	{Path: "/isr-demo", Label: "ISR Demo", Description: "Stored snapshots regenerated in the background"},
	{Path: "/image-demo", Label: "Image Demo", Description: "Embedded images with explicit dimensions and caching"},
	{Path: "/font-demo", Label: "Font Demo", Description: "System font stacks with zero layout shift"},
	{Path: "/env-demo", Label: "Environment Demo", Description: "Server-only and public configuration values"},
	{Path: "/api/server-info", Label: "Server Info API", Description: "Direct API endpoint returning server ID and timestamp", NewWindow: true, IsAPI: true},
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "home", h.layout(r.URL.Path, "Home", "Rendering modes showcase", struct {
		Routes []routeCard
	}{homeRoutes}))
}

func (h *Handler) handleSSR(w http.ResponseWriter, r *http.Request) {
	info, err := h.opts.Info.Data()
	if err != nil {
		h.logger.Error("ssr server info failed", zap.Error(err))
		h.renderError(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.renderPage(w, r, "ssr", h.layout(r.URL.Path,
		"SSR Demo - Server-Side Rendering",
		"Demonstration of server-side rendering with real-time data",
		struct {
			RenderTime string
			Info       models.ServerInfoData
		}{
			RenderTime: h.now().UTC().Format(serverinfo.ISOMillis),
			Info:       info,
		}))
}

func (h *Handler) serveISR(w http.ResponseWriter, r *http.Request, key string, revalidate time.Duration) {
	snap, status, err := h.opts.Cache.Serve(r.Context(), key)
	if errors.Is(err, isr.ErrUnknownKey) {
		h.handleNotFound(w, r)
		return
	}
	if err != nil {
		h.logger.Error("isr serve failed", zap.String("key", key), zap.Error(err))
		h.renderError(w, r)
		return
	}
	w.Header().Set("Cache-Control", fmt.Sprintf("s-maxage=%d, stale-while-revalidate", int(revalidate.Seconds())))
	w.Header().Set("X-Cache-Status", string(status))
	h.write(w, http.StatusOK, snap.HTML)
}

func (h *Handler) handleISRIndex(w http.ResponseWriter, r *http.Request) {
	h.serveISR(w, r, isrIndexKey, h.opts.IndexRevalidate)
}

func (h *Handler) handleISRPost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.posts.Get(id); !ok {
		h.handleNotFound(w, r)
		return
	}
	if _, err := h.opts.Store.IncrementViews(r.Context(), id); err != nil {
		h.logger.Warn("view count failed", zap.String("post", id), zap.Error(err))
	}
	h.serveISR(w, r, postKey(id), h.opts.PostRevalidate)
}

func (h *Handler) renderISRIndex(ctx context.Context) ([]byte, error) {
	posts := h.posts.All()
	return h.tmpl.render("isr_index", h.layout(isrIndexKey,
		"ISR Demo",
		"Demonstration of incremental static regeneration",
		struct {
			Posts           []models.Post
			TotalPosts      int
			LastUpdated     string
			IndexRevalidate int
			PostRevalidate  int
		}{
			Posts:           posts,
			TotalPosts:      len(posts),
			LastUpdated:     h.now().UTC().Format(serverinfo.ISOMillis),
			IndexRevalidate: int(h.opts.IndexRevalidate.Seconds()),
			PostRevalidate:  int(h.opts.PostRevalidate.Seconds()),
		}))
}

func (h *Handler) renderISRPost(ctx context.Context, id string) ([]byte, error) {
	post, ok := h.posts.Get(id)
	if !ok {
		return nil, fmt.Errorf("post %q not found", id)
	}
	views, err := h.opts.Store.Views(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}
	return h.tmpl.render("isr_post", h.layout(postKey(id),
		post.Title,
		post.Excerpt,
		struct {
			Post            models.Post
			Body            template.HTML
			Views           string
			LastRevalidated string
			Revalidate      int
		}{
			Post:            post,
			Body:            template.HTML(post.HTML),
			Views:           formatViews(views),
			LastRevalidated: h.now().UTC().Format(serverinfo.ISOMillis),
			Revalidate:      int(h.opts.PostRevalidate.Seconds()),
		}))
}

type demoImage struct {
	Src    string
	Alt    string
	Width  int
	Height int
}

var demoImages = []demoImage{
	{"/static/images/square.svg", "Square image", 300, 300},
	{"/static/images/portrait.svg", "Portrait image", 300, 400},
	{"/static/images/landscape.svg", "Landscape image", 400, 300},
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "image", h.layout(r.URL.Path, "Image Demo", "Embedded image delivery", struct {
		Images []demoImage
	}{demoImages}))
}

type fontStack struct {
	Name   string
	Class  string
	Stack  string
	Sample string
}

var fontStacks = []fontStack{
	{"Font Sans (Default)", "font-sans", `system-ui, -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif`, "The quick brown fox jumps over the lazy dog."},
	{"Font Serif", "font-serif", `Georgia, Cambria, "Times New Roman", Times, serif`, "The quick brown fox jumps over the lazy dog."},
	{"Font Mono", "font-mono", `ui-monospace, SFMono-Regular, "SF Mono", Consolas, "Liberation Mono", Menlo, monospace`, "func main() { fmt.Println(\"hello\") }"},
}

func (h *Handler) handleFont(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "font", h.layout(r.URL.Path, "Font Demo", "System font stacks", struct {
		Stacks []fontStack
	}{fontStacks}))
}

func (h *Handler) handleEnv(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s := h.opts.Settings
	h.renderPage(w, r, "env", h.layout(r.URL.Path, "Environment Variables Demo", "Server-side and public configuration values", struct {
		Server []envRow
		Public []envRow
	}{
		Server: s.serverRows(h.now().UnixMilli()),
		Public: s.publicRows(),
	}))
}

func (h *Handler) handleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(h.highlightCSS)
}
