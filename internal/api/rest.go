package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/isr"
	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	"github.com/devghori1264/aerophoenix/showcase/internal/serverinfo"
	"go.uber.org/zap"
)

const (
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRevalidationFailed = "REVALIDATION_FAILED"

	msgServerInfoFailed = "Failed to retrieve server information"

	noCache = "no-cache, no-store, must-revalidate"
)

// Revalidator regenerates or drops a cached page on demand.
type Revalidator interface {
	Revalidate(ctx context.Context, key string) (*models.PageSnapshot, error)
	Purge(ctx context.Context, key string) error
}

type Handler struct {
	info        *serverinfo.Provider
	revalidator Revalidator
	token       string
	logger      *zap.Logger
	now         func() time.Time
	// path -> Allow header, for 405 answers
	routes map[string]string
}

type Option func(*Handler)

// WithRevalidator enables POST and DELETE /api/revalidate. A non-empty token must be
// presented as a bearer credential.
func WithRevalidator(r Revalidator, token string) Option {
	return func(h *Handler) {
		h.revalidator = r
		h.token = token
	}
}

// WithClock replaces the clock used for error timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func NewHandler(info *serverinfo.Provider, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		info:   info,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the JSON routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	h.routes = map[string]string{"/api/server-info": "GET, HEAD, OPTIONS"}
	mux.HandleFunc("GET /api/server-info", h.handleServerInfo)
	mux.HandleFunc("OPTIONS /api/server-info", h.handlePreflight)
	if h.revalidator != nil {
		h.routes["/api/revalidate"] = "POST, DELETE, OPTIONS"
		mux.HandleFunc("POST /api/revalidate", h.handleRevalidate)
		mux.HandleFunc("DELETE /api/revalidate", h.handlePurge)
		mux.HandleFunc("OPTIONS /api/revalidate", h.handlePreflight)
	}
	// anything else under /api/ answers in JSON, never with the HTML 404 page
	mux.HandleFunc("/api/", h.handleUnmatched)
	mux.HandleFunc("GET /ping", h.handlePing)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleUnmatched(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", noCache)
	if allow, ok := h.routes[r.URL.Path]; ok {
		w.Header().Set("Allow", allow)
		h.writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
		return
	}
	h.writeError(w, http.StatusNotFound, CodeNotFound, "No API route at "+r.URL.Path)
}

func (h *Handler) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"msg": "pong from showcase http"})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"serverId": h.info.ServerID(),
	})
}

func (h *Handler) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	requestTime := h.now()

	resp, err := h.info.Build(requestTime)
	if err != nil {
		h.logger.Error("server info failed", zap.Error(err))
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", noCache)
		h.writeError(w, http.StatusInternalServerError, CodeInternal, msgServerInfoFailed)
		return
	}

	setCORS(w.Header())
	w.Header().Set("Cache-Control", noCache)
	w.Header().Set("X-Server-ID", resp.Data.ServerID)
	w.Header().Set("X-Request-ID", resp.Data.RequestID)
	writeJSON(w, http.StatusOK, resp)
}

// handlePreflight answers CORS preflight requests; the body is never read.
func (h *Handler) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w.Header())
	w.WriteHeader(http.StatusOK)
}

// revalidationTarget checks the bearer token and returns the path query
// parameter. On false the error response has been written.
func (h *Handler) revalidationTarget(w http.ResponseWriter, r *http.Request) (string, bool) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", noCache)

	if h.token != "" && !bearerMatches(r.Header.Get("Authorization"), h.token) {
		h.writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid revalidation token")
		return "", false
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		h.writeError(w, http.StatusBadRequest, CodeBadRequest, "path query parameter required")
		return "", false
	}
	return path, true
}

func (h *Handler) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	path, ok := h.revalidationTarget(w, r)
	if !ok {
		return
	}

	snap, err := h.revalidator.Revalidate(r.Context(), path)
	if errors.Is(err, isr.ErrUnknownKey) {
		h.writeError(w, http.StatusNotFound, CodeNotFound, "No revalidating page at "+path)
		return
	}
	if err != nil {
		h.logger.Error("on-demand revalidation failed", zap.String("path", path), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, CodeRevalidationFailed, "Failed to revalidate "+path)
		return
	}

	writeJSON(w, http.StatusOK, models.DataResponse{
		Success: true,
		Data: map[string]any{
			"path":        path,
			"revalidated": true,
			"generatedAt": snap.GeneratedAt.UTC().Format(serverinfo.ISOMillis),
		},
	})
}

// handlePurge drops the stored snapshot; the next visit renders the page
// synchronously.
func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	path, ok := h.revalidationTarget(w, r)
	if !ok {
		return
	}

	err := h.revalidator.Purge(r.Context(), path)
	if errors.Is(err, isr.ErrUnknownKey) {
		h.writeError(w, http.StatusNotFound, CodeNotFound, "No revalidating page at "+path)
		return
	}
	if err != nil {
		h.logger.Error("purge failed", zap.String("path", path), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, CodeRevalidationFailed, "Failed to purge "+path)
		return
	}

	writeJSON(w, http.StatusOK, models.DataResponse{
		Success: true,
		Data: map[string]any{
			"path":   path,
			"purged": true,
		},
	})
}

func bearerMatches(header, token string) bool {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header[len(prefix):]), []byte(token)) == 1
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorAt(w, status, code, msg, h.now())
	h.logger.Debug("error response", zap.Int("status", status), zap.String("code", code))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorAt(w http.ResponseWriter, status int, code, msg string, at time.Time) {
	writeJSON(w, status, models.ErrorResponse{
		Success: false,
		Error: models.APIError{
			Code:      code,
			Message:   msg,
			Timestamp: at.UTC().Format(serverinfo.ISOMillis),
		},
	})
}
