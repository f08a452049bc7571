package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/devghori1264/aerophoenix/showcase/internal/isr"
	"github.com/devghori1264/aerophoenix/showcase/internal/models"
	"github.com/devghori1264/aerophoenix/showcase/internal/serverinfo"
	"github.com/gkampitakis/go-snaps/snaps"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}

func newTestServer(t *testing.T, info *serverinfo.Provider, opts ...Option) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(info, zap.NewNop(), opts...).Register(mux)
	srv := httptest.NewServer(Wrap(mux, zap.NewNop(), nil))
	t.Cleanup(srv.Close)
	return srv
}

func getServerInfo(t *testing.T, url string) (*http.Response, models.ServerInfoResponse) {
	t.Helper()
	resp, err := http.Get(url + "/api/server-info")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var body models.ServerInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, body
}

func TestServerInfoTwice(t *testing.T) {
	info, err := serverinfo.NewProvider("test")
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	srv := newTestServer(t, info)

	resp1, first := getServerInfo(t, srv.URL)
	resp2, second := getServerInfo(t, srv.URL)

	for _, resp := range []*http.Response{resp1, resp2} {
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 got %d", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("unexpected ACAO %q", got)
		}
		if got := resp.Header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
			t.Fatalf("unexpected Cache-Control %q", got)
		}
		if got := resp.Header.Get("Content-Type"); got != "application/json" {
			t.Fatalf("unexpected Content-Type %q", got)
		}
	}

	if !first.Success || !second.Success {
		t.Fatalf("expected success envelopes")
	}
	if first.Data.ServerID != second.Data.ServerID {
		t.Fatalf("server id changed between calls")
	}
	if first.Data.RequestID == second.Data.RequestID {
		t.Fatalf("request id repeated")
	}
	if second.Data.Timestamp < first.Data.Timestamp {
		t.Fatalf("timestamp decreased")
	}
	if resp1.Header.Get("X-Server-ID") != first.Data.ServerID {
		t.Fatalf("X-Server-ID header mismatch")
	}
	if resp2.Header.Get("X-Request-ID") != second.Data.RequestID {
		t.Fatalf("X-Request-ID header mismatch")
	}
	if first.Metadata.RequestTime == "" || first.Metadata.ResponseTime == "" {
		t.Fatalf("missing metadata: %+v", first.Metadata)
	}
}

func TestPreflight(t *testing.T) {
	info, _ := serverinfo.NewProvider("test")
	srv := newTestServer(t, info)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/server-info", strings.NewReader(`{"ignored":true}`))
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Fatalf("expected empty body got %q", body)
	}
	if resp.Header.Get("Access-Control-Allow-Methods") != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Fatalf("unexpected allow methods %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
	if resp.Header.Get("Access-Control-Allow-Headers") != "Content-Type, Authorization" {
		t.Fatalf("unexpected allow headers %q", resp.Header.Get("Access-Control-Allow-Headers"))
	}
}

func failingProvider(t *testing.T) *serverinfo.Provider {
	t.Helper()
	info, err := serverinfo.NewProvider("test", serverinfo.WithIDGenerator(func() (string, error) {
		return "", errors.New("no entropy")
	}))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return info
}

func TestServerInfoFailure(t *testing.T) {
	srv := newTestServer(t, failingProvider(t))

	resp, err := http.Get(srv.URL + "/api/server-info")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.StatusCode)
	}
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success {
		t.Fatalf("expected success=false")
	}
	if body.Error.Code != CodeInternal || body.Error.Message == "" || body.Error.Timestamp == "" {
		t.Fatalf("unexpected error %+v", body.Error)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing ACAO on error")
	}
	if resp.Header.Get("X-Server-ID") != "" {
		t.Fatalf("unexpected X-Server-ID on error")
	}
}

func TestServerInfoFailureBody(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	srv := newTestServer(t, failingProvider(t), WithClock(func() time.Time { return fixed }))

	resp, err := http.Get(srv.URL + "/api/server-info")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	snaps.MatchSnapshot(t, strings.TrimSpace(string(body)))
}

type fakeRevalidator struct {
	calls  []string
	purged []string
	err    error
}

func (f *fakeRevalidator) Purge(ctx context.Context, key string) error {
	f.purged = append(f.purged, key)
	if f.err != nil {
		return f.err
	}
	if key != "/isr-demo/1" {
		return isr.ErrUnknownKey
	}
	return nil
}

func (f *fakeRevalidator) Revalidate(ctx context.Context, key string) (*models.PageSnapshot, error) {
	f.calls = append(f.calls, key)
	if f.err != nil {
		return nil, f.err
	}
	if key != "/isr-demo/1" {
		return nil, isr.ErrUnknownKey
	}
	return &models.PageSnapshot{Key: key, GeneratedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}, nil
}

func postRevalidate(t *testing.T, url, path, auth string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url+"/api/revalidate?path="+path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRevalidate(t *testing.T) {
	info, _ := serverinfo.NewProvider("test")
	rv := &fakeRevalidator{}
	srv := newTestServer(t, info, WithRevalidator(rv, "s3cret"))

	if resp := postRevalidate(t, srv.URL, "/isr-demo/1", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
	if resp := postRevalidate(t, srv.URL, "/isr-demo/1", "Bearer wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
	if resp := postRevalidate(t, srv.URL, "", "Bearer s3cret"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.StatusCode)
	}
	if resp := postRevalidate(t, srv.URL, "/isr-demo/9", "Bearer s3cret"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.StatusCode)
	}

	resp := postRevalidate(t, srv.URL, "/isr-demo/1", "Bearer s3cret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data["revalidated"] != true || body.Data["generatedAt"] != "2024-01-15T10:00:00.000Z" {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(rv.calls) != 2 {
		t.Fatalf("expected 2 revalidator calls got %v", rv.calls)
	}
}

func TestRevalidateFailure(t *testing.T) {
	info, _ := serverinfo.NewProvider("test")
	srv := newTestServer(t, info, WithRevalidator(&fakeRevalidator{err: errors.New("render exploded")}, ""))

	if resp := postRevalidate(t, srv.URL, "/isr-demo/1", ""); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.StatusCode)
	}
}

func TestRevalidateDisabled(t *testing.T) {
	info, _ := serverinfo.NewProvider("test")
	srv := newTestServer(t, info)

	if resp := postRevalidate(t, srv.URL, "/isr-demo/1", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 when revalidation is disabled got %d", resp.StatusCode)
	}
}

func TestWrapRecoversPanic(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("template blew up")
	})
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "<h1>Something went wrong</h1>")
	})
	h := Wrap(panicky, zap.NewNop(), page)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/server-info", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error.Code != CodeInternal || body.Error.Message == "" {
		t.Fatalf("unexpected envelope %+v", body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ssr-demo", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") || !strings.Contains(rec.Body.String(), "Something went wrong") {
		t.Fatalf("document route should get the error page, got %q", rec.Body.String())
	}
}

func TestWrapWithoutErrorPage(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), zap.NewNop(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ssr-demo", nil))
	var body models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error.Code != CodeInternal {
		t.Fatalf("expected JSON envelope, got %q", rec.Body.String())
	}
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON, got %q", ct)
	}
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestUnmatchedAPIRoutes(t *testing.T) {
	info, _ := serverinfo.NewProvider("test")
	mux := http.NewServeMux()
	NewHandler(info, zap.NewNop(), WithRevalidator(&fakeRevalidator{}, "")).Register(mux)
	// stands in for the HTML catch-all of the document routes
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>404</html>", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/server-info", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", resp.StatusCode)
	}
	if allow := resp.Header.Get("Allow"); !strings.Contains(allow, "GET") {
		t.Fatalf("unexpected Allow %q", allow)
	}
	if body := decodeError(t, resp); body.Success || body.Error.Code != CodeMethodNotAllowed {
		t.Fatalf("unexpected envelope %+v", body)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/revalidate?path=/isr-demo/1", nil)
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", resp2.StatusCode)
	}

	resp3, err := http.Get(srv.URL + "/api/unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp3.StatusCode)
	}
	if body := decodeError(t, resp3); body.Error.Code != CodeNotFound {
		t.Fatalf("unexpected envelope %+v", body)
	}
}

func TestPurge(t *testing.T) {
	info, _ := serverinfo.NewProvider("test")
	rv := &fakeRevalidator{}
	srv := newTestServer(t, info, WithRevalidator(rv, "s3cret"))

	purge := func(path, auth string) *http.Response {
		req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/revalidate?path="+path, nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	if resp := purge("/isr-demo/1", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.StatusCode)
	}
	if resp := purge("/isr-demo/9", "Bearer s3cret"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.StatusCode)
	}
	resp := purge("/isr-demo/1", "Bearer s3cret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Data["purged"] != true {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(rv.purged) != 2 || rv.purged[1] != "/isr-demo/1" {
		t.Fatalf("unexpected purge calls %v", rv.purged)
	}
}

func TestPing(t *testing.T) {
	info, _ := serverinfo.NewProvider("test")
	srv := newTestServer(t, info)

	resp, err := http.Get(srv.URL + "/ping")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}
