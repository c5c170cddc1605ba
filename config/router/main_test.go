package router

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/akeren/submission-history/internal/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountTestController(rs *RouterService) {
	ctrl := NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})

		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BadRequestResult("bad", nil)
			}
			return OKResult(payload, "ok")
		})

		rs.AddGetHandler(c, nil, "raw", func(ctx *RequestContext) *ServiceResult {
			return RawResult(http.StatusOK, []string{"a", "b"})
		})

		rs.AddPostHandler(c, rs.NewRateLimiter(1, time.Minute), "limited", func(ctx *RequestContext) *ServiceResult {
			return RawResult(http.StatusOK, gin.H{"ok": true})
		})
	})

	rs.MountController(ctrl)
}

func newTestRouterService(t *testing.T, staticDir string) *RouterService {
	t.Helper()
	t.Setenv("METRICS_ENABLED", "false")

	return CreateRouterService(log.NewLogger(&bytes.Buffer{}, slog.LevelError), nil, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
		StaticDir:         staticDir,
	})
}

func serve(rs *RouterService, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	return w
}

func TestTrustedProxies_DisabledByDefault(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "")

	rs := newTestRouterService(t, "")
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Code int    `json:"code"`
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "10.0.0.2", resp.Data)
}

func TestTrustedProxies_StarTrustsForwardedFor(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "*")

	rs := newTestRouterService(t, "")
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w := serve(rs, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1.1.1.1", resp.Data)
}

func TestMaxBodySize_Returns413(t *testing.T) {
	t.Setenv("MAX_REQUEST_BODY_BYTES", "10")

	rs := newTestRouterService(t, "")
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(bytes.Repeat([]byte{'a'}, 50)))
	req.Header.Set("Content-Type", "application/json")

	w := serve(rs, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestRawResult_RendersBodyWithoutEnvelope(t *testing.T) {
	rs := newTestRouterService(t, "")
	mountTestController(rs)

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/raw", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["a","b"]`, w.Body.String())
}

func TestRouteLimiter_OverridesDefault(t *testing.T) {
	rs := newTestRouterService(t, "")
	mountTestController(rs)

	first := serve(rs, httptest.NewRequest(http.MethodPost, "/limited", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := serve(rs, httptest.NewRequest(http.MethodPost, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// Other routes keep using the default limiter.
	other := serve(rs, httptest.NewRequest(http.MethodGet, "/raw", nil))
	assert.Equal(t, http.StatusOK, other.Code)
	assert.Equal(t, "1000", other.Header().Get("X-RateLimit-Limit"))
}

func TestCorrelationID_EchoedOrGenerated(t *testing.T) {
	rs := newTestRouterService(t, "")
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/raw", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	assert.Equal(t, "abc-123", serve(rs, req).Header().Get("X-Correlation-ID"))

	generated := serve(rs, httptest.NewRequest(http.MethodGet, "/raw", nil)).Header().Get("X-Correlation-ID")
	assert.NotEmpty(t, generated)
}

func TestNoRoute_WithoutStaticDirReturnsJSON404(t *testing.T) {
	rs := newTestRouterService(t, "")
	mountTestController(rs)

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Route not found")
}

func TestNoRoute_StaticDirServesFilesAndFallsBackToIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	rs := newTestRouterService(t, dir)
	mountTestController(rs)

	asset := serve(rs, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	require.Equal(t, http.StatusOK, asset.Code)
	assert.Equal(t, "console.log(1)", asset.Body.String())

	deepLink := serve(rs, httptest.NewRequest(http.MethodGet, "/some/client/route", nil))
	require.Equal(t, http.StatusOK, deepLink.Code)
	assert.Equal(t, "<html>app</html>", deepLink.Body.String())

	// API routes still win over the frontend.
	api := serve(rs, httptest.NewRequest(http.MethodGet, "/raw", nil))
	assert.JSONEq(t, `["a","b"]`, api.Body.String())
}

func TestResolveStaticFile_StaysInsideRoot(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, filepath.Join(dir, "index.html"), resolveStaticFile(dir, "/../../etc/passwd"))
}

func TestNormalizePath(t *testing.T) {
	root := NewRESTController("Root", "/", nil)
	nested := NewRESTController("Nested", "api/", nil)

	assert.Equal(t, "/", normalizePath(root, ""))
	assert.Equal(t, "/submit", normalizePath(root, "submit"))
	assert.Equal(t, "/submit", normalizePath(root, "/submit/"))
	assert.Equal(t, "/api/history", normalizePath(nested, "history"))
}

func TestBindRoute_PanicsOnDuplicate(t *testing.T) {
	rs := newTestRouterService(t, "")
	mountTestController(rs)

	dup := NewRESTController("Dup", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "raw", func(ctx *RequestContext) *ServiceResult { return nil })
	})

	assert.Panics(t, func() { rs.MountController(dup) })
}

func TestMetrics_CountsMatchedRoutes(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "true")
	rs := CreateRouterService(log.NewLogger(&bytes.Buffer{}, slog.LevelError), nil, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	mountTestController(rs)

	require.Equal(t, http.StatusOK, serve(rs, httptest.NewRequest(http.MethodGet, "/raw", nil)).Code)

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `submission_history_http_requests_total{method="GET",route="/raw",status="200"} 1`)
}

func TestMetrics_Disabled(t *testing.T) {
	rs := newTestRouterService(t, "")

	w := serve(rs, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
