package router

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

const spaIndexFile = "index.html"

// noRouteHandler serves the configured frontend for unmatched GET and HEAD requests: an existing file
// is served as is, anything else falls back to index.html. Without a static dir it answers 404.
func (routerService *RouterService) noRouteHandler() gin.HandlerFunc {
	staticDir := routerService.config.StaticDir

	return func(c *gin.Context) {
		method := c.Request.Method
		if staticDir != "" && (method == http.MethodGet || method == http.MethodHead) {
			c.File(resolveStaticFile(staticDir, c.Request.URL.Path))
			return
		}

		GetLogger(c).Warn("Route not found", "method", method, "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, ErrorResult(http.StatusNotFound, "Route not found", nil).ToJSON())
	}
}

// resolveStaticFile maps a URL path onto a regular file under root. path.Clean on a rooted path
// strips any "..", so the result never escapes root.
func resolveStaticFile(root, urlPath string) string {
	clean := path.Clean("/" + urlPath)
	candidate := filepath.Join(root, filepath.FromSlash(clean))

	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate
	}

	return filepath.Join(root, spaIndexFile)
}
