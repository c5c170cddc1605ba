package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akeren/submission-history/pkg/ratelimit"
)

func NewRESTController(name, mountPoint string, prepare func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: strings.ReplaceAll("/"+mountPoint, "//", "/"),
		prepare:    prepare,
	}
}

func normalizePath(controller *RESTController, relativePath string) string {
	path := controller.mountPoint
	if relativePath != "" {
		path = path + "/" + relativePath
	}

	path = strings.ReplaceAll("/"+path, "//", "/")
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return path
}

func routeKey(method, path string) string {
	return method + " " + path
}

// bindRoute records which controller owns a route and, optionally, the limiter that overrides the
// default one for it. Registering the same route twice is a programming error.
func (routerService *RouterService) bindRoute(controller *RESTController, method, path string, limiter ratelimit.RateLimiter) {
	key := routeKey(method, path)

	if owner, found := routerService.routeOwners[key]; found {
		panic(fmt.Sprintf("route %s is already registered by controller '%s'", key, owner.name))
	}
	routerService.routeOwners[key] = controller

	if limiter != nil {
		routerService.routeLimiters[key] = limiter
	}
}

func (routerService *RouterService) addHandler(
	method string,
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	relativePath string,
	handler HandlerFunction,
	middlewares []MiddlewareFunc,
) {
	path := normalizePath(controller, relativePath)
	routerService.bindRoute(controller, method, path, limiter)
	controller.handlerCount++

	routerService.engine.Handle(method, path, append(middlewares, renderHandler(handler))...)
	routerService.logger.Debug("Handler registered", "method", method, "path", path)
}

func (routerService *RouterService) AddGetHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodGet, controller, limiter, path, handler, middlewares)
}

func (routerService *RouterService) AddPostHandler(
	controller *RESTController,
	limiter ratelimit.RateLimiter,
	path string,
	handler HandlerFunction,
	middlewares ...MiddlewareFunc,
) {
	routerService.addHandler(http.MethodPost, controller, limiter, path, handler, middlewares)
}

func renderHandler(handler HandlerFunction) MiddlewareFunc {
	return func(c *RequestContext) {
		result := handler(c)

		if result == nil {
			c.JSON(http.StatusInternalServerError, InternalServerErrorResult("A handler returned an undefined result. This typically indicates a bug in a handler's implementation.").ToJSON())
			return
		}

		if result.IsError() {
			GetLogger(c).Debug("Handler returned error result", "status", result.StatusCode, "path", c.FullPath())
		}

		c.JSON(result.StatusCode, result.ToJSON())
	}
}
