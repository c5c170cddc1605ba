package router

import (
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

// HandlerFunction returns the result to render; it never writes to the response itself.
type HandlerFunction func(*RequestContext) *ServiceResult

// ServiceResult is what every handler returns. Enveloped results render as {code, data, message};
// raw results render Data exactly as given, for endpoints whose wire shape is fixed by their clients.
type ServiceResult struct {
	StatusCode int
	Data       any
	Message    string

	raw bool
}

type envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

// RESTController groups the routes of one domain under a mount point. prepare registers them once
// the controller is mounted.
type RESTController struct {
	name         string
	mountPoint   string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func (result *ServiceResult) ToJSON() any {
	if result.raw {
		return result.Data
	}
	return envelope{Code: result.StatusCode, Data: result.Data, Message: result.Message}
}

func (result *ServiceResult) IsError() bool {
	return result.StatusCode >= 400
}
