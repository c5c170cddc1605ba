package submission

import (
	"net/http"
	"time"

	"github.com/akeren/submission-history/config/router"
	"github.com/akeren/submission-history/pkg/constants"
	apperrors "github.com/akeren/submission-history/pkg/errors"
)

const (
	invalidBodyMessage   = "Invalid request body"
	databaseErrorMessage = "Database error"
)

// NewSubmissionController mounts POST /submit and GET /history at the root. Both render their bodies
// without the router envelope: the browser client reads {success, data|error} and a bare history array.
// submitRequestsPerMinute <= 0 selects constants.SubmitRequestsPerMinute.
func NewSubmissionController(service SubmissionService, submitRequestsPerMinute int) *router.RESTController {
	if submitRequestsPerMinute <= 0 {
		submitRequestsPerMinute = constants.SubmitRequestsPerMinute
	}

	return router.NewRESTController(
		"SubmissionController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			submitLimiter := rs.NewRateLimiter(submitRequestsPerMinute, time.Minute)

			rs.AddPostHandler(c, submitLimiter, "submit", submitHandler(service))
			rs.AddGetHandler(c, nil, "history", historyHandler(service))
		},
	)
}

func submitHandler(service SubmissionService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var req SubmitRequest

		if err := ctx.ShouldBindJSON(&req); err != nil {
			logger.Warn("Failed to bind submission", "error", err)

			fields := apperrors.FormatValidationErrors(err, &req, nil)
			if len(fields) == 0 {
				fields = apperrors.General(invalidBodyMessage)
			}

			return submitFailure(http.StatusBadRequest, fields)
		}

		items, err := service.Submit(ctx.Request.Context(), &req)
		if err != nil {
			return submitErrorResult(err)
		}

		return router.RawResult(http.StatusOK, submitSuccessResponse{Success: true, Data: items})
	}
}

func submitErrorResult(err error) *router.ServiceResult {
	switch {
	case apperrors.IsValidationError(err):
		return submitFailure(http.StatusBadRequest, apperrors.GetFieldErrors(err))
	case apperrors.IsDatabaseError(err):
		return submitFailure(http.StatusInternalServerError, apperrors.General(databaseErrorMessage))
	default:
		return submitFailure(apperrors.HTTPStatusCode(err), apperrors.General(apperrors.GetHumanReadableMessage(err)))
	}
}

func submitFailure(status int, fields apperrors.FieldErrors) *router.ServiceResult {
	return router.RawResult(status, submitFailureResponse{Success: false, Error: fields})
}

func historyHandler(service SubmissionService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		entries, err := service.ListHistory(ctx.Request.Context())
		if err != nil {
			return router.RawResult(http.StatusInternalServerError, historyFailureResponse{Error: databaseErrorMessage})
		}

		return router.RawResult(http.StatusOK, entries)
	}
}
