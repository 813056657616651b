package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// Logger is the subset of *logging.Logger used by the API.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// ErrorHandler renders every error as RFC 7807 problem details. Domain
// errors map to their status; echo errors keep theirs; anything else is a
// 500 with the detail hidden.
func ErrorHandler(logger Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		problem := problemFor(err)
		problem.Instance = c.Request().URL.Path
		if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
			problem.TraceID = sc.TraceID().String()
		}
		if problem.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "path", problem.Instance, "status", problem.Status, "error", err)
		}

		c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(problem.Status)
			return
		}
		_ = c.JSON(problem.Status, problem)
	}
}

func problemFor(err error) models.ProblemDetails {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		detail, _ := he.Message.(string)
		return models.ProblemDetails{Type: "about:blank", Title: http.StatusText(he.Code), Status: he.Code, Detail: detail}
	}

	status := models.StatusCode(err)
	problem := models.ProblemDetails{Type: "about:blank", Title: http.StatusText(status), Status: status, Detail: err.Error()}
	var invalid *models.InvalidContentError
	if errors.As(err, &invalid) {
		problem.Detail = "validation failed"
		problem.Errors = invalid.Errors
	}
	if status == http.StatusInternalServerError {
		problem.Detail = "internal server error"
	}
	return problem
}
