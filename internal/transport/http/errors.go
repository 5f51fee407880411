package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tjdests/tjdests/internal/service"
	"github.com/tjdests/tjdests/internal/util"
)

// httpErrorHandler keeps echo's own errors in the same {"error": ...} shape
// the handlers use.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, util.Error(message))
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func validationResponse(c echo.Context, verr *service.ValidationError) error {
	return c.JSON(http.StatusBadRequest, util.Invalid(verr.Message, verr.Fields))
}

// writeServiceError maps the shared service errors onto statuses. Anything
// unrecognised becomes a 500 whose cause is kept for the request log.
func writeServiceError(c echo.Context, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationResponse(c, verr)
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, util.Error("not found"))
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, util.Error("forbidden"))
	case errors.Is(err, service.ErrProfileLocked),
		errors.Is(err, service.ErrAccountBanned),
		errors.Is(err, service.ErrNotStudent),
		errors.Is(err, service.ErrLoginRestricted):
		return c.JSON(http.StatusForbidden, util.Error(err.Error()))
	case errors.Is(err, service.ErrDuplicateDecision):
		return c.JSON(http.StatusConflict, util.Error(err.Error()))
	case errors.Is(err, service.ErrSessionInvalid):
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
