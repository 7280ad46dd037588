package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
)

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// toHTTPError maps err to an Echo error carrying an ErrorResponse. Upstream
// and internal failures are logged here, with the request ID, because their
// details never reach the client.
func toHTTPError(c echo.Context, log logging.Logger, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		log.Error(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"status", httpErr.StatusCode,
			"error", err,
		)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequestBody() error {
	return apperrors.Validation("", "요청 형식이 올바르지 않습니다.")
}

// bindAndValidate decodes the JSON body into req and runs the validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequestBody()
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}
