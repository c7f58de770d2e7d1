package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

func write(c echo.Context, status int, data, errs interface{}) error {
	return c.JSON(status, APIResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
		Errors:  errs,
	})
}

// OK writes data with status 200.
func OK(c echo.Context, data interface{}) error {
	return write(c, http.StatusOK, data, nil)
}

// BadRequest writes rejected parameters with status 400.
func BadRequest(c echo.Context, errs []FieldError) error {
	return write(c, http.StatusBadRequest, nil, errs)
}

// Fail writes err with its AppError status, or as an internal error.
func Fail(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal(err)
	}
	return write(c, appErr.Status, nil, []*AppError{appErr})
}
