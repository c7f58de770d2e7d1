package http

import (
	"fmt"
	"net/http"
)

// AppError is an error with the HTTP status it should be reported as.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource.
func NotFound(format string, a ...interface{}) *AppError {
	return &AppError{Code: "ERR_NOT_FOUND", Message: fmt.Sprintf(format, a...), Status: http.StatusNotFound}
}

// Unavailable reports data that is not ready yet.
func Unavailable(message string) *AppError {
	return &AppError{Code: "ERR_UNAVAILABLE", Message: message, Status: http.StatusServiceUnavailable}
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return &AppError{Code: "ERR_INTERNAL", Message: "something went wrong", Status: http.StatusInternalServerError, Err: err}
}
