package httpbin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is rendered as {"code": ..., "message": ...} with Status as the
// response status.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewErrorf builds an Error whose code is the snake cased status text.
func NewErrorf(status int, format string, args ...any) error {
	return &Error{
		Status:  status,
		Code:    strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_"),
		Message: fmt.Sprintf(format, args...),
	}
}

func badRequestf(format string, args ...any) error {
	return NewErrorf(http.StatusBadRequest, format, args...)
}

// handlerFunc is an http.HandlerFunc that can fail.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}

	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Status: http.StatusInternalServerError, Code: "internal_server_error", Message: err.Error()}
	}
	_ = writeJSON(w, e.Status, e)
}
