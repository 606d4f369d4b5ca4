package curling

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInitialization is returned when the shared transport runtime can't
	// be set up.
	ErrInitialization = errors.New("curling: initialization failed")

	// ErrLogic reports an invalid use of a Request: an illegal method change,
	// zero retry attempts, an unsupported option value or a closed request.
	ErrLogic = errors.New("curling: logic error")

	// ErrHeader is returned for header lines that can't be sent.
	ErrHeader = errors.New("curling: invalid header")

	// ErrMultipart is returned when a multipart field or file can't be added.
	ErrMultipart = errors.New("curling: multipart error")

	// ErrRequest matches every *RequestError.
	ErrRequest = errors.New("curling: request failed")

	// ErrAbortedByCallback is the cause of transfers cancelled by a
	// ProgressFunc.
	ErrAbortedByCallback = errors.New("curling: aborted by progress callback")
)

// RequestError is returned by Send when the transfer itself failed: DNS,
// connect, TLS, timeout, protocol or I/O errors. StatusCode is set when a
// status line was received before the failure.
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString("curling: ")
	b.WriteString(e.Method)
	b.WriteString(" ")
	b.WriteString(e.URL)
	b.WriteString(" failed")
	if e.Attempts > 1 {
		b.WriteString(" after ")
		b.WriteString(strconv.Itoa(e.Attempts))
		b.WriteString(" attempts")
	}
	b.WriteString(" (HTTP status ")
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteString("): ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRequest) hold for every RequestError.
func (e *RequestError) Is(target error) bool { return target == ErrRequest }

// Aborted reports whether the transfer was cancelled by the progress
// callback.
func (e *RequestError) Aborted() bool { return errors.Is(e.Err, ErrAbortedByCallback) }
