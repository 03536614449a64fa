package errs

import (
	"encoding/json"
	"fmt"
	"github.com/mousybusiness/gooseclip-backend/pkg/model"
	"github.com/pkg/errors"
	"strings"
)

// httpError defines an error which carries the status code
// of a failed provider request.
type httpError interface {
	Code() int
}

// HttpError is a non-2xx response from a provider endpoint.
// The raw body is kept so it can be shown to the user verbatim.
type HttpError struct {
	code int
	body string
	err  error
}

// NewHttpError builds an HttpError, preferring the provider's own
// "error" field over fallback when the body is JSON.
func NewHttpError(code int, b []byte, fallback string) HttpError {
	e := errors.New(fallback)

	if len(b) > 0 {
		var r model.ErrorResponse
		if err := json.Unmarshal(b, &r); err == nil && r.Error != "" {
			e = errors.New(r.Error)
		}
	}

	return HttpError{
		code: code,
		body: strings.TrimSpace(string(b)),
		err:  e,
	}
}

func (e HttpError) Error() string {
	return errors.Wrap(e.err, fmt.Sprintf("HttpError[%v]", e.code)).Error()
}

func (e HttpError) Code() int {
	return e.code
}

func (e HttpError) Body() string {
	return e.body
}

// Reason is the provider's error code, or the fallback message.
func (e HttpError) Reason() string {
	return e.err.Error()
}

func ExtractHttpError(err error) (int, bool) {
	var e httpError
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Code(), true
}
