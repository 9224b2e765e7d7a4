package api

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError reports a REST call that failed in transport or returned a
// non-2xx status.
type RequestError struct {
	// Op names the call, e.g. "devices".
	Op string

	// StatusCode is zero for transport failures.
	StatusCode int

	Err error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ring api %s: unexpected status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("ring api %s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response body that could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ring api %s: invalid response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a RequestError carrying 401.
//
// Example:
//
//	devices, err := client.Devices(ctx, tokens)
//	if api.IsUnauthorized(err) {
//	    // log in again
//	}
func IsUnauthorized(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusUnauthorized
}
