// SPDX-License-Identifier: MIT

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// ErrTooLarge is returned when a response body exceeds the size cap.
var ErrTooLarge = errors.New("fetch: response exceeds size limit")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: %s returned status %d", e.URL, e.Code)
}

// errClass buckets fetch failures for logging and metrics.
type errClass string

const (
	classTimeout    errClass = "timeout"
	classConnection errClass = "connection"
	classServer     errClass = "server"
	classClient     errClass = "client"
	classOther      errClass = "other"
)

// classify buckets an attempt failure. Timeouts, connection failures and
// 5xx responses are the retryable classes; everything else is logged and
// still consumes an attempt.
func classify(err error) (errClass, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		if se.Code >= 500 {
			return classServer, true
		}
		return classClient, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return classTimeout, true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return classTimeout, true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return classConnection, true
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		var oe *net.OpError
		if errors.As(ue.Err, &oe) {
			return classConnection, true
		}
	}

	return classOther, false
}
