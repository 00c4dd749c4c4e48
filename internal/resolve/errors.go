package resolve

import (
	"errors"
	"fmt"
	"net/http"

	"reclink/internal/httputil"
)

// Kind is the caller-visible category of a resolution failure.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindNotFound
	KindAccessDenied
	KindUpstream
	KindNetwork
	KindParse
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindUpstream:
		return "upstream"
	case KindNetwork:
		return "network"
	case KindParse:
		return "parse"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Reason refines a Kind where the caller can act on the difference.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonPassworded      Reason = "passworded"
	ReasonUnrecognizable  Reason = "unrecognizable"
	ReasonLinkUnavailable Reason = "link unavailable"
	ReasonEmptyFolder     Reason = "empty folder"
	ReasonRateLimited     Reason = "rate limited"
)

// Error is returned by every resolution path.
type Error struct {
	Kind       Kind
	Reason     Reason
	StatusCode int    // upstream HTTP status, when there was one
	Msg        string // safe to show to a user
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the error onto the status code the UI surface reports.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAccessDenied:
		return http.StatusForbidden
	case KindUpstream:
		if e.Reason == ReasonRateLimited {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	case KindParse:
		return http.StatusBadGateway
	case KindNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the Kind of err, or 0 if err is not a resolution error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ReasonOf returns the Reason of err, if any.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonNone
}

func invalidInput(msg string, err error) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg, Err: err}
}

func parseError(msg string, err error) *Error {
	return &Error{Kind: KindParse, Msg: msg, Err: err}
}

// networkError wraps a failure where no response was received.
func networkError(what string, err error) *Error {
	msg := "no response received from " + what
	if httputil.IsTimeout(err) {
		msg = what + " timed out"
	}
	return &Error{Kind: KindNetwork, Msg: msg, Err: err}
}

// statusError maps a non-2xx HTTP status from the provider.
func statusError(what string, status int) *Error {
	e := &Error{StatusCode: status}
	switch status {
	case http.StatusNotFound, http.StatusGone:
		e.Kind = KindNotFound
		e.Msg = fmt.Sprintf("%s not found (%d); it may have expired or been deleted", what, status)
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = KindAccessDenied
		e.Msg = fmt.Sprintf("access to %s denied (%d)", what, status)
	case http.StatusTooManyRequests:
		e.Kind = KindUpstream
		e.Reason = ReasonRateLimited
		e.Msg = what + " is rate limiting requests"
	default:
		e.Kind = KindUpstream
		e.Msg = fmt.Sprintf("%s responded with status %d", what, status)
	}
	return e
}

// StatusError classifies a non-2xx status from any provider host, such as
// the media server a resolved link points at.
func StatusError(what string, status int) *Error { return statusError(what, status) }

// NetworkError classifies a request to what that got no response.
func NetworkError(what string, err error) *Error { return networkError(what, err) }

// fallbackAllowed reports whether a failed strategy leaves room for another
// one to succeed. NotFound and AccessDenied answers are authoritative.
func fallbackAllowed(err error) bool {
	switch KindOf(err) {
	case KindUpstream, KindNetwork, KindParse:
		return true
	default:
		return false
	}
}
