package upload

import "fmt"

// DirectoryFailure says why server selection failed.
type DirectoryFailure int

const (
	// DirectoryTransport means no usable HTTP response: connection failure,
	// timeout, or a non-2xx status.
	DirectoryTransport DirectoryFailure = iota
	// DirectoryMalformedBody means the body was not JSON or did not report "ok".
	DirectoryMalformedBody
	// DirectoryEmptyPool means the provider listed no servers.
	DirectoryEmptyPool
	// DirectoryMalformedEntry means the first server had no usable name.
	DirectoryMalformedEntry
)

func (f DirectoryFailure) String() string {
	switch f {
	case DirectoryTransport:
		return "transport"
	case DirectoryMalformedBody:
		return "malformed body"
	case DirectoryEmptyPool:
		return "empty pool"
	case DirectoryMalformedEntry:
		return "malformed entry"
	default:
		return "unknown"
	}
}

// ServerDirectoryError is returned when no upload server could be selected.
// The transfer step is never attempted after this error.
type ServerDirectoryError struct {
	Kind       DirectoryFailure
	StatusCode int // HTTP status when the directory answered with non-2xx
	Err        error
}

func (e *ServerDirectoryError) Error() string {
	msg := "selecting upload server: " + e.Kind.String()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServerDirectoryError) Unwrap() error { return e.Err }

// TransportError is returned when the transfer got no response or a non-2xx
// response. StatusCode is 0 when no complete response was received.
type TransportError struct {
	StatusCode int
	Detail     string // upstream status field or body text
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upload transfer failed: no response: %v", e.Err)
	}
	msg := fmt.Sprintf("upload failed with status %d", e.StatusCode)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// ResponseError is returned when a 2xx upload response is missing a required
// field or reports a non-ok status.
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid upload response: %s: %v", e.Reason, e.Err)
	}
	return "invalid upload response: " + e.Reason
}

func (e *ResponseError) Unwrap() error { return e.Err }
