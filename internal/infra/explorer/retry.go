package explorer

import (
	"errors"
	"strings"
)

var (
	// ErrTransient is returned when a call kept failing until the retry budget ran out.
	// Callers must not treat it as an exhausted range.
	ErrTransient = errors.New("explorer unavailable")

	// ErrNotFound is returned when the explorer has no record for the lookup.
	ErrNotFound = errors.New("not found")
)

// ErrorKind labels a failed call for logs and metrics. All kinds are retried.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindThrottled ErrorKind = "throttled"
	KindMalformed ErrorKind = "malformed"
	KindAPI       ErrorKind = "api_error"
)

// callError carries the kind of a failed attempt.
type callError struct {
	kind ErrorKind
	msg  string
	err  error
}

func (e *callError) Error() string {
	if e.err != nil {
		return string(e.kind) + ": " + e.msg + ": " + e.err.Error()
	}
	return string(e.kind) + ": " + e.msg
}

func (e *callError) Unwrap() error { return e.err }

// ClassifyError determines the kind of a failed attempt.
func ClassifyError(err error) ErrorKind {
	var ce *callError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return KindTransport
}

// throttlePatterns are messages explorers use in status "0" responses when rate limited.
var throttlePatterns = []string{
	"rate limit",
	"too many requests",
	"max calls per sec",
	"429",
}

func isThrottleMessage(s string) bool {
	s = strings.ToLower(s)
	for _, p := range throttlePatterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
