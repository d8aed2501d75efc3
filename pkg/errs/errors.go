package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error leaving a pipeline component is tagged with exactly
// one of these so callers can tell network trouble from broken input.
var (
	ErrResolution = errors.New("resolution error")
	ErrNetwork    = errors.New("network error")
	ErrHTTPStatus = errors.New("http status error")
	ErrDecode     = errors.New("decode error")
	ErrEncode     = errors.New("encode error")
	ErrSequencing = errors.New("sequencing error")
	ErrFilesystem = errors.New("filesystem error")
	ErrPackage    = errors.New("package error")
)

var kinds = []error{
	ErrResolution,
	ErrNetwork,
	ErrHTTPStatus,
	ErrDecode,
	ErrEncode,
	ErrSequencing,
	ErrFilesystem,
	ErrPackage,
}

// HTTPStatusError reports a non-2xx response for a single resource.
type HTTPStatusError struct {
	URL  string
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: GET %s: status %d", ErrHTTPStatus, e.URL, e.Code)
}

func (e *HTTPStatusError) Unwrap() error {
	return ErrHTTPStatus
}

// Wrap tags err with kind and prefixes it with the operation name.
// A nil err produces a bare kind error carrying only the operation.
func Wrap(kind error, op string, err error) error {
	if kind == nil {
		kind = ErrFilesystem
	}
	op = strings.TrimSpace(op)
	if err == nil {
		if op == "" {
			return kind
		}
		return fmt.Errorf("%w: %s", kind, op)
	}
	if op == "" {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}

// KindOf returns the first kind err is tagged with, or nil.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Retryable reports whether err belongs to a category that could succeed on a
// later attempt. Nothing in the pipeline retries; this is for callers.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrHTTPStatus)
}
