package images

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout indicates a timeout while probing or downloading.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrBadStatus indicates a non-2xx response.
type ErrBadStatus struct {
	Code int
}

func (e ErrBadStatus) Error() string {
	return fmt.Sprintf("bad_status: http %d", e.Code)
}

// ErrContentType indicates the remote resource is not an image.
type ErrContentType struct {
	ContentType string
}

func (e ErrContentType) Error() string {
	return fmt.Sprintf("content_type: %q is not an image", e.ContentType)
}

// ErrScheme indicates a candidate URL that is not fetchable over the web.
type ErrScheme struct {
	URL string
}

func (e ErrScheme) Error() string {
	return fmt.Sprintf("scheme: %q is not http(s)", e.URL)
}

// classifyFetchError wraps transport errors into the local taxonomy.
func classifyFetchError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	return err
}

// ReasonLabel maps an error to the stable label recorded in reports and
// metric outcomes.
func ReasonLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		timeout     ErrTimeout
		conn        ErrConnection
		badStatus   ErrBadStatus
		contentType ErrContentType
		scheme      ErrScheme
	)
	switch {
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &conn):
		return "connection"
	case errors.As(err, &badStatus):
		return "bad_status"
	case errors.As(err, &contentType):
		return "content_type"
	case errors.As(err, &scheme):
		return "scheme"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "other"
}
