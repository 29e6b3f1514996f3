package poster

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every error produced by the Client.
var ErrRequestFailed = errors.New("poster request failed")

// ErrMissingReference is the cause recorded when an upload succeeds without
// returning the stored path.
var ErrMissingReference = errors.New("upload response carried no path")

// Operation identifies a backend endpoint.
type Operation string

const (
	OpHealth   Operation = "health"
	OpUpload   Operation = "upload"
	OpRunNow   Operation = "run_now"
	OpSchedule Operation = "schedule_once"
)

// Message returns the fixed operator-facing failure text for the operation.
func (o Operation) Message() string {
	switch o {
	case OpHealth:
		return "API not reachable"
	case OpUpload:
		return "Upload failed"
	case OpRunNow:
		return "Run-now failed"
	case OpSchedule:
		return "Schedule failed"
	default:
		return "Request failed"
	}
}

// RequestFailedError reports a failed backend round trip. Error returns only
// the fixed message; StatusCode and the wrapped cause exist for diagnostics.
type RequestFailedError struct {
	Op         Operation
	StatusCode int
	Err        error
}

func (e *RequestFailedError) Error() string {
	return e.Op.Message()
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

// Detail renders status and cause for log lines.
func (e *RequestFailedError) Detail() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("status %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return ""
	}
}

func failed(op Operation, status int, err error) error {
	return &RequestFailedError{Op: op, StatusCode: status, Err: err}
}
