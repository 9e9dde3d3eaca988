package feeds

import (
	"errors"
	"fmt"

	"github.com/transit-board/pkg/transit/models"
)

// Kind names a class of feed failure for logs and metrics
type Kind string

const (
	KindNone      Kind = ""
	KindTransport Kind = "transport"
	KindFormat    Kind = "format"
	KindPartial   Kind = "partial"
	KindUnknown   Kind = "unknown"
)

// TransportError covers network failures, timeouts and non-2xx responses
type TransportError struct {
	Source models.Source
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamFormatError means the payload could not be decoded at all
type UpstreamFormatError struct {
	Source models.Source
	Err    error
}

func (e *UpstreamFormatError) Error() string {
	return fmt.Sprintf("%s: upstream format error: %v", e.Source, e.Err)
}

func (e *UpstreamFormatError) Unwrap() error { return e.Err }

// PartialDataError reports records that were skipped while the rest of the
// payload was usable. When a whole request batch fails, Skipped counts the
// places it covered.
type PartialDataError struct {
	Source  models.Source
	Skipped int
	Err     error
}

func (e *PartialDataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %d malformed records skipped", e.Source, e.Skipped)
	}
	return fmt.Sprintf("%s: %d malformed records skipped: %v", e.Source, e.Skipped, e.Err)
}

func (e *PartialDataError) Unwrap() error { return e.Err }

func Transport(src models.Source, err error) error {
	return &TransportError{Source: src, Err: err}
}

func Format(src models.Source, err error) error {
	return &UpstreamFormatError{Source: src, Err: err}
}

// Partial returns nil when nothing was skipped
func Partial(src models.Source, skipped int, err error) error {
	if skipped == 0 {
		return nil
	}
	return &PartialDataError{Source: src, Skipped: skipped, Err: err}
}

// Classify maps an error returned by a Source to its Kind
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var transport *TransportError
	var format *UpstreamFormatError
	var partial *PartialDataError
	// a partial result may wrap the transport or format error of one batch
	switch {
	case errors.As(err, &partial):
		return KindPartial
	case errors.As(err, &transport):
		return KindTransport
	case errors.As(err, &format):
		return KindFormat
	default:
		return KindUnknown
	}
}
