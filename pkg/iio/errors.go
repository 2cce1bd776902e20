package iio

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

var (
	// ErrInvalidIndex is returned for an out of range device, channel or
	// attribute index.
	ErrInvalidIndex = errors.New("iio: invalid index")
	// ErrWrongDataType is returned when a Go sample type does not match a
	// channel's sample representation.
	ErrWrongDataType = errors.New("iio: wrong data type")
	// ErrBadReturnSize is returned when the engine reports more bytes than
	// were requested.
	ErrBadReturnSize = errors.New("iio: bad return size")
	// ErrStringConversion is returned when attribute text cannot be parsed
	// into, or formatted from, the requested type.
	ErrStringConversion = errors.New("iio: string conversion error")
	// ErrNoChannelsEnabled is returned by CreateBuffer when no channel of the
	// device is enabled.
	ErrNoChannelsEnabled = errors.New("iio: no channels enabled")
	// ErrTriggerRequired is returned by CreateBuffer when the device needs a
	// trigger and none is set.
	ErrTriggerRequired = errors.New("iio: trigger required")
	// ErrNoTrigger is returned by Device.Trigger when no trigger is set.
	ErrNoTrigger = errors.New("iio: no trigger associated")
	// ErrCancelled is returned by I/O on a cancelled buffer.
	ErrCancelled = errors.New("iio: buffer cancelled")
	// ErrClosed is returned by calls on a closed context or buffer, or on a
	// device or channel whose session is gone.
	ErrClosed = errors.New("iio: use of closed handle")
	// ErrNotScanElement is returned when enabling a channel that cannot
	// take part in buffered I/O.
	ErrNotScanElement = errors.New("iio: channel is not a scan element")
	// ErrInvalidArgument is returned for arguments rejected before reaching
	// the engine.
	ErrInvalidArgument = errors.New("iio: invalid argument")
)

// SysError carries an errno reported by the engine and the operation that
// failed. errors.Is matches it against unix errno values.
type SysError struct {
	Op    string
	Errno unix.Errno
}

func (e *SysError) Error() string {
	return fmt.Sprintf("iio: %s: %v", e.Op, e.Errno)
}

func (e *SysError) Unwrap() error { return e.Errno }

// wrapEngine attaches op to an engine error. Errno values become *SysError,
// the engine's trigger sentinel becomes ErrTriggerRequired and anything else
// is wrapped as is.
func wrapEngine(err error, op string) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	switch {
	case errors.As(err, &errno):
		return &SysError{Op: op, Errno: errno}
	case errors.Is(err, engine.ErrTriggerRequired):
		return errors.Wrap(ErrTriggerRequired, op)
	}
	return errors.Wrap(err, op)
}

// IsErrno reports whether err carries the given errno.
func IsErrno(err error, errno unix.Errno) bool {
	return errors.Is(err, errno)
}
