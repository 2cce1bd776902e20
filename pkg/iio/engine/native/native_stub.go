//go:build !libiio || !cgo

package native

import (
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// Available reports whether this build links libiio. Rebuild with
// "-tags libiio" and cgo enabled to reach real hardware.
const Available = false

// LibraryVersion is zero when libiio is not linked.
func LibraryVersion() engine.Version {
	return engine.Version{}
}

func Local() (engine.Context, error)              { return nil, unix.ENOSYS }
func Network(host string) (engine.Context, error) { return nil, unix.ENOSYS }
func URI(uri string) (engine.Context, error)      { return nil, unix.ENOSYS }
