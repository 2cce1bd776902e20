//go:build linux

package sim

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// poller is an eventfd: readable while its counter is non-zero.
type poller struct {
	fd int
}

func newPoller() (*poller, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &poller{fd: fd}, nil
}

func (p *poller) signal() {
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	_, _ = unix.Write(p.fd, one[:])
}

func (p *poller) drain() {
	var buf [8]byte
	_, _ = unix.Read(p.fd, buf[:])
}

func (p *poller) close() {
	_ = unix.Close(p.fd)
}
