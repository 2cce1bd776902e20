//go:build !linux

package sim

import "github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"

type poller struct {
	fd int
}

// newPoller fails off Linux: readiness is signalled through an eventfd.
func newPoller() (*poller, error) {
	return nil, engine.ErrNotImplemented
}

func (p *poller) signal() {}
func (p *poller) drain()  {}
func (p *poller) close()  {}
