package discover

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/uri"
)

// SerialScanner lists serial ports. Any port may carry an IIO daemon, so
// every USB serial port is reported with the default line settings.
type SerialScanner struct {
	// All includes ports that are not USB adapters.
	All bool

	list func() ([]*enumerator.PortDetails, error)
}

func (s *SerialScanner) Name() string { return "serial" }

func (s *SerialScanner) Scan(ctx context.Context) ([]Entry, error) {
	list := s.list
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	ports, err := list()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, p := range ports {
		if ctx.Err() != nil {
			return entries, ctx.Err()
		}
		if !p.IsUSB && !s.All {
			continue
		}
		entries = append(entries, Entry{
			URI:         fmt.Sprintf("%s:%s,%d", uri.SchemeSerial, p.Name, uri.DefaultBaudRate),
			Description: describePort(p),
		})
	}
	return entries, nil
}

func describePort(p *enumerator.PortDetails) string {
	if !p.IsUSB {
		return p.Name
	}
	desc := fmt.Sprintf("%s:%s", p.VID, p.PID)
	if p.Product != "" {
		desc = p.Product + " (" + desc + ")"
	}
	if p.SerialNumber != "" {
		desc += " serial " + p.SerialNumber
	}
	return desc
}
