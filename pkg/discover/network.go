package discover

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/pkg/errors"
)

const (
	// IIODService is the DNS-SD service type announced by iiod.
	IIODService = "_iio._tcp"
	// DefaultBrowseTime bounds a browse when the context has no deadline.
	DefaultBrowseTime = 2 * time.Second
)

// NetworkScanner browses the local network for IIO daemons with ZeroConf.
type NetworkScanner struct {
	Service string
	Domain  string
	Timeout time.Duration
}

func (s *NetworkScanner) Name() string { return "ip" }

// Scan browses until ctx ends, or for Timeout when ctx has no deadline.
func (s *NetworkScanner) Scan(ctx context.Context) ([]Entry, error) {
	service, domain := s.Service, s.Domain
	if service == "" {
		service = IIODService
	}
	if domain == "" {
		domain = "local."
	}
	if _, ok := ctx.Deadline(); !ok {
		wait := s.Timeout
		if wait <= 0 {
			wait = DefaultBrowseTime
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return nil, errors.Wrap(err, "zeroconf resolver")
	}
	found := make(chan *zeroconf.ServiceEntry, 8)
	if err := resolver.Browse(ctx, service, domain, found); err != nil {
		return nil, errors.Wrapf(err, "browse %s", service)
	}
	var entries []Entry
	for e := range found {
		if entry, ok := serviceEntry(e); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// serviceEntry prefers an IPv4 address, then IPv6, then the host name.
func serviceEntry(e *zeroconf.ServiceEntry) (Entry, bool) {
	var host string
	switch {
	case len(e.AddrIPv4) > 0:
		host = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		host = e.AddrIPv6[0].String()
	default:
		host = strings.TrimSuffix(e.HostName, ".")
	}
	if host == "" {
		return Entry{}, false
	}
	return Entry{
		URI:         "ip:" + host,
		Description: fmt.Sprintf("%s (%s:%d)", e.Instance, host, e.Port),
	}, true
}
