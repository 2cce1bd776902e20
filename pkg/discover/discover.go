// Package discover lists IIO contexts reachable from this machine without
// opening them. Each backend has its own Scanner; Scan runs several of them
// at once and merges the results.
package discover

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
)

// Entry is one context that can be opened.
type Entry struct {
	URI         string
	Description string
}

// Scanner lists the contexts of one backend.
type Scanner interface {
	Name() string
	Scan(ctx context.Context) ([]Entry, error)
}

// ErrUnknownBackend is returned for a backend name no scanner handles.
var ErrUnknownBackend = errors.New("discover: unknown backend")

// DefaultBackends is used when no list is given.
var DefaultBackends = []string{"local", "ip", "usb"}

// ForNames builds scanners from a comma separated list such as
// "local,ip,usb". Blank items are skipped and duplicates collapse.
func ForNames(names string) ([]Scanner, error) {
	items := lo.Uniq(lo.Compact(lo.Map(strings.Split(names, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
	if len(items) == 0 {
		items = DefaultBackends
	}
	scanners := make([]Scanner, 0, len(items))
	for _, name := range items {
		s, err := ForName(name)
		if err != nil {
			return nil, err
		}
		scanners = append(scanners, s)
	}
	return scanners, nil
}

// ForName returns the scanner of one backend with default settings.
func ForName(name string) (Scanner, error) {
	switch name {
	case "local":
		return &LocalScanner{}, nil
	case "ip":
		return &NetworkScanner{}, nil
	case "usb":
		return &USBScanner{}, nil
	case "serial":
		return &SerialScanner{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "%q", name)
}

// Scan runs every scanner concurrently and returns the union of their
// entries sorted by URI. A failing scanner does not hide the results of the
// others; its error is combined into the returned error.
func Scan(ctx context.Context, scanners ...Scanner) ([]Entry, error) {
	logger := logging.Component("discover")

	var (
		mu      sync.Mutex
		entries []Entry
		errs    error
	)
	var g errgroup.Group
	for _, s := range scanners {
		g.Go(func() error {
			found, err := s.Scan(ctx)
			logger.Debug("scan finished",
				zap.String("backend", s.Name()),
				zap.Int("found", len(found)),
				zap.Error(err))
			mu.Lock()
			defer mu.Unlock()
			entries = append(entries, found...)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "scan %s", s.Name()))
			}
			return nil
		})
	}
	_ = g.Wait()

	entries = lo.UniqBy(entries, func(e Entry) string { return e.URI })
	sort.Slice(entries, func(i, j int) bool { return entries[i].URI < entries[j].URI })
	return entries, errs
}
