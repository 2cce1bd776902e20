package iio

import (
	"context"
	"iter"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/discover"
)

// ScanContext is a snapshot of the contexts available when it was created.
// Scanning never opens a context or touches hardware state.
type ScanContext struct {
	entries []discover.Entry
}

// NewScanContext scans the comma separated backends, such as "local,ip".
// An empty list scans the default backends. Entries found by backends that
// succeed are kept even when another backend fails; that failure is
// returned alongside.
func NewScanContext(ctx context.Context, backends string) (*ScanContext, error) {
	scanners, err := discover.ForNames(backends)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidArgument, err.Error())
	}
	return scan(ctx, scanners...)
}

func scan(ctx context.Context, scanners ...discover.Scanner) (*ScanContext, error) {
	entries, err := discover.Scan(ctx, scanners...)
	logging.Component("iio").Debug("scan", zap.Int("contexts", len(entries)), zap.Error(err))
	return &ScanContext{entries: entries}, err
}

// Len is the number of contexts found.
func (s *ScanContext) Len() int { return len(s.entries) }

// Info returns the URI and description of context i.
func (s *ScanContext) Info(i int) (uri, description string, err error) {
	if i < 0 || i >= len(s.entries) {
		return "", "", errors.Wrapf(ErrInvalidIndex, "scan entry %d of %d", i, len(s.entries))
	}
	return s.entries[i].URI, s.entries[i].Description, nil
}

// All yields URI and description pairs in URI order.
func (s *ScanContext) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, e := range s.entries {
			if !yield(e.URI, e.Description) {
				return
			}
		}
	}
}
