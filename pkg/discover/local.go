package discover

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefaultSysfsRoot is where the kernel lists IIO devices.
const DefaultSysfsRoot = "/sys/bus/iio/devices"

// LocalScanner reports the local context when the kernel exposes at least
// one IIO device.
type LocalScanner struct {
	// Root overrides DefaultSysfsRoot.
	Root string
}

func (s *LocalScanner) Name() string { return "local" }

func (s *LocalScanner) root() string {
	if s.Root != "" {
		return s.Root
	}
	return DefaultSysfsRoot
}

// Scan lists the devices under the sysfs root. A missing root means no IIO
// subsystem and is not an error.
func (s *LocalScanner) Scan(ctx context.Context) ([]Entry, error) {
	dirs, err := os.ReadDir(s.root())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read sysfs")
	}
	var names []string
	for _, d := range dirs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		id := d.Name()
		if !strings.HasPrefix(id, "iio:device") {
			continue
		}
		name, err := os.ReadFile(filepath.Join(s.root(), id, "name"))
		if err != nil {
			names = append(names, id)
			continue
		}
		names = append(names, id+" ("+strings.TrimSpace(string(name))+")")
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)
	return []Entry{{URI: "local:", Description: strings.Join(names, ", ")}}, nil
}
