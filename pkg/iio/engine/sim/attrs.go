package sim

import (
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cast"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// WriteHook lets a scenario react to attribute writes, for example to reject
// out of range values. A non-nil error aborts the write.
type WriteHook func(name, value string) error

// AttrSet is an ordered in-memory attribute group. Values are stored with
// surrounding whitespace removed, the way sysfs reads come back.
type AttrSet struct {
	mu     sync.Mutex
	names  []string
	values map[string]string
	hook   WriteHook
}

var _ engine.AttrSet = (*AttrSet)(nil)

func newAttrSet() *AttrSet {
	return &AttrSet{values: make(map[string]string)}
}

// Add declares an attribute with an initial value. Re-adding a name only
// replaces its value.
func (a *AttrSet) Add(name, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = strings.TrimSpace(value)
}

// OnWrite installs hook for every later write.
func (a *AttrSet) OnWrite(hook WriteHook) {
	a.mu.Lock()
	a.hook = hook
	a.mu.Unlock()
}

func (a *AttrSet) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.names...)
}

func (a *AttrSet) Read(name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[name]
	if !ok {
		return "", unix.ENOENT
	}
	return v, nil
}

func (a *AttrSet) Write(name, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.values[name]; !ok {
		return unix.ENOENT
	}
	if a.hook != nil {
		if err := a.hook(name, value); err != nil {
			return err
		}
	}
	a.values[name] = strings.TrimSpace(value)
	return nil
}

func (a *AttrSet) ReadAll() (map[string]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out, nil
}

// ReadInt64 parses like strtoll with base 0, so "0x10" and "010" work.
func (a *AttrSet) ReadInt64(name string) (int64, error) {
	s, err := a.Read(name)
	if err != nil {
		return 0, err
	}
	v, err := cast.ToInt64E(s)
	if err != nil {
		return 0, unix.EINVAL
	}
	return v, nil
}

func (a *AttrSet) ReadFloat64(name string) (float64, error) {
	s, err := a.Read(name)
	if err != nil {
		return 0, err
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, unix.EINVAL
	}
	return v, nil
}

func (a *AttrSet) WriteInt64(name string, v int64) error {
	return a.Write(name, strconv.FormatInt(v, 10))
}

func (a *AttrSet) WriteFloat64(name string, v float64) error {
	return a.Write(name, strconv.FormatFloat(v, 'f', -1, 64))
}

func (a *AttrSet) clone() *AttrSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := newAttrSet()
	c.names = append(c.names, a.names...)
	for k, v := range a.values {
		c.values[k] = v
	}
	c.hook = a.hook
	return c
}
