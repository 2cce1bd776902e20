// Package sim is an in-memory IIO engine. It stands in for hardware in tests
// and serves the XML backends: a context is described with the builder or an
// XML document, samples are injected with Device.Feed and pushed output is
// captured for inspection.
package sim

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// EngineVersion is what a context reports when its description carries no
// version.
var EngineVersion = engine.Version{Major: 0, Minor: 25, Git: "sim"}

// Option configures a Context.
type Option func(*Context)

// WithClock sets the clock used for blocking timeouts. Tests pass a
// clock.Mock to drive timeouts by hand.
func WithClock(c clock.Clock) Option {
	return func(ctx *Context) { ctx.clock = c }
}

// WithDescription sets the context description.
func WithDescription(desc string) Option {
	return func(ctx *Context) { ctx.description = desc }
}

// WithVersion overrides the reported version.
func WithVersion(v engine.Version) Option {
	return func(ctx *Context) { ctx.version = v }
}

// Context is a simulated session.
type Context struct {
	name        string
	description string
	version     engine.Version
	attrs       []engine.Attr
	devices     []*Device
	clock       clock.Clock

	mu        sync.Mutex
	timeout   time.Duration
	retimed   chan struct{} // closed and replaced on every SetTimeout
	destroyed bool
}

var _ engine.Context = (*Context)(nil)

// NewContext creates an empty context; populate it with AddDevice.
func NewContext(name string, opts ...Option) *Context {
	c := &Context{
		name:    name,
		version: EngineVersion,
		clock:   clock.New(),
		retimed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddAttr appends a context attribute.
func (c *Context) AddAttr(name, value string) *Context {
	c.attrs = append(c.attrs, engine.Attr{Name: name, Value: value})
	return c
}

// AddDevice appends a device and returns it for further setup.
func (c *Context) AddDevice(id, name string) *Device {
	d := newDevice(c, id, name)
	c.devices = append(c.devices, d)
	return d
}

// AddTrigger appends a trigger device.
func (c *Context) AddTrigger(id, name string) *Device {
	d := c.AddDevice(id, name)
	d.isTrigger = true
	return d
}

// Dev returns the device with the given ID or name, or nil. It is the typed
// counterpart of FindDevice for scenario code.
func (c *Context) Dev(name string) *Device {
	for _, d := range c.devices {
		if d.id == name || d.name == name {
			return d
		}
	}
	return nil
}

func (c *Context) Name() string        { return c.name }
func (c *Context) Description() string { return c.description }

func (c *Context) XML() (string, error) {
	return c.describe().Marshal()
}

func (c *Context) Version() (engine.Version, error) {
	return c.version, nil
}

func (c *Context) Attrs() ([]engine.Attr, error) {
	return append([]engine.Attr(nil), c.attrs...), nil
}

func (c *Context) SetTimeout(d time.Duration) error {
	c.mu.Lock()
	c.timeout = d
	close(c.retimed)
	c.retimed = make(chan struct{})
	c.mu.Unlock()
	return nil
}

// Timeout reports the current I/O timeout.
func (c *Context) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

func (c *Context) timeoutState() (time.Duration, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout, c.retimed
}

func (c *Context) NumDevices() int { return len(c.devices) }

func (c *Context) Device(idx int) engine.Device {
	if idx < 0 || idx >= len(c.devices) {
		return nil
	}
	return c.devices[idx]
}

func (c *Context) FindDevice(name string) engine.Device {
	for _, d := range c.devices {
		if d.id == name || d.name == name || (d.label != "" && d.label == name) {
			return d
		}
	}
	return nil
}

// Clone copies the device tree into a new session. Queued samples, pushed
// output and open buffers are not carried over.
func (c *Context) Clone() (engine.Context, error) {
	n := NewContext(c.name, WithClock(c.clock), WithDescription(c.description), WithVersion(c.version))
	n.attrs = append(n.attrs, c.attrs...)
	n.timeout = c.Timeout()
	byOld := make(map[*Device]*Device, len(c.devices))
	for _, d := range c.devices {
		nd := d.clone(n)
		byOld[d] = nd
		n.devices = append(n.devices, nd)
	}
	for _, d := range c.devices {
		if trig := d.currentTrigger(); trig != nil {
			byOld[d].trigger = byOld[trig]
		}
	}
	return n, nil
}

func (c *Context) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
	for _, d := range c.devices {
		d.cancelActive()
	}
}

// Destroyed reports whether Destroy has run.
func (c *Context) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}
