package iio

import (
	"iter"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine/native"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine/sim"
)

// Option configures a new context.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	timeout *time.Duration
	clock   clock.Clock
}

// WithLogger sets the logger; the default is a child of the global logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTimeout sets the I/O timeout right after opening.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = &d }
}

// WithClock sets the clock of in-memory XML contexts, for tests that drive
// timeouts by hand.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// handle is the shared, reference counted session. Owners are Context values
// and Buffers; the engine is destroyed when the count drops to zero.
type handle struct {
	eng     engine.Context
	backend Backend
	name    string
	desc    string
	logger  *zap.Logger
	refs    atomic.Int64
	timeout atomic.Duration
}

func (h *handle) alive() bool { return h.refs.Load() > 0 }

// acquire adds an owner unless the session is already gone.
func (h *handle) acquire() bool {
	for {
		n := h.refs.Load()
		if n <= 0 {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (h *handle) release() {
	if h.refs.Dec() == 0 {
		h.eng.Destroy()
		h.logger.Debug("context destroyed", zap.Stringer("backend", h.backend))
	}
}

// Context is an owning handle to one engine session. The zero value is not
// usable; open one with NewContext or a sibling constructor.
type Context struct {
	h      *handle
	closed atomic.Bool
}

// NewContext opens a session on backend b. Failures are returned as is;
// nothing is retried.
func NewContext(b Backend, opts ...Option) (*Context, error) {
	o := collect(opts)
	resolved, err := b.resolve()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", b)
	}
	var simOpts []sim.Option
	if o.clock != nil {
		simOpts = append(simOpts, sim.WithClock(o.clock))
	}
	eng, err := resolved.open(simOpts...)
	if err != nil {
		return nil, wrapEngine(err, "open "+resolved.String())
	}
	return newContext(eng, resolved, o)
}

// NewDefaultContext opens the Default backend.
func NewDefaultContext(opts ...Option) (*Context, error) {
	return NewContext(Default(), opts...)
}

// NewContextFromURI opens the backend named by a URI such as "ip:host" or
// "xml:ctx.xml".
func NewContextFromURI(u string, opts ...Option) (*Context, error) {
	return NewContext(URI(u), opts...)
}

// WrapEngine takes ownership of an already open engine session, such as a
// simulator built in a test.
func WrapEngine(eng engine.Context, opts ...Option) (*Context, error) {
	if eng == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil engine")
	}
	return newContext(eng, URI("sim:"+eng.Name()), collect(opts))
}

func collect(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Component("iio")
	}
	return o
}

func newContext(eng engine.Context, b Backend, o options) (*Context, error) {
	h := &handle{
		eng:     eng,
		backend: b,
		name:    eng.Name(),
		desc:    eng.Description(),
		logger:  o.logger,
	}
	h.refs.Store(1)
	ctx := &Context{h: h}
	if o.timeout != nil {
		if err := ctx.SetTimeout(*o.timeout); err != nil {
			ctx.Close()
			return nil, err
		}
	}
	h.logger.Debug("context opened",
		zap.Stringer("backend", b),
		zap.String("name", h.name),
		zap.Int("devices", eng.NumDevices()))
	return ctx, nil
}

// LibraryVersion reports the linked libiio version, or the in-memory engine
// version when libiio is not linked.
func LibraryVersion() Version {
	if native.Available {
		return native.LibraryVersion()
	}
	return sim.EngineVersion
}

func (c *Context) check() error {
	if c == nil || c.h == nil || c.closed.Load() || !c.h.alive() {
		return ErrClosed
	}
	return nil
}

// Name, Description and Backend stay readable after Close. A nil or zero
// Context reports empty values.
func (c *Context) Name() string {
	if c == nil || c.h == nil {
		return ""
	}
	return c.h.name
}

func (c *Context) Description() string {
	if c == nil || c.h == nil {
		return ""
	}
	return c.h.desc
}

func (c *Context) Backend() Backend {
	if c == nil || c.h == nil {
		return Backend{}
	}
	return c.h.backend
}

// XML returns the XML description of the context.
func (c *Context) XML() (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	s, err := c.h.eng.XML()
	return s, wrapEngine(err, "context xml")
}

// Version reports the version of the engine behind the context.
func (c *Context) Version() (Version, error) {
	if err := c.check(); err != nil {
		return Version{}, err
	}
	v, err := c.h.eng.Version()
	return v, wrapEngine(err, "context version")
}

func (c *Context) attrs() ([]engine.Attr, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	attrs, err := c.h.eng.Attrs()
	if err != nil {
		return nil, wrapEngine(err, "read context attributes")
	}
	return attrs, nil
}

// NumAttrs is the number of context attributes.
func (c *Context) NumAttrs() int {
	attrs, _ := c.attrs()
	return len(attrs)
}

// Attr returns context attribute i as a name/value pair.
func (c *Context) Attr(i int) (name, value string, err error) {
	attrs, err := c.attrs()
	if err != nil {
		return "", "", err
	}
	if i < 0 || i >= len(attrs) {
		return "", "", errors.Wrapf(ErrInvalidIndex, "context attribute %d of %d", i, len(attrs))
	}
	return attrs[i].Name, attrs[i].Value, nil
}

// FindAttr returns the value of a context attribute.
func (c *Context) FindAttr(name string) (string, bool) {
	attrs, _ := c.attrs()
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attributes yields every context attribute. All pairs are fetched in one
// engine call when iteration starts.
func (c *Context) Attributes() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		attrs, _ := c.attrs()
		for _, a := range attrs {
			if !yield(a.Name, a.Value) {
				return
			}
		}
	}
}

// NumDevices is 0 once the context is closed.
func (c *Context) NumDevices() int {
	if c.check() != nil {
		return 0
	}
	return c.h.eng.NumDevices()
}

// GetDevice returns device i or ErrInvalidIndex.
func (c *Context) GetDevice(i int) (Device, error) {
	if err := c.check(); err != nil {
		return Device{}, err
	}
	n := c.h.eng.NumDevices()
	if i < 0 || i >= n {
		return Device{}, errors.Wrapf(ErrInvalidIndex, "device %d of %d", i, n)
	}
	return newDevice(c.h, c.h.eng.Device(i)), nil
}

// FindDevice looks a device up by ID, name or label.
func (c *Context) FindDevice(name string) (Device, bool) {
	if c.check() != nil {
		return Device{}, false
	}
	d := c.h.eng.FindDevice(name)
	if d == nil {
		return Device{}, false
	}
	return newDevice(c.h, d), true
}

// Devices yields every device. The count is taken when iteration starts.
func (c *Context) Devices() iter.Seq[Device] {
	return func(yield func(Device) bool) {
		n := c.NumDevices()
		for i := 0; i < n; i++ {
			d, err := c.GetDevice(i)
			if err != nil || !yield(d) {
				return
			}
		}
	}
}

// SetTimeout sets the timeout of blocking calls made through this session,
// including calls already in flight. Zero blocks indefinitely.
func (c *Context) SetTimeout(d time.Duration) error {
	if err := c.check(); err != nil {
		return err
	}
	if d < 0 {
		return errors.Wrapf(ErrInvalidArgument, "negative timeout %s", d)
	}
	if err := c.h.eng.SetTimeout(d); err != nil {
		return wrapEngine(err, "set timeout")
	}
	c.h.timeout.Store(d)
	return nil
}

// Timeout reports the last timeout set through SetTimeout.
func (c *Context) Timeout() time.Duration {
	if c == nil || c.h == nil {
		return 0
	}
	return c.h.timeout.Load()
}

// Clone adds an owner to the same session. The clone must be closed on its
// own; it may be handed to another goroutine but must not be used
// concurrently with other owners.
func (c *Context) Clone() (*Context, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if !c.h.acquire() {
		return nil, ErrClosed
	}
	return &Context{h: c.h}, nil
}

// DeepClone opens an independent session to the same backend, safe to use
// from another goroutine.
func (c *Context) DeepClone() (*Context, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	eng, err := c.h.eng.Clone()
	if err != nil {
		return nil, wrapEngine(err, "clone context")
	}
	o := options{logger: c.h.logger}
	if d := c.h.timeout.Load(); d != 0 {
		o.timeout = &d
	}
	return newContext(eng, c.h.backend, o)
}

// Same reports whether both values share one session.
func (c *Context) Same(other *Context) bool {
	return c != nil && other != nil && c.h == other.h
}

// Close drops this owner. It is safe to call more than once.
func (c *Context) Close() error {
	if c == nil || c.h == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.h.release()
	return nil
}

// Logger returns the logger of the session.
func (c *Context) Logger() *zap.Logger {
	if c == nil || c.h == nil {
		return zap.NewNop()
	}
	return c.h.logger
}
