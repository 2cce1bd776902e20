//go:build libiio && cgo

package native

/*
#cgo pkg-config: libiio
#include <stdlib.h>
#include <iio.h>
*/
import "C"

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// Available reports whether this build links libiio.
const Available = true

// maxAttrLen bounds a single attribute read.
const maxAttrLen = 16 * 1024

// LibraryVersion reports the linked libiio version.
func LibraryVersion() engine.Version {
	var major, minor C.uint
	var tag [8]C.char
	C.iio_library_get_version(&major, &minor, &tag[0])
	return engine.Version{Major: uint(major), Minor: uint(minor), Git: C.GoString(&tag[0])}
}

func Local() (engine.Context, error) {
	p, err := C.iio_create_local_context()
	return wrapContext(p, err)
}

// Network connects to an IIO daemon. An empty host asks libiio to discover
// one with ZeroConf.
func Network(host string) (engine.Context, error) {
	var chost *C.char
	if host != "" {
		chost = C.CString(host)
		defer C.free(unsafe.Pointer(chost))
	}
	p, err := C.iio_create_network_context(chost)
	return wrapContext(p, err)
}

func URI(uri string) (engine.Context, error) {
	curi := C.CString(uri)
	defer C.free(unsafe.Pointer(curi))
	p, err := C.iio_create_context_from_uri(curi)
	return wrapContext(p, err)
}

func wrapContext(p *C.struct_iio_context, err error) (engine.Context, error) {
	if p == nil {
		return nil, errnoOr(err, unix.EIO)
	}
	c := &context{p: p}
	n := int(C.iio_context_get_devices_count(p))
	c.devices = make([]*device, n)
	for i := range c.devices {
		c.devices[i] = newDevice(c, C.iio_context_get_device(p, C.uint(i)))
	}
	return c, nil
}

// errnoOr returns the errno captured by cgo, or fallback when none was set.
func errnoOr(err error, fallback unix.Errno) error {
	if e, ok := err.(unix.Errno); ok && e != 0 {
		return e
	}
	return fallback
}

// check turns a negative libiio return code into an errno. Callers widen
// int and ssize_t results to int64.
func check(ret int64) error {
	if ret < 0 {
		return unix.Errno(-ret)
	}
	return nil
}

type context struct {
	p       *C.struct_iio_context
	devices []*device
}

func (c *context) Name() string        { return C.GoString(C.iio_context_get_name(c.p)) }
func (c *context) Description() string { return C.GoString(C.iio_context_get_description(c.p)) }

func (c *context) XML() (string, error) {
	return C.GoString(C.iio_context_get_xml(c.p)), nil
}

func (c *context) Version() (engine.Version, error) {
	var major, minor C.uint
	var tag [8]C.char
	if err := check(int64(C.iio_context_get_version(c.p, &major, &minor, &tag[0]))); err != nil {
		return engine.Version{}, err
	}
	return engine.Version{Major: uint(major), Minor: uint(minor), Git: C.GoString(&tag[0])}, nil
}

func (c *context) Attrs() ([]engine.Attr, error) {
	n := int(C.iio_context_get_attrs_count(c.p))
	out := make([]engine.Attr, 0, n)
	for i := 0; i < n; i++ {
		var name, value *C.char
		if err := check(int64(C.iio_context_get_attr(c.p, C.uint(i), &name, &value))); err != nil {
			return nil, err
		}
		out = append(out, engine.Attr{Name: C.GoString(name), Value: C.GoString(value)})
	}
	return out, nil
}

func (c *context) SetTimeout(d time.Duration) error {
	return check(int64(C.iio_context_set_timeout(c.p, C.uint(d.Milliseconds()))))
}

func (c *context) NumDevices() int { return len(c.devices) }

func (c *context) Device(idx int) engine.Device {
	if idx < 0 || idx >= len(c.devices) {
		return nil
	}
	return c.devices[idx]
}

func (c *context) FindDevice(name string) engine.Device {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	p := C.iio_context_find_device(c.p, cname)
	if p == nil {
		return nil
	}
	return c.lookup(p)
}

func (c *context) lookup(p *C.struct_iio_device) *device {
	for _, d := range c.devices {
		if d.p == p {
			return d
		}
	}
	return nil
}

func (c *context) Clone() (engine.Context, error) {
	p, err := C.iio_context_clone(c.p)
	return wrapContext(p, err)
}

func (c *context) Destroy() {
	C.iio_context_destroy(c.p)
	c.p = nil
}

type device struct {
	ctx      *context
	p        *C.struct_iio_device
	channels []*channel
}

func newDevice(ctx *context, p *C.struct_iio_device) *device {
	d := &device{ctx: ctx, p: p}
	n := int(C.iio_device_get_channels_count(p))
	d.channels = make([]*channel, n)
	for i := range d.channels {
		d.channels[i] = &channel{dev: d, p: C.iio_device_get_channel(p, C.uint(i))}
	}
	return d
}

func (d *device) ID() string      { return C.GoString(C.iio_device_get_id(d.p)) }
func (d *device) Name() string    { return C.GoString(C.iio_device_get_name(d.p)) }
func (d *device) Label() string   { return C.GoString(C.iio_device_get_label(d.p)) }
func (d *device) IsTrigger() bool { return bool(C.iio_device_is_trigger(d.p)) }

func (d *device) Trigger() (engine.Device, error) {
	var trig *C.struct_iio_device
	ret := C.iio_device_get_trigger(d.p, &trig)
	if ret == -C.int(unix.ENOENT) || ret == -C.int(unix.ENODEV) {
		return nil, nil
	}
	if err := check(int64(ret)); err != nil {
		return nil, err
	}
	if trig == nil {
		return nil, nil
	}
	if t := d.ctx.lookup(trig); t != nil {
		return t, nil
	}
	return nil, nil
}

func (d *device) SetTrigger(trig engine.Device) error {
	if trig == nil {
		return check(int64(C.iio_device_set_trigger(d.p, nil)))
	}
	t, ok := trig.(*device)
	if !ok {
		return unix.EINVAL
	}
	return check(int64(C.iio_device_set_trigger(d.p, t.p)))
}

func (d *device) Attrs() engine.AttrSet       { return deviceAttrs(d.p) }
func (d *device) BufferAttrs() engine.AttrSet { return bufferAttrs(d.p) }
func (d *device) DebugAttrs() engine.AttrSet  { return debugAttrs(d.p) }

func (d *device) NumChannels() int { return len(d.channels) }

func (d *device) Channel(idx int) engine.Channel {
	if idx < 0 || idx >= len(d.channels) {
		return nil
	}
	return d.channels[idx]
}

func (d *device) FindChannel(name string, output bool) engine.Channel {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	p := C.iio_device_find_channel(d.p, cname, C.bool(output))
	for _, ch := range d.channels {
		if p != nil && ch.p == p {
			return ch
		}
	}
	return nil
}

func (d *device) SampleSize() (int, error) {
	ret := C.iio_device_get_sample_size(d.p)
	if err := check(int64(ret)); err != nil {
		return 0, err
	}
	return int(ret), nil
}

func (d *device) SetKernelBuffersCount(n uint) error {
	return check(int64(C.iio_device_set_kernel_buffers_count(d.p, C.uint(n))))
}

func (d *device) RegRead(addr uint32) (uint32, error) {
	var v C.uint32_t
	if err := check(int64(C.iio_device_reg_read(d.p, C.uint32_t(addr), &v))); err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (d *device) RegWrite(addr, value uint32) error {
	return check(int64(C.iio_device_reg_write(d.p, C.uint32_t(addr), C.uint32_t(value))))
}

func (d *device) CreateBuffer(samples int, cyclic bool) (engine.Buffer, error) {
	p, err := C.iio_device_create_buffer(d.p, C.size_t(samples), C.bool(cyclic))
	if p == nil {
		return nil, errnoOr(err, unix.ENOMEM)
	}
	return &buffer{dev: d, p: p}, nil
}

type channel struct {
	dev *device
	p   *C.struct_iio_channel
}

func (c *channel) ID() string          { return C.GoString(C.iio_channel_get_id(c.p)) }
func (c *channel) Name() string        { return C.GoString(C.iio_channel_get_name(c.p)) }
func (c *channel) IsOutput() bool      { return bool(C.iio_channel_is_output(c.p)) }
func (c *channel) IsScanElement() bool { return bool(C.iio_channel_is_scan_element(c.p)) }

func (c *channel) Index() int {
	if !c.IsScanElement() {
		return -1
	}
	return int(C.iio_channel_get_index(c.p))
}

func (c *channel) Type() engine.ChanType {
	t := engine.ChanType(C.iio_channel_get_type(c.p))
	if t < 0 || t > engine.ChanUnknown {
		return engine.ChanUnknown
	}
	return t
}

func (c *channel) Attrs() engine.AttrSet { return channelAttrs(c.p) }

func (c *channel) Enable()         { C.iio_channel_enable(c.p) }
func (c *channel) Disable()        { C.iio_channel_disable(c.p) }
func (c *channel) IsEnabled() bool { return bool(C.iio_channel_is_enabled(c.p)) }

func (c *channel) DataFormat() engine.DataFormat {
	f := C.iio_channel_get_data_format(c.p)
	return engine.DataFormat{
		Length:       uint(f.length),
		Bits:         uint(f.bits),
		Shift:        uint(f.shift),
		Signed:       bool(f.is_signed),
		FullyDefined: bool(f.is_fully_defined),
		BigEndian:    bool(f.is_be),
		WithScale:    bool(f.with_scale),
		Scale:        float64(f.scale),
		Repeat:       uint(f.repeat),
	}
}

func (c *channel) Read(buf engine.Buffer, dst []byte, raw bool) (int, error) {
	b, ok := buf.(*buffer)
	if !ok {
		return 0, unix.EINVAL
	}
	if len(dst) == 0 {
		return 0, nil
	}
	ptr, n := unsafe.Pointer(&dst[0]), C.size_t(len(dst))
	if raw {
		return int(C.iio_channel_read_raw(c.p, b.p, ptr, n)), nil
	}
	return int(C.iio_channel_read(c.p, b.p, ptr, n)), nil
}

func (c *channel) Write(buf engine.Buffer, src []byte, raw bool) (int, error) {
	b, ok := buf.(*buffer)
	if !ok {
		return 0, unix.EINVAL
	}
	if len(src) == 0 {
		return 0, nil
	}
	ptr, n := unsafe.Pointer(&src[0]), C.size_t(len(src))
	if raw {
		return int(C.iio_channel_write_raw(c.p, b.p, ptr, n)), nil
	}
	return int(C.iio_channel_write(c.p, b.p, ptr, n)), nil
}

type buffer struct {
	dev *device
	p   *C.struct_iio_buffer
}

func (b *buffer) Refill() (int, error) {
	ret := C.iio_buffer_refill(b.p)
	if err := check(int64(ret)); err != nil {
		return 0, err
	}
	return int(ret), nil
}

func (b *buffer) Push() (int, error) {
	ret := C.iio_buffer_push(b.p)
	if err := check(int64(ret)); err != nil {
		return 0, err
	}
	return int(ret), nil
}

func (b *buffer) PushPartial(samples int) (int, error) {
	ret := C.iio_buffer_push_partial(b.p, C.size_t(samples))
	if err := check(int64(ret)); err != nil {
		return 0, err
	}
	return int(ret), nil
}

func (b *buffer) Cancel() { C.iio_buffer_cancel(b.p) }

func (b *buffer) PollFD() (int, error) {
	ret := C.iio_buffer_get_poll_fd(b.p)
	if err := check(int64(ret)); err != nil {
		return -1, err
	}
	return int(ret), nil
}

func (b *buffer) SetBlockingMode(blocking bool) error {
	return check(int64(C.iio_buffer_set_blocking_mode(b.p, C.bool(blocking))))
}

// Data views libiio's sample memory without copying. The slice is valid
// until the next refill or Destroy.
func (b *buffer) Data() []byte {
	start := C.iio_buffer_start(b.p)
	end := C.iio_buffer_end(b.p)
	n := uintptr(end) - uintptr(start)
	if start == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(start), n)
}

func (b *buffer) First(ch engine.Channel) (int, error) {
	c, ok := ch.(*channel)
	if !ok {
		return 0, unix.EINVAL
	}
	first := C.iio_buffer_first(b.p, c.p)
	return int(uintptr(first) - uintptr(C.iio_buffer_start(b.p))), nil
}

func (b *buffer) Step() int { return int(C.iio_buffer_step(b.p)) }

func (b *buffer) Destroy() {
	C.iio_buffer_destroy(b.p)
	b.p = nil
}
