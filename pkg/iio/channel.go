package iio

import (
	"iter"

	"github.com/pkg/errors"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// Direction tells input channels from output channels.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Channel is a view of one data lane of a device. Like Device it does not
// own the session.
type Channel struct {
	dev  Device
	eng  engine.Channel
	id   string
	name string
	out  bool
}

func newChannel(d Device, ch engine.Channel) Channel {
	return Channel{dev: d, eng: ch, id: ch.ID(), name: ch.Name(), out: ch.IsOutput()}
}

func (c Channel) check() error {
	if c.eng == nil {
		return ErrClosed
	}
	return c.dev.check()
}

func (c Channel) ID() string     { return c.id }
func (c Channel) Name() string   { return c.name }
func (c Channel) IsOutput() bool { return c.out }
func (c Channel) Device() Device { return c.dev }

func (c Channel) Direction() Direction {
	if c.out {
		return Output
	}
	return Input
}

// String names the channel and its device for messages.
func (c Channel) String() string {
	return c.dev.String() + "/" + c.id
}

// Same reports whether both values refer to one channel of one session.
func (c Channel) Same(other Channel) bool {
	return c.dev.h == other.dev.h && c.eng == other.eng && c.eng != nil
}

// Type is the physical quantity of the channel.
func (c Channel) Type() ChanType {
	if c.check() != nil {
		return engine.ChanUnknown
	}
	return c.eng.Type()
}

// Index is the scan index, -1 for channels that are not scan elements.
func (c Channel) Index() int {
	if c.check() != nil {
		return -1
	}
	return c.eng.Index()
}

func (c Channel) IsScanElement() bool {
	return c.check() == nil && c.eng.IsScanElement()
}

// Attrs returns the channel attributes.
func (c Channel) Attrs() Attrs {
	if c.check() != nil {
		return Attrs{}
	}
	return newAttrs(c.dev.h, c.eng.Attrs(), "channel "+c.String())
}

func (c Channel) NumAttrs() int                { return c.Attrs().Len() }
func (c Channel) Attr(i int) (string, error)   { return c.Attrs().Name(i) }
func (c Channel) HasAttr(name string) bool     { return c.Attrs().Has(name) }
func (c Channel) Attributes() iter.Seq[string] { return c.Attrs().All() }

// Enable marks the channel for buffers created after the call. Buffers that
// already exist keep the channel set they were created with.
func (c Channel) Enable() error {
	if err := c.check(); err != nil {
		return err
	}
	if !c.eng.IsScanElement() {
		return errors.Wrapf(ErrNotScanElement, "enable %s", c)
	}
	c.eng.Enable()
	return nil
}

// Disable clears the mark set by Enable.
func (c Channel) Disable() error {
	if err := c.check(); err != nil {
		return err
	}
	c.eng.Disable()
	return nil
}

func (c Channel) IsEnabled() bool {
	return c.check() == nil && c.eng.IsEnabled()
}

// DataFormat asks the engine on every call.
func (c Channel) DataFormat() DataFormat {
	if c.check() != nil {
		return DataFormat{}
	}
	return c.eng.DataFormat()
}

// SampleType is the Go integer type matching the channel's sample width and
// sign.
func (c Channel) SampleType() SampleType {
	return SampleTypeOf(c.DataFormat())
}

// Scale reads the scale attribute. Channels without one fall back to the
// scale of the data format, then to 1.
func (c Channel) Scale() (float64, error) {
	a := c.Attrs()
	if a.Has("scale") {
		return a.ReadFloat("scale")
	}
	if f := c.DataFormat(); f.WithScale {
		return f.Scale, nil
	}
	return 1, c.check()
}

// Offset reads the offset attribute, 0 when absent.
func (c Channel) Offset() (float64, error) {
	a := c.Attrs()
	if a.Has("offset") {
		return a.ReadFloat("offset")
	}
	return 0, c.check()
}

// Converter reads scale and offset once and returns (raw + offset) * scale
// as a function, for converting a whole block. Later writes to the scale or
// offset attributes do not affect a returned Converter.
func (c Channel) Converter() (func(raw int64) float64, error) {
	scale, err := c.Scale()
	if err != nil {
		return nil, err
	}
	offset, err := c.Offset()
	if err != nil {
		return nil, err
	}
	return func(raw int64) float64 { return (float64(raw) + offset) * scale }, nil
}

// ToPhysical applies offset and scale to a raw sample: (raw + offset) * scale.
func (c Channel) ToPhysical(raw int64) (float64, error) {
	conv, err := c.Converter()
	if err != nil {
		return 0, err
	}
	return conv(raw), nil
}

// matches reports whether T has the width and sign of the channel's samples.
func matches[T Sample](c Channel) bool {
	return SampleTypeFor[T]() == c.SampleType()
}

// Convert turns one sample from hardware layout into host layout. When T does
// not match the channel's sample type, v is returned unchanged; check
// SampleType first if the difference matters.
func Convert[T Sample](c Channel, v T) T {
	if !matches[T](c) {
		return v
	}
	var out T
	c.DataFormat().Convert(valueBytes(&out), valueBytes(&v))
	return out
}

// ConvertInverse turns one host sample into hardware layout, with the same
// mismatch rule as Convert.
func ConvertInverse[T Sample](c Channel, v T) T {
	if !matches[T](c) {
		return v
	}
	var out T
	c.DataFormat().ConvertInverse(valueBytes(&out), valueBytes(&v))
	return out
}

// Read demultiplexes every sample of the channel out of buf and converts it
// to host layout. A short engine read truncates the result.
func Read[T Sample](c Channel, buf *Buffer) ([]T, error) {
	return read[T](c, buf, false)
}

// ReadRaw is Read without the conversion step.
func ReadRaw[T Sample](c Channel, buf *Buffer) ([]T, error) {
	return read[T](c, buf, true)
}

func read[T Sample](c Channel, buf *Buffer, raw bool) ([]T, error) {
	if err := c.ioCheck(buf); err != nil {
		return nil, err
	}
	if !matches[T](c) {
		return nil, errors.Wrapf(ErrWrongDataType, "read %s as %s, channel holds %s",
			c, SampleTypeFor[T](), c.SampleType())
	}
	out := make([]T, buf.Capacity())
	dst := asBytes(out)
	n, err := c.eng.Read(buf.eng, dst, raw)
	if err != nil {
		return nil, wrapEngine(err, "read "+c.String())
	}
	if n > len(dst) {
		return nil, errors.Wrapf(ErrBadReturnSize, "read %s: %d bytes for %d requested", c, n, len(dst))
	}
	return out[:n/sizeOf[T]()], nil
}

// Write multiplexes src into buf, converting each sample to hardware
// layout. It returns the number of samples written.
func Write[T Sample](c Channel, buf *Buffer, src []T) (int, error) {
	return write(c, buf, src, false)
}

// WriteRaw is Write without the conversion step.
func WriteRaw[T Sample](c Channel, buf *Buffer, src []T) (int, error) {
	return write(c, buf, src, true)
}

func write[T Sample](c Channel, buf *Buffer, src []T, raw bool) (int, error) {
	if err := c.ioCheck(buf); err != nil {
		return 0, err
	}
	if !matches[T](c) {
		return 0, errors.Wrapf(ErrWrongDataType, "write %s as %s, channel holds %s",
			c, SampleTypeFor[T](), c.SampleType())
	}
	b := asBytes(src)
	n, err := c.eng.Write(buf.eng, b, raw)
	if err != nil {
		return 0, wrapEngine(err, "write "+c.String())
	}
	if n > len(b) {
		return 0, errors.Wrapf(ErrBadReturnSize, "write %s: %d bytes for %d given", c, n, len(b))
	}
	return n / sizeOf[T](), nil
}

// ReadBytes demultiplexes the channel without a type check. Samples are
// ByteLength bytes each, in host layout unless raw is set.
func (c Channel) ReadBytes(buf *Buffer, raw bool) ([]byte, error) {
	if err := c.ioCheck(buf); err != nil {
		return nil, err
	}
	dst := make([]byte, buf.Capacity()*c.DataFormat().ByteLength())
	n, err := c.eng.Read(buf.eng, dst, raw)
	if err != nil {
		return nil, wrapEngine(err, "read "+c.String())
	}
	if n > len(dst) {
		return nil, errors.Wrapf(ErrBadReturnSize, "read %s: %d bytes for %d requested", c, n, len(dst))
	}
	return dst[:n], nil
}

// WriteBytes multiplexes src into buf without a type check. src holds
// ByteLength bytes per sample; it returns the number of bytes consumed.
func (c Channel) WriteBytes(buf *Buffer, src []byte, raw bool) (int, error) {
	if err := c.ioCheck(buf); err != nil {
		return 0, err
	}
	n, err := c.eng.Write(buf.eng, src, raw)
	if err != nil {
		return 0, wrapEngine(err, "write "+c.String())
	}
	if n > len(src) {
		return 0, errors.Wrapf(ErrBadReturnSize, "write %s: %d bytes for %d given", c, n, len(src))
	}
	return n, nil
}

func (c Channel) ioCheck(buf *Buffer) error {
	if err := c.check(); err != nil {
		return err
	}
	if buf == nil {
		return errors.Wrapf(ErrInvalidArgument, "%s: nil buffer", c)
	}
	return buf.check()
}
